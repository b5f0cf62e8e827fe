package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"potholewatch/internal/config"
	"potholewatch/internal/logger"
	"potholewatch/internal/repository"
	"potholewatch/internal/repository/jsonstore"
	"potholewatch/internal/repository/sqlite"
	"potholewatch/internal/route"
	"potholewatch/internal/service"
	"potholewatch/internal/service/ai"
	"potholewatch/internal/service/capture"
	"potholewatch/internal/service/reports"
	"potholewatch/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	store      repository.KeyValueStore
	hubService *websocket.HubService
	manager    *service.Manager
}

// NewApp loads configuration, opens the store and wires the services.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, multierr.Append(err, log.Close())
	}
	store := sqlite.NewKeyValueRepository(db)

	clk := clock.New()
	hub := websocket.NewHubService(log)
	detector := ai.NewDetectorService(cfg, log)
	reportService := reports.NewService(jsonstore.NewReportStore(store), clk, hub, log)
	mng := service.NewManager(detector, jsonstore.NewHistoryStore(store), reportService,
		jsonstore.NewPreferenceStore(store), hub, clk, cfg, log)

	return &App{
		config:     cfg,
		logger:     log,
		store:      store,
		hubService: hub,
		manager:    mng,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start background services
	go a.hubService.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           route.SetupRoutes(a.manager, a.config, a.logger, capture.Frame),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("Pothole detection server on http://localhost:%d", a.config.Port)
	a.logger.Info("Detector backend: %s (timeout %s)", a.config.DetectorURL, a.config.DetectorTimeout)
	a.logger.Info("Database: %s", a.config.DatabasePath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return server.Shutdown(shutdownCtx)
}

// Close releases the store and flushes the logs.
func (a *App) Close() error {
	return multierr.Combine(a.store.Close(), a.logger.Close())
}
