package route

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/cors"

	"potholewatch/internal/config"
	"potholewatch/internal/handler"
	"potholewatch/internal/logger"
	"potholewatch/internal/middleware"
	"potholewatch/internal/service"
)

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers static file serving, the API endpoints and the log
// endpoints, and wraps the mux with CORS and request logging.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger, decode handler.FrameDecoder) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Detection workspace
	mux.HandleFunc("POST /api/detect", handler.DetectHandler(manager, logger))
	mux.HandleFunc("POST /api/detect/upload", handler.UploadHandler(manager, cfg, logger, decode))
	mux.HandleFunc("GET /api/upload/config", handler.UploadConfigHandler(cfg, logger))
	mux.HandleFunc("GET /api/canvas", handler.CanvasHandler(manager, logger))
	mux.HandleFunc("POST /api/heatmap", handler.HeatmapHandler(manager, logger))
	mux.HandleFunc("POST /api/heatmap/reset", handler.ResetHeatmapHandler(manager, logger))
	mux.HandleFunc("POST /api/export", handler.ExportHandler(manager, logger))
	mux.HandleFunc("POST /api/workspace/reset", handler.ResetWorkspaceHandler(manager, logger))
	mux.HandleFunc("GET /api/status", handler.StatusHandler(manager, logger))

	// Reports
	mux.HandleFunc("POST /api/reports", handler.CreateReportHandler(manager, logger))
	mux.HandleFunc("GET /api/reports", handler.ListReportsHandler(manager, logger))
	mux.HandleFunc("GET /api/reports/stats", handler.ReportStatsHandler(manager, logger))
	mux.HandleFunc("GET /api/reports/map.png", handler.ReportMapHandler(manager, cfg, logger))
	mux.HandleFunc("GET /api/reports/map/points", handler.ReportPointsHandler(manager, cfg, logger))
	mux.HandleFunc("GET /api/reports/{id}", handler.GetReportHandler(manager, logger))
	mux.HandleFunc("PATCH /api/reports/{id}/status", handler.UpdateReportStatusHandler(manager, logger))

	// Analytics
	mux.HandleFunc("GET /api/analytics/summary", handler.SummaryHandler(manager, logger))
	mux.HandleFunc("GET /api/analytics/trend", handler.TrendHandler(manager, logger))
	mux.HandleFunc("GET /api/analytics/trend.png", handler.TrendChartHandler(manager, logger))
	mux.HandleFunc("GET /api/analytics/severity.png", handler.SeverityChartHandler(manager, logger))

	// Preferences
	mux.HandleFunc("GET /api/preferences/theme", handler.GetThemeHandler(manager, logger))
	mux.HandleFunc("PUT /api/preferences/theme", handler.SetThemeHandler(manager, logger))

	// Live report feed
	mux.HandleFunc("GET /api/live", handler.LiveWebsocketHandler(manager, cfg, logger))

	// Log endpoints
	for _, name := range []string{"info", "warning", "error"} {
		file := name + ".log"
		mux.HandleFunc("GET /logs/"+name, handler.ShowLogsHandler(cfg, file))
		mux.HandleFunc("POST /logs/"+name+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Automatic HTML handler mapping for example: /reports -> /static/reports.html
	mux.HandleFunc("GET /", dynamicHTMLHandler(cfg.StaticDirectory))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
	})
	return middleware.LoggingMiddleware(logger, c.Handler(mux))
}
