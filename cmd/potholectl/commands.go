package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"potholewatch/internal/config"
	"potholewatch/internal/logger"
	"potholewatch/internal/model"
	"potholewatch/internal/repository/jsonstore"
	"potholewatch/internal/repository/sqlite"
	"potholewatch/internal/service"
	"potholewatch/internal/service/ai"
	"potholewatch/internal/service/analytics"
	"potholewatch/internal/service/capture"
	"potholewatch/internal/service/dataurl"
	"potholewatch/internal/service/reports"
	"potholewatch/internal/service/severity"
	"potholewatch/internal/service/upload"
)

// env is everything a command needs, opened against the configured database.
type env struct {
	cfg     *config.Config
	logger  *logger.Logger
	store   *sqlite.KeyValueRepository
	manager *service.Manager
}

func openEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if db := c.String(flagDB); db != "" {
		cfg.DatabasePath = db
	}
	if url := c.String(flagDetector); url != "" {
		cfg.DetectorURL = strings.TrimRight(url, "/")
	}

	log := logger.NewNop()
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	store := sqlite.NewKeyValueRepository(db)
	clk := clock.New()
	reportService := reports.NewService(jsonstore.NewReportStore(store), clk, nil, log)
	mng := service.NewManager(ai.NewDetectorService(cfg, log), jsonstore.NewHistoryStore(store), reportService,
		jsonstore.NewPreferenceStore(store), nil, clk, cfg, log)
	return &env{cfg: cfg, logger: log, store: store, manager: mng}, nil
}

func (e *env) Close() error {
	return multierr.Combine(e.store.Close(), e.logger.Close())
}

// withEnv opens the environment for the duration of fn.
func withEnv(fn func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) (err error) {
		e, err := openEnv(c)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, e.Close()) }()
		return fn(c, e)
	}
}

var listReportsAction = withEnv(func(c *cli.Context, e *env) error {
	list, err := e.manager.GetReportService().List(c.String(flagStatus))
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"ID", "Date", "Status", "Potholes", "High", "Avg confidence", "Location"})
	for _, r := range list {
		t.AppendRow(table.Row{
			r.ID,
			r.Date.Local().Format("2006-01-02 15:04"),
			r.Status,
			r.PotholesCount,
			r.HighSeverityCount,
			r.AvgConfidence,
			fmt.Sprintf("%.4f, %.4f", r.Location.Latitude, r.Location.Longitude),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(list)})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
})

var setStatusAction = withEnv(func(c *cli.Context, e *env) error {
	if c.NArg() != 2 {
		return errors.New("expected <report id> <status>")
	}
	status, err := model.ParseStatus(c.Args().Get(1))
	if err != nil {
		return err
	}
	r, err := e.manager.GetReportService().SetStatus(c.Args().Get(0), status)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s is now %s\n", r.ID, r.Status)
	return nil
})

var reportStatsAction = withEnv(func(c *cli.Context, e *env) error {
	stats, err := e.manager.GetReportService().Stats()
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Status", "Reports"})
	t.AppendRows([]table.Row{
		{model.StatusPending, stats.Pending},
		{model.StatusInProgress, stats.InProgress},
		{model.StatusCompleted, stats.Completed},
	})
	t.AppendFooter(table.Row{"Total", stats.Total})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
})

var mapAction = withEnv(func(c *cli.Context, e *env) error {
	list, err := e.manager.GetReportService().List(reports.FilterAll)
	if err != nil {
		return err
	}
	data, err := dataurl.PNG(reports.RenderMap(list, c.Int(flagWidth), c.Int(flagHeight)))
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.String(flagOut), data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write map")
	}
	fmt.Fprintf(c.App.Writer, "Wrote %d reports to %s\n", len(list), c.String(flagOut))
	return nil
})

var summaryAction = withEnv(func(c *cli.Context, e *env) error {
	s, err := e.manager.Summary()
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Total scans", s.TotalScans},
		{"Successful scans", s.SuccessfulScans},
		{"Total potholes", s.TotalPotholes},
		{"High severity", s.HighSeverityCount},
		{"Medium severity", s.MediumSeverityCount},
		{"Low severity", s.LowSeverityCount},
		{"Avg confidence", fmt.Sprintf("%.1f%%", s.AvgConfidencePercent)},
	})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
})

var trendAction = withEnv(func(c *cli.Context, e *env) error {
	rng, err := analytics.ParseRange(c.String(flagRange))
	if err != nil {
		return err
	}
	dash, err := e.manager.Dashboard(rng)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Period", "Detected", "Repaired"})
	for i, label := range dash.Trend.Labels {
		t.AppendRow(table.Row{label, dash.Trend.Detected[i], dash.Trend.Repaired[i]})
	}
	t.AppendFooter(table.Row{"Repair rate", dash.Overview.TotalDetected, fmt.Sprintf("%d%%", dash.Overview.RepairRatePercent)})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
})

var analyzeAction = withEnv(func(c *cli.Context, e *env) error {
	frame, source, err := grabFrame(c)
	if err != nil {
		return err
	}
	result, err := e.manager.AnalyzeImage(c.Context, service.DefaultWorkspace, frame)
	if err != nil {
		return err
	}
	png, err := e.manager.CanvasPNG(service.DefaultWorkspace)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.String(flagOut), png, 0o644); err != nil {
		return errors.Wrap(err, "failed to write annotated frame")
	}

	t := table.NewWriter()
	t.SetTitle(source)
	t.AppendHeader(table.Row{"#", "Box", "Confidence", "Severity"})
	for i, d := range result.Detections {
		t.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%.0f,%.0f %.0fx%.0f", d.BBox.X, d.BBox.Y, d.BBox.Width, d.BBox.Height),
			fmt.Sprintf("%.1f%%", d.Confidence*100),
			severity.Resolve(d),
		})
	}
	t.AppendFooter(table.Row{"", "Avg " + result.Metrics.AvgConfidence, "High", result.Metrics.HighSeverityCount})
	fmt.Fprintln(c.App.Writer, t.Render())
	fmt.Fprintf(c.App.Writer, "Annotated frame written to %s\n", c.String(flagOut))
	return nil
})

func grabFrame(c *cli.Context) (image.Image, string, error) {
	if id := c.Int(flagCamera); id >= 0 {
		img, err := capture.DeviceFrame(id)
		return img, fmt.Sprintf("camera %d", id), err
	}
	if c.NArg() != 1 {
		return nil, "", errors.New("expected a file or --camera")
	}
	path := c.Args().First()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	kind := upload.KindImage
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov":
		kind = upload.KindVideo
	}
	img, err := capture.Frame(kind, data)
	return img, path, err
}

var statusAction = withEnv(func(c *cli.Context, e *env) error {
	st, err := e.manager.Status(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s: status=%s model_loaded=%t initializing=%t (%s)\n",
		e.cfg.DetectorURL, st.Status, st.ModelLoaded, st.Initializing, st.Timestamp)
	return nil
})
