package handler

import (
	"net/http"

	"potholewatch/internal/logger"
	"potholewatch/internal/service"
	"potholewatch/internal/service/analytics"
)

const (
	chartWidth  = 640
	chartHeight = 320
)

// SummaryHandler returns the detection history summary.
func SummaryHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := manager.Summary()
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, summary)
	}
}

// TrendHandler returns trend, severity breakdown and overview for ?range=.
func TrendHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dash, ok := dashboard(w, r, manager, logger)
		if !ok {
			return
		}
		writeJSON(w, logger, http.StatusOK, dash)
	}
}

// TrendChartHandler draws the detected/repaired line chart.
func TrendChartHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dash, ok := dashboard(w, r, manager, logger)
		if !ok {
			return
		}
		data, err := analytics.TrendChart(dash.Trend, chartWidth, chartHeight)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writePNG(w, data)
	}
}

// SeverityChartHandler draws the severity bar chart.
func SeverityChartHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dash, ok := dashboard(w, r, manager, logger)
		if !ok {
			return
		}
		data, err := analytics.SeverityChart(dash.Severity, chartWidth, chartHeight)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writePNG(w, data)
	}
}

func dashboard(w http.ResponseWriter, r *http.Request, manager *service.Manager, logger *logger.Logger) (analytics.Dashboard, bool) {
	rng, err := analytics.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, logger, err)
		return analytics.Dashboard{}, false
	}
	dash, err := manager.Dashboard(rng)
	if err != nil {
		writeError(w, logger, err)
		return analytics.Dashboard{}, false
	}
	return dash, true
}
