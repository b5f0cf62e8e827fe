package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"potholewatch/internal/config"
	"potholewatch/internal/dto"
	"potholewatch/internal/logger"
	"potholewatch/internal/model"
	"potholewatch/internal/service"
	"potholewatch/internal/service/dataurl"
	"potholewatch/internal/service/reports"
)

// CreateReportHandler files a municipality report for the workspace frame.
func CreateReportHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreateReportRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, logger, "invalid request body")
			return
		}
		if (req.Latitude == nil) != (req.Longitude == nil) {
			writeBadRequest(w, logger, "latitude and longitude must be sent together")
			return
		}
		report, err := manager.Report(req.Workspace, req.Location())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, report)
	}
}

// ListReportsHandler lists reports newest first, optionally filtered by status.
func ListReportsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("status")
		if filter == "" {
			filter = reports.FilterAll
		}
		list, err := manager.GetReportService().List(filter)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.ReportsData{Reports: list, Length: len(list), Filter: filter})
	}
}

// GetReportHandler returns one report.
func GetReportHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := manager.GetReportService().Get(r.PathValue("id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, report)
	}
}

// UpdateReportStatusHandler moves a report to a new status.
func UpdateReportStatusHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.StatusRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, logger, "invalid request body")
			return
		}
		status, err := model.ParseStatus(req.Status)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		report, err := manager.GetReportService().SetStatus(r.PathValue("id"), status)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, report)
	}
}

// ReportStatsHandler counts reports per status.
func ReportStatsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := manager.GetReportService().Stats()
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, stats)
	}
}

// ReportMapHandler renders every report on the synthetic map.
func ReportMapHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		width, height, ok := mapSize(r, cfg)
		if !ok {
			writeBadRequest(w, logger, mapSizeMessage)
			return
		}

		list, err := manager.GetReportService().List(reports.FilterAll)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		data, err := dataurl.PNG(reports.RenderMap(list, width, height))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writePNG(w, data)
	}
}

// ReportPointsHandler returns the projected marker positions for clients that
// draw the map themselves.
func ReportPointsHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		width, height, ok := mapSize(r, cfg)
		if !ok {
			writeBadRequest(w, logger, mapSizeMessage)
			return
		}

		list, err := manager.GetReportService().List(reports.FilterAll)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, reports.Project(list, width, height))
	}
}

const (
	minMapSize = 200
	maxMapSize = 4096
)

var mapSizeMessage = fmt.Sprintf("map width and height must be between %d and %d", minMapSize, maxMapSize)

// mapSize reads width and height from the query, defaulting to the configured
// map size, and reports whether both are within bounds.
func mapSize(r *http.Request, cfg *config.Config) (int, int, bool) {
	q := r.URL.Query()
	width := atoiDefault(q.Get("width"), cfg.MapWidth)
	height := atoiDefault(q.Get("height"), cfg.MapHeight)
	inRange := func(v int) bool { return v >= minMapSize && v <= maxMapSize }
	return width, height, inRange(width) && inRange(height)
}

// atoiDefault converts s to int or returns def when conversion fails or the value is <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
