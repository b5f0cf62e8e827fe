package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"potholewatch/internal/dto"
	"potholewatch/internal/logger"
	"potholewatch/internal/model"
	"potholewatch/internal/repository"
	"potholewatch/internal/repository/jsonstore"
	"potholewatch/internal/service"
	"potholewatch/internal/service/ai"
	"potholewatch/internal/service/analytics"
	"potholewatch/internal/service/dataurl"
	"potholewatch/internal/service/heatmap"
	"potholewatch/internal/service/render"
	"potholewatch/internal/service/reports"
	"potholewatch/internal/service/upload"
)

// maxJSONBody bounds JSON request bodies; frames arrive as data URLs.
const maxJSONBody = 64 << 20

var badRequest = []error{
	dataurl.ErrMalformed,
	dataurl.ErrEmptyImage,
	dataurl.ErrTooManyPixels,
	upload.ErrEmpty,
	upload.ErrType,
	model.ErrUnknownStatus,
	analytics.ErrUnknownRange,
	service.ErrUnknownFormat,
	jsonstore.ErrInvalidReport,
	jsonstore.ErrUnknownTheme,
	reports.ErrNoDetections,
	heatmap.ErrNoDetections,
}

var conflict = []error{
	render.ErrBlankCanvas,
	render.ErrNotHeatmap,
	render.ErrNoSnapshot,
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	for _, target := range conflict {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	var remote *ai.RemoteError
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrWorkspaceLimit):
		return http.StatusServiceUnavailable
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &remote), errors.Is(err, ai.ErrBadResponse), errors.Is(err, ai.ErrUnreachable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError logs err and answers with the {"error": ...} envelope.
func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	status := statusFor(err)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Warning("Request canceled by client: %v", err)
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		logger.Error("Request failed: %v", err)
	default:
		logger.Warning("Request rejected: %v", err)
	}
	writeJSON(w, logger, status, dto.ErrorResponse{Error: err.Error()})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, logger *logger.Logger, msg string) {
	logger.Warning("Bad request: %s", msg)
	writeJSON(w, logger, http.StatusBadRequest, dto.ErrorResponse{Error: msg})
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}
