package handler

import (
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"

	"potholewatch/internal/config"
	"potholewatch/internal/dto"
	"potholewatch/internal/logger"
	"potholewatch/internal/service"
	"potholewatch/internal/service/upload"
)

// FrameDecoder turns an accepted upload into one frame.
type FrameDecoder func(kind upload.Kind, data []byte) (image.Image, error)

// DetectHandler analyzes a frame sent as a data URL.
func DetectHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.DetectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, logger, "invalid request body")
			return
		}
		if req.Image == "" {
			writeBadRequest(w, logger, "image is required")
			return
		}

		result, err := manager.AnalyzeDataURL(r.Context(), req.Workspace, req.Image)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, result)
	}
}

// UploadHandler analyzes a multipart image or video upload. Videos are
// analyzed on their first frame.
func UploadHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger, decode FrameDecoder) http.HandlerFunc {
	rules := upload.DefaultConfig(cfg.MaxUploadBytes())
	return func(w http.ResponseWriter, r *http.Request) {
		limit := rules.MaxSize + 1<<20
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || r.ContentLength > limit {
				writeError(w, logger, fmt.Errorf("%w: request body exceeds %d bytes", upload.ErrTooLarge, limit))
				return
			}
			writeBadRequest(w, logger, "file is required")
			return
		}
		defer file.Close()

		kind, err := rules.Validate(header.Filename, header.Header.Get("Content-Type"), header.Size)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, logger, fmt.Errorf("failed to read upload: %w", err))
			return
		}
		frame, err := decode(kind, data)
		if err != nil {
			writeBadRequest(w, logger, err.Error())
			return
		}

		result, err := manager.AnalyzeImage(r.Context(), r.FormValue("workspace"), frame)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		logger.Info("Analyzed upload %s (%d bytes)", header.Filename, header.Size)
		writeJSON(w, logger, http.StatusOK, result)
	}
}

// UploadConfigHandler serves the upload rules so clients can check files
// before sending them.
func UploadConfigHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	rules := upload.DefaultConfig(cfg.MaxUploadBytes())
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, rules)
	}
}

// CanvasHandler serves the workspace canvas as PNG.
func CanvasHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := manager.CanvasPNG(r.URL.Query().Get("workspace"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writePNG(w, data)
	}
}

// HeatmapHandler blends a heatmap over the workspace frame.
func HeatmapHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.WorkspaceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, logger, "invalid request body")
			return
		}
		view, err := manager.Heatmap(r.Context(), req.Workspace)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, view)
	}
}

// ResetHeatmapHandler restores the annotated frame.
func ResetHeatmapHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.WorkspaceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, logger, "invalid request body")
			return
		}
		img, err := manager.ResetHeatmap(req.Workspace)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.ResetData{Image: img, Mode: "annotated"})
	}
}

// ResetWorkspaceHandler clears the live detections and canvas.
func ResetWorkspaceHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.WorkspaceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, logger, "invalid request body")
			return
		}
		manager.ResetWorkspace(req.Workspace)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ExportHandler packages the live detections as a JSON or CSV download.
func ExportHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ExportRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, logger, "invalid request body")
			return
		}
		file, err := manager.Export(r.Context(), req.Workspace, req.Format, req.GPS)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
		w.Write(file.Body)
	}
}

// StatusHandler reports the detector backend's health.
func StatusHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := manager.Status(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, status)
	}
}
