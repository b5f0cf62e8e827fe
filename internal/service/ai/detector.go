package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"potholewatch/internal/config"
	"potholewatch/internal/logger"
	"potholewatch/internal/model"
)

const (
	detectEndpoint  = "/detect"
	heatmapEndpoint = "/generate_heatmap"
	exportEndpoint  = "/export"
	statusEndpoint  = "/status"

	// maxResponseBytes bounds a detector reply; heatmaps are full-size PNG data URLs.
	maxResponseBytes = 64 << 20
)

var (
	// ErrUnreachable marks transport failures talking to the detector.
	ErrUnreachable = errors.New("detector unreachable")
	// ErrBadResponse marks detector replies that do not decode.
	ErrBadResponse = errors.New("malformed detector response")
)

// RemoteError is a failure reported by the detector backend, either as an
// {"error": ...} payload or as a non-200 response.
type RemoteError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("detector %s (%d): %s", e.Endpoint, e.StatusCode, e.Message)
}

// GPS is the location shape the export endpoint expects.
type GPS struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HeatmapStats are the per-tier counts computed by the heatmap generator.
type HeatmapStats struct {
	HighSeverity   int     `json:"high_severity"`
	MediumSeverity int     `json:"medium_severity"`
	LowSeverity    int     `json:"low_severity"`
	AvgConfidence  float64 `json:"avg_confidence"`
}

// HeatmapResult carries the heatmap as a PNG data URL plus its stats.
type HeatmapResult struct {
	Heatmap string       `json:"heatmap"`
	Stats   HeatmapStats `json:"stats"`
}

// ExportResult is the export document returned by the backend.
type ExportResult struct {
	Timestamp  string            `json:"timestamp"`
	Location   model.Location    `json:"location"`
	Detections []model.Detection `json:"detections"`
}

// Status is the backend health probe reply.
type Status struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	Initializing bool   `json:"initializing"`
	Timestamp    string `json:"timestamp"`
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Detections []model.Detection `json:"detections"`
	Count      int               `json:"count"`
}

type heatmapRequest struct {
	Detections []model.Detection `json:"detections"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
}

type exportRequest struct {
	Detections []model.Detection `json:"detections"`
	GPS        *GPS              `json:"gps,omitempty"`
	Format     string            `json:"format"`
}

// DetectorService talks to the remote pothole detector over HTTP. It holds no
// detection logic of its own.
type DetectorService struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

// NewDetectorService creates a client for cfg.DetectorURL with cfg.DetectorTimeout.
func NewDetectorService(cfg *config.Config, logger *logger.Logger) *DetectorService {
	return &DetectorService{
		baseURL: strings.TrimRight(cfg.DetectorURL, "/"),
		client:  &http.Client{Timeout: cfg.DetectorTimeout},
		logger:  logger,
	}
}

// Detect submits an image data URL and returns the raw detections.
func (s *DetectorService) Detect(ctx context.Context, imageDataURL string) ([]model.Detection, error) {
	var resp detectResponse
	if err := s.post(ctx, detectEndpoint, detectRequest{Image: imageDataURL}, &resp); err != nil {
		return nil, err
	}
	return model.CloneDetections(resp.Detections), nil
}

// GenerateHeatmap asks the backend for a heatmap of detections over an image
// of the given original dimensions.
func (s *DetectorService) GenerateHeatmap(ctx context.Context, detections []model.Detection, width, height int) (*HeatmapResult, error) {
	req := heatmapRequest{
		Detections: model.CloneDetections(detections),
		Width:      width,
		Height:     height,
	}
	var resp HeatmapResult
	if err := s.post(ctx, heatmapEndpoint, req, &resp); err != nil {
		return nil, err
	}
	if resp.Heatmap == "" {
		return nil, &RemoteError{Endpoint: heatmapEndpoint, StatusCode: http.StatusOK, Message: "empty heatmap"}
	}
	return &resp, nil
}

// Export asks the backend to package detections with a location.
func (s *DetectorService) Export(ctx context.Context, detections []model.Detection, gps *GPS, format string) (*ExportResult, error) {
	req := exportRequest{
		Detections: model.CloneDetections(detections),
		GPS:        gps,
		Format:     format,
	}
	var resp ExportResult
	if err := s.post(ctx, exportEndpoint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status probes the backend.
func (s *DetectorService) Status(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+statusEndpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build status request")
	}
	var resp Status
	if err := s.do(req, statusEndpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *DetectorService) post(ctx context.Context, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s request", endpoint)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "failed to build %s request", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, endpoint, out)
}

func (s *DetectorService) do(req *http.Request, endpoint string, out interface{}) error {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	start := time.Now()

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Detector %s request %s failed: %v", endpoint, requestID, err)
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read %s response: %w", ErrUnreachable, endpoint, err)
	}
	s.logger.Info("Detector %s request %s: %d in %s", endpoint, requestID, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		return &RemoteError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: envelope.Error}
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return &RemoteError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadResponse, endpoint, err)
	}
	return nil
}
