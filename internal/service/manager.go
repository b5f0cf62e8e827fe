package service

import (
	"context"
	"image"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"potholewatch/internal/config"
	"potholewatch/internal/logger"
	"potholewatch/internal/model"
	"potholewatch/internal/repository"
	"potholewatch/internal/service/ai"
	"potholewatch/internal/service/analytics"
	"potholewatch/internal/service/dataurl"
	"potholewatch/internal/service/export"
	"potholewatch/internal/service/geometry"
	"potholewatch/internal/service/heatmap"
	"potholewatch/internal/service/render"
	"potholewatch/internal/service/reports"
	"potholewatch/internal/service/websocket"
)

const (
	// DefaultWorkspace is used when a request names none.
	DefaultWorkspace = "default"
	// DefaultMaxWorkspaces caps live workspaces when the config sets no limit.
	DefaultMaxWorkspaces = 64
)

var (
	// ErrUnknownFormat is returned for export formats other than json and excel.
	ErrUnknownFormat = errors.New("unknown export format")
	// ErrWorkspaceLimit is returned when a new workspace is needed but every
	// live one is busy.
	ErrWorkspaceLimit = errors.New("too many active workspaces")
)

// Detector is the remote backend as the manager uses it. *ai.DetectorService
// satisfies it.
type Detector interface {
	heatmap.Generator
	Detect(ctx context.Context, imageDataURL string) ([]model.Detection, error)
	Export(ctx context.Context, detections []model.Detection, gps *ai.GPS, format string) (*ai.ExportResult, error)
	Status(ctx context.Context) (*ai.Status, error)
}

// Analysis is the result of one analyzed frame.
type Analysis struct {
	Detections []model.Detection `json:"detections"`
	Count      int               `json:"count"`
	Metrics    analytics.Metrics `json:"metrics"`
	Image      string            `json:"image"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
}

// HeatmapView is the canvas after a heatmap was blended in.
type HeatmapView struct {
	Image string          `json:"image"`
	Stats ai.HeatmapStats `json:"stats"`
	Mode  string          `json:"mode"`
}

// workspace is the server-side stand-in for one browser canvas. Its mutex is
// held for the whole of every operation, remote calls included.
type workspace struct {
	mu       sync.Mutex
	canvas   *render.Canvas
	retired  bool   // set under mu once the workspace left the map
	lastUsed uint64 // guarded by Manager.mu
}

// Manager ties the detector, the canvas pipeline and the stores together.
type Manager struct {
	detector    Detector
	renderer    *render.Renderer
	compositor  *heatmap.Compositor
	history     repository.HistoryRepository
	reports     *reports.Service
	preferences repository.PreferenceRepository
	hub         *websocket.HubService
	clock       clock.Clock
	logger      *logger.Logger

	maxWidth      float64
	maxHeight     float64
	maxPixels     int
	maxWorkspaces int

	mu         sync.Mutex
	tick       uint64
	workspaces map[string]*workspace
}

func NewManager(detector Detector, history repository.HistoryRepository, reportService *reports.Service,
	preferences repository.PreferenceRepository, hub *websocket.HubService, clk clock.Clock,
	cfg *config.Config, logger *logger.Logger) *Manager {
	renderer := render.NewRenderer()
	maxPixels := cfg.MaxImagePixels
	if maxPixels <= 0 {
		maxPixels = dataurl.DefaultMaxPixels
	}
	maxWorkspaces := cfg.MaxWorkspaces
	if maxWorkspaces <= 0 {
		maxWorkspaces = DefaultMaxWorkspaces
	}
	return &Manager{
		detector:      detector,
		renderer:      renderer,
		compositor:    heatmap.NewCompositor(detector, renderer),
		history:       history,
		reports:       reportService,
		preferences:   preferences,
		hub:           hub,
		clock:         clk,
		logger:        logger,
		maxWidth:      float64(cfg.MaxDisplayWidth),
		maxHeight:     float64(cfg.MaxDisplayHeight),
		maxPixels:     maxPixels,
		maxWorkspaces: maxWorkspaces,
		workspaces:    make(map[string]*workspace),
	}
}

func (m *Manager) GetReportService() *reports.Service {
	return m.reports
}

func (m *Manager) GetPreferences() repository.PreferenceRepository {
	return m.preferences
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}

func workspaceName(id string) string {
	if id == "" {
		return DefaultWorkspace
	}
	return id
}

// acquire returns the named workspace with its mutex held. Unless create is
// set an unknown name yields nil. The caller unlocks ws.mu.
func (m *Manager) acquire(id string, create bool) (*workspace, error) {
	name := workspaceName(id)
	for {
		ws, err := m.lookup(name, create)
		if ws == nil || err != nil {
			return nil, err
		}
		ws.mu.Lock()
		if !ws.retired {
			return ws, nil
		}
		// reset or evicted while we waited
		ws.mu.Unlock()
	}
}

func (m *Manager) lookup(name string, create bool) (*workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick++
	if ws, ok := m.workspaces[name]; ok {
		ws.lastUsed = m.tick
		return ws, nil
	}
	if !create {
		return nil, nil
	}
	if len(m.workspaces) >= m.maxWorkspaces && !m.evictIdle() {
		return nil, errors.Wrapf(ErrWorkspaceLimit, "limit %d", m.maxWorkspaces)
	}
	ws := &workspace{canvas: render.NewCanvas(), lastUsed: m.tick}
	m.workspaces[name] = ws
	return ws, nil
}

// evictIdle drops the least recently used workspace no operation is holding.
// m.mu must be held.
func (m *Manager) evictIdle() bool {
	names := make([]string, 0, len(m.workspaces))
	for name := range m.workspaces {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return m.workspaces[names[i]].lastUsed < m.workspaces[names[j]].lastUsed
	})
	for _, name := range names {
		ws := m.workspaces[name]
		if !ws.mu.TryLock() {
			continue
		}
		ws.canvas.Clear()
		ws.retired = true
		delete(m.workspaces, name)
		ws.mu.Unlock()
		m.logger.Info("Evicted idle workspace %q", name)
		return true
	}
	return false
}

// WorkspaceCount returns the number of live workspaces.
func (m *Manager) WorkspaceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// AnalyzeDataURL decodes imageDataURL locally, sends it to the detector and
// paints the result on the workspace canvas. A malformed, empty or oversized
// image fails before any remote call.
func (m *Manager) AnalyzeDataURL(ctx context.Context, workspaceID, imageDataURL string) (*Analysis, error) {
	img, err := dataurl.DecodeWithin(imageDataURL, m.maxPixels)
	if err != nil {
		return nil, err
	}
	return m.analyze(ctx, workspaceID, img, imageDataURL)
}

// AnalyzeImage is AnalyzeDataURL for an already decoded frame.
func (m *Manager) AnalyzeImage(ctx context.Context, workspaceID string, img image.Image) (*Analysis, error) {
	b := img.Bounds()
	if err := dataurl.CheckSize(b.Dx(), b.Dy(), m.maxPixels); err != nil {
		return nil, err
	}
	encoded, err := dataurl.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return m.analyze(ctx, workspaceID, img, encoded)
}

func (m *Manager) analyze(ctx context.Context, workspaceID string, img image.Image, imageDataURL string) (*Analysis, error) {
	ws, err := m.acquire(workspaceID, true)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	detections, err := m.detector.Detect(ctx, imageDataURL)
	if err != nil {
		m.logger.Error("Detection failed: %v", err)
		return nil, errors.Wrap(err, "detection failed")
	}

	if err := m.history.Append(model.NewDetectionResult(m.clock.Now().UTC(), detections)); err != nil {
		// the frame is still shown; only the statistics miss it
		m.logger.Warning("Failed to record detection history: %v", err)
	}

	b := img.Bounds()
	fit := geometry.FitWithin(b.Dx(), b.Dy(), m.maxWidth, m.maxHeight)
	m.renderer.Render(ws.canvas, img, detections, fit)

	rendered, err := dataurl.EncodePNG(ws.canvas.Image())
	if err != nil {
		return nil, err
	}
	size := fit.Size()
	m.logger.Info("Analyzed %dx%d frame: %d potholes", b.Dx(), b.Dy(), len(detections))
	return &Analysis{
		Detections: model.CloneDetections(detections),
		Count:      len(detections),
		Metrics:    analytics.MetricsOf(detections),
		Image:      rendered,
		Width:      size.X,
		Height:     size.Y,
	}, nil
}

// Heatmap blends a remote heatmap over the workspace's original frame.
func (m *Manager) Heatmap(ctx context.Context, workspaceID string) (*HeatmapView, error) {
	ws, err := m.acquire(workspaceID, false)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, render.ErrBlankCanvas
	}
	defer ws.mu.Unlock()

	stats, err := m.compositor.Show(ctx, ws.canvas)
	if err != nil {
		return nil, err
	}
	img, err := dataurl.EncodePNG(ws.canvas.Image())
	if err != nil {
		return nil, err
	}
	return &HeatmapView{Image: img, Stats: stats, Mode: ws.canvas.Mode().String()}, nil
}

// ResetHeatmap restores the annotated frame and returns it as a PNG data URL.
func (m *Manager) ResetHeatmap(workspaceID string) (string, error) {
	ws, err := m.acquire(workspaceID, false)
	if err != nil {
		return "", err
	}
	if ws == nil {
		return "", render.ErrBlankCanvas
	}
	defer ws.mu.Unlock()

	if err := m.compositor.Reset(ws.canvas); err != nil {
		return "", err
	}
	return dataurl.EncodePNG(ws.canvas.Image())
}

// CanvasPNG returns the workspace's current pixels.
func (m *Manager) CanvasPNG(workspaceID string) ([]byte, error) {
	ws, err := m.acquire(workspaceID, false)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, render.ErrBlankCanvas
	}
	defer ws.mu.Unlock()

	if ws.canvas.Mode() == render.ModeBlank {
		return nil, render.ErrBlankCanvas
	}
	return dataurl.PNG(ws.canvas.Image())
}

// ResetWorkspace drops the live detections and the canvas and forgets the
// workspace.
func (m *Manager) ResetWorkspace(workspaceID string) {
	ws, _ := m.acquire(workspaceID, false)
	if ws == nil {
		return
	}
	defer ws.mu.Unlock()

	ws.canvas.Clear()
	ws.retired = true
	name := workspaceName(workspaceID)
	m.mu.Lock()
	if m.workspaces[name] == ws {
		delete(m.workspaces, name)
	}
	m.mu.Unlock()
}

// Report files a municipality report for the frame currently on the canvas.
// location may be nil.
func (m *Manager) Report(workspaceID string, location *model.Location) (model.Report, error) {
	ws, err := m.acquire(workspaceID, false)
	if err != nil {
		return model.Report{}, err
	}
	draft := reports.Draft{Location: location}
	if ws == nil {
		return m.reports.Create(draft)
	}
	defer ws.mu.Unlock()

	draft.Detections = ws.canvas.Detections()
	if ws.canvas.Mode() != render.ModeBlank {
		draft.Snapshot = ws.canvas.Snapshot()
	}
	return m.reports.Create(draft)
}

// Export packages the live detections through the backend and renders them as
// a downloadable file.
func (m *Manager) Export(ctx context.Context, workspaceID, format string, gps *ai.GPS) (*export.File, error) {
	if !export.ValidFormat(format) {
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
	ws, err := m.acquire(workspaceID, false)
	if err != nil {
		return nil, err
	}
	detections := []model.Detection{}
	if ws != nil {
		defer ws.mu.Unlock()
		detections = ws.canvas.Detections()
	}

	doc, err := m.detector.Export(ctx, detections, gps, format)
	if err != nil {
		return nil, errors.Wrap(err, "export failed")
	}
	return export.Render(doc, format)
}

// Status probes the detector backend.
func (m *Manager) Status(ctx context.Context) (*ai.Status, error) {
	return m.detector.Status(ctx)
}

// Summary folds the whole detection history.
func (m *Manager) Summary() (analytics.Summary, error) {
	history, err := m.history.All()
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Summarize(history), nil
}

// Dashboard aggregates stored reports over r, relative to now.
func (m *Manager) Dashboard(r analytics.Range) (analytics.Dashboard, error) {
	all, err := m.reports.List(reports.FilterAll)
	if err != nil {
		return analytics.Dashboard{}, err
	}
	return analytics.DashboardOf(all, r, m.clock.Now()), nil
}
