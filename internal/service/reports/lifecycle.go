package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	pkgerrors "github.com/pkg/errors"
	"github.com/samber/lo"

	"potholewatch/internal/logger"
	"potholewatch/internal/model"
	"potholewatch/internal/repository"
	"potholewatch/internal/service/analytics"
	"potholewatch/internal/service/dataurl"
)

// FilterAll lists every report regardless of status.
const FilterAll = "all"

// Event types pushed to live listeners.
const (
	EventCreated       = "report.created"
	EventStatusChanged = "report.status"
)

// ErrNoDetections is returned when a report is requested for an empty frame.
var ErrNoDetections = errors.New("no potholes to report")

// Notifier receives serialized report events.
type Notifier interface {
	Broadcast(message []byte)
}

// Event is the live feed payload. The snapshot image is left out.
type Event struct {
	Type   string       `json:"type"`
	Report model.Report `json:"report"`
}

// Draft is what a report is created from.
type Draft struct {
	Detections []model.Detection
	// Location is nil when the reporter had no GPS fix.
	Location *model.Location
	// Snapshot is the annotated frame; nil leaves the report without an image.
	Snapshot image.Image
}

// Stats counts reports per status.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// Service runs the report lifecycle: creation from a frame, operator status
// changes and listing.
type Service struct {
	repo     repository.ReportRepository
	clock    clock.Clock
	notifier Notifier
	logger   *logger.Logger

	mu     sync.Mutex
	lastID int64
}

// NewService creates a Service. notifier may be nil.
func NewService(repo repository.ReportRepository, clk clock.Clock, notifier Notifier, logger *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		clock:    clk,
		notifier: notifier,
		logger:   logger,
	}
}

// nextID returns report_<epoch millis>, bumped past the previous id when two
// reports are created within the same millisecond.
func (s *Service) nextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := s.clock.Now().UnixMilli()
	if ms <= s.lastID {
		ms = s.lastID + 1
	}
	s.lastID = ms
	return fmt.Sprintf("report_%d", ms)
}

// Create stores a pending report built from d.
func (s *Service) Create(d Draft) (model.Report, error) {
	if len(d.Detections) == 0 {
		return model.Report{}, ErrNoDetections
	}

	location := model.DefaultLocation
	if d.Location != nil {
		location = *d.Location
	}
	metrics := analytics.MetricsOf(d.Detections)

	report := model.Report{
		ID:                s.nextID(),
		Date:              s.clock.Now().UTC(),
		Location:          location,
		Detections:        model.CloneDetections(d.Detections),
		Status:            model.StatusPending,
		AvgConfidence:     metrics.AvgConfidence,
		PotholesCount:     metrics.PotholesFound,
		HighSeverityCount: metrics.HighSeverityCount,
	}
	if d.Snapshot != nil {
		img, err := dataurl.EncodeJPEG(d.Snapshot, dataurl.JPEGQuality)
		if err != nil {
			return model.Report{}, pkgerrors.Wrap(err, "report snapshot")
		}
		report.Image = img
	}

	if err := s.repo.Append(report); err != nil {
		return model.Report{}, pkgerrors.Wrap(err, "failed to store report")
	}
	s.logger.Info("Report %s created: %d potholes, %d high severity", report.ID, report.PotholesCount, report.HighSeverityCount)
	s.notify(EventCreated, report)
	return report, nil
}

// SetStatus moves a report to status. Every transition is allowed, including
// reopening completed reports.
func (s *Service) SetStatus(id string, status model.Status) (model.Report, error) {
	if _, err := model.ParseStatus(string(status)); err != nil {
		return model.Report{}, err
	}
	report, err := s.repo.Update(id, model.ReportPatch{Status: &status})
	if err != nil {
		return model.Report{}, err
	}
	s.logger.Info("Report %s status -> %s", id, status)
	s.notify(EventStatusChanged, report)
	return report, nil
}

// Get returns one report.
func (s *Service) Get(id string) (model.Report, error) {
	return s.repo.GetByID(id)
}

// List returns reports newest first. filter is "all", "" or a status.
func (s *Service) List(filter string) ([]model.Report, error) {
	all, err := s.repo.All()
	if err != nil {
		return nil, err
	}
	if filter != "" && filter != FilterAll {
		status, err := model.ParseStatus(filter)
		if err != nil {
			return nil, err
		}
		all = lo.Filter(all, func(r model.Report, _ int) bool { return r.Status == status })
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })
	return all, nil
}

// Stats counts stored reports per status.
func (s *Service) Stats() (Stats, error) {
	all, err := s.repo.All()
	if err != nil {
		return Stats{}, err
	}
	counts := lo.CountValuesBy(all, func(r model.Report) model.Status { return r.Status })
	return Stats{
		Total:      len(all),
		Pending:    counts[model.StatusPending],
		InProgress: counts[model.StatusInProgress],
		Completed:  counts[model.StatusCompleted],
	}, nil
}

func (s *Service) notify(kind string, r model.Report) {
	if s.notifier == nil {
		return
	}
	r.Image = ""
	msg, err := json.Marshal(Event{Type: kind, Report: r})
	if err != nil {
		s.logger.Error("Failed to encode %s event: %v", kind, err)
		return
	}
	s.notifier.Broadcast(msg)
}
