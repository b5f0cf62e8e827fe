package reports

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"potholewatch/internal/logger"
	"potholewatch/internal/model"
	"potholewatch/internal/repository"
	"potholewatch/internal/repository/jsonstore"
	"potholewatch/internal/repository/memory"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages [][]byte
}

func (n *recordingNotifier) Broadcast(message []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) events(t *testing.T) []Event {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Event, len(n.messages))
	for i, m := range n.messages {
		test.That(t, json.Unmarshal(m, &out[i]), test.ShouldBeNil)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *clock.Mock, *recordingNotifier) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC))
	notifier := &recordingNotifier{}
	svc := NewService(jsonstore.NewReportStore(memory.NewKeyValueStore()), mock, notifier, logger.NewNop())
	return svc, mock, notifier
}

var frame = []model.Detection{
	{BBox: model.BBox{X: 10, Y: 10, Width: 50, Height: 40}, Confidence: 0.9},
	{BBox: model.BBox{X: 100, Y: 10, Width: 50, Height: 40}, Confidence: 0.6},
	{BBox: model.BBox{X: 200, Y: 10, Width: 50, Height: 40}, Confidence: 0.3, Severity: model.SeverityHigh},
}

func TestCreate(t *testing.T) {
	svc, mock, notifier := newTestService(t)
	snapshot := image.NewRGBA(image.Rect(0, 0, 8, 8))
	snapshot.Set(1, 1, color.White)

	ds := append([]model.Detection(nil), frame...)
	r, err := svc.Create(Draft{Detections: ds, Snapshot: snapshot})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, r.ID, test.ShouldEqual, "report_1715767200000")
	test.That(t, r.Date.Equal(mock.Now()), test.ShouldBeTrue)
	test.That(t, r.Status, test.ShouldEqual, model.StatusPending)
	test.That(t, r.Location, test.ShouldResemble, model.DefaultLocation)
	test.That(t, r.AvgConfidence, test.ShouldEqual, "60.0%")
	test.That(t, r.PotholesCount, test.ShouldEqual, 3)
	test.That(t, r.HighSeverityCount, test.ShouldEqual, 2)
	test.That(t, strings.HasPrefix(r.Image, "data:image/jpeg;base64,"), test.ShouldBeTrue)

	// the stored snapshot does not follow later edits to the frame
	ds[0].Confidence = 0
	stored, err := svc.Get(r.ID)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stored.Detections[0].Confidence, test.ShouldEqual, 0.9)

	events := notifier.events(t)
	test.That(t, events, test.ShouldHaveLength, 1)
	test.That(t, events[0].Type, test.ShouldEqual, EventCreated)
	test.That(t, events[0].Report.ID, test.ShouldEqual, r.ID)
	test.That(t, events[0].Report.Image, test.ShouldBeEmpty)
}

func TestCreateWithLocation(t *testing.T) {
	svc, _, _ := newTestService(t)
	loc := model.Location{Latitude: 51.5, Longitude: -0.12}
	r, err := svc.Create(Draft{Detections: frame, Location: &loc})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Location, test.ShouldResemble, loc)
	test.That(t, r.Image, test.ShouldBeEmpty)
}

func TestCreateRefusesEmptyFrame(t *testing.T) {
	svc, _, notifier := newTestService(t)
	_, err := svc.Create(Draft{})
	test.That(t, errors.Is(err, ErrNoDetections), test.ShouldBeTrue)

	all, err := svc.List(FilterAll)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, all, test.ShouldHaveLength, 0)
	test.That(t, notifier.events(t), test.ShouldHaveLength, 0)
}

func TestIDsAreUniqueWithinOneMillisecond(t *testing.T) {
	svc, _, _ := newTestService(t)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		r, err := svc.Create(Draft{Detections: frame})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, seen[r.ID], test.ShouldBeFalse)
		seen[r.ID] = true
	}
}

func TestStatusTransitions(t *testing.T) {
	svc, _, notifier := newTestService(t)
	r, err := svc.Create(Draft{Detections: frame})
	test.That(t, err, test.ShouldBeNil)

	for _, next := range []model.Status{model.StatusInProgress, model.StatusCompleted, model.StatusPending, model.StatusCompleted} {
		updated, err := svc.SetStatus(r.ID, next)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, updated.Status, test.ShouldEqual, next)
		test.That(t, updated.PotholesCount, test.ShouldEqual, r.PotholesCount)
	}

	_, err = svc.SetStatus(r.ID, "closed")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = svc.SetStatus("report_missing", model.StatusCompleted)
	test.That(t, errors.Is(err, repository.ErrNotFound), test.ShouldBeTrue)

	events := notifier.events(t)
	test.That(t, events, test.ShouldHaveLength, 5)
	test.That(t, events[4].Type, test.ShouldEqual, EventStatusChanged)
	test.That(t, events[4].Report.Status, test.ShouldEqual, model.StatusCompleted)
}

func TestListAndStats(t *testing.T) {
	svc, mock, _ := newTestService(t)
	var ids []string
	for i := 0; i < 4; i++ {
		r, err := svc.Create(Draft{Detections: frame})
		test.That(t, err, test.ShouldBeNil)
		ids = append(ids, r.ID)
		mock.Add(time.Hour)
	}
	_, err := svc.SetStatus(ids[0], model.StatusCompleted)
	test.That(t, err, test.ShouldBeNil)
	_, err = svc.SetStatus(ids[2], model.StatusInProgress)
	test.That(t, err, test.ShouldBeNil)

	all, err := svc.List("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, []string{all[0].ID, all[1].ID, all[2].ID, all[3].ID}, test.ShouldResemble, []string{ids[3], ids[2], ids[1], ids[0]})

	pending, err := svc.List("pending")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pending, test.ShouldHaveLength, 2)
	test.That(t, pending[0].ID, test.ShouldEqual, ids[3])

	_, err = svc.List("archived")
	test.That(t, err, test.ShouldNotBeNil)

	stats, err := svc.Stats()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats, test.ShouldResemble, Stats{Total: 4, Pending: 2, InProgress: 1, Completed: 1})
}

func TestNilNotifier(t *testing.T) {
	svc := NewService(jsonstore.NewReportStore(memory.NewKeyValueStore()), clock.NewMock(), nil, logger.NewNop())
	_, err := svc.Create(Draft{Detections: frame})
	test.That(t, err, test.ShouldBeNil)
}
