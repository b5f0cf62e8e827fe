package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Severity is the repair urgency tier attached to a detection.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Valid reports whether s is one of the four known tiers.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// BBox is an axis-aligned box in pixel space. On the wire it is a
// [x, y, width, height] array.
type BBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// MarshalJSON encodes the box as a 4-element array.
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X, b.Y, b.Width, b.Height})
}

// UnmarshalJSON decodes a 4-element array.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	if len(raw) != 4 {
		return fmt.Errorf("bbox: expected 4 values, got %d", len(raw))
	}
	b.X, b.Y, b.Width, b.Height = raw[0], raw[1], raw[2], raw[3]
	return nil
}

// Detection is one pothole returned by the detector. BBox is expressed in the
// original (un-scaled) image's pixels.
type Detection struct {
	BBox       BBox     `json:"bbox"`
	Confidence float64  `json:"confidence"`
	Class      string   `json:"class,omitempty"`
	Severity   Severity `json:"severity,omitempty"`
	Area       int      `json:"area,omitempty"`
}

// DetectionResult is one capture-and-analyze event as kept in the history log.
type DetectionResult struct {
	Timestamp  time.Time   `json:"timestamp"`
	Count      int         `json:"count"`
	Detections []Detection `json:"detections"`
}

// NewDetectionResult builds a history entry owning its own copy of detections.
func NewDetectionResult(ts time.Time, detections []Detection) DetectionResult {
	return DetectionResult{
		Timestamp:  ts,
		Count:      len(detections),
		Detections: CloneDetections(detections),
	}
}

// CloneDetections returns a copy that shares no memory with ds. A nil input
// yields an empty, non-nil slice so it encodes as [].
func CloneDetections(ds []Detection) []Detection {
	out := make([]Detection, len(ds))
	copy(out, ds)
	return out
}
