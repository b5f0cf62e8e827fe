package model

import (
	"errors"
	"fmt"
	"time"
)

// Status is the repair state of a municipality report.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// ErrUnknownStatus is returned for status values outside Statuses.
var ErrUnknownStatus = errors.New("unknown report status")

// Statuses lists every report state in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// ParseStatus validates a wire value.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownStatus, s)
}

// Location is a GPS fix in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultLocation is used when the reporter has no GPS fix (New York City).
var DefaultLocation = Location{Latitude: 40.7128, Longitude: -74.0060}

// Report is a municipality work item created from one analysis.
type Report struct {
	ID                string      `json:"id"`
	Date              time.Time   `json:"date"`
	Location          Location    `json:"location"`
	Detections        []Detection `json:"detections"`
	Status            Status      `json:"status"`
	AvgConfidence     string      `json:"avgConfidence"`
	PotholesCount     int         `json:"potholesCount"`
	HighSeverityCount int         `json:"highSeverityCount"`
	Image             string      `json:"image,omitempty"`
}

// ReportPatch holds the mutable fields of a report. Nil means unchanged.
type ReportPatch struct {
	Status *Status `json:"status,omitempty"`
}

// Apply returns r with the patch applied.
func (p ReportPatch) Apply(r Report) Report {
	if p.Status != nil {
		r.Status = *p.Status
	}
	return r
}
