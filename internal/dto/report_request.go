package dto

import "potholewatch/internal/model"

// CreateReportRequest files a report for the workspace frame. Latitude and
// Longitude are both set or both absent.
type CreateReportRequest struct {
	Workspace string   `json:"workspace,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Location returns the request location, or nil when none was sent.
func (r CreateReportRequest) Location() *model.Location {
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	return &model.Location{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

type StatusRequest struct {
	Status string `json:"status"`
}

// ReportsData is the report list response.
type ReportsData struct {
	Reports []model.Report `json:"reports"`
	Length  int            `json:"length"`
	Filter  string         `json:"filter"`
}
