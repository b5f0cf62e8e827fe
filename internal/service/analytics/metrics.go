package analytics

import (
	"fmt"

	"potholewatch/internal/model"
	"potholewatch/internal/service/severity"
)

// Metrics are the figures shown next to one analyzed frame and copied into
// reports created from it.
type Metrics struct {
	AvgConfidence     string `json:"avgConfidence"`
	PotholesFound     int    `json:"potholesFound"`
	HighSeverityCount int    `json:"highSeverityCount"`
}

// MetricsOf computes frame metrics. HighSeverityCount includes critical.
func MetricsOf(detections []model.Detection) Metrics {
	var total float64
	m := Metrics{PotholesFound: len(detections)}
	for _, d := range detections {
		total += d.Confidence
		if severity.IsHigh(severity.Resolve(d)) {
			m.HighSeverityCount++
		}
	}
	avg := 0.0
	if len(detections) > 0 {
		avg = total / float64(len(detections))
	}
	m.AvgConfidence = fmt.Sprintf("%.1f%%", avg*100)
	return m
}
