// Package export turns an export document from the detector backend into a
// downloadable file.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"potholewatch/internal/service/ai"
)

// Supported formats.
const (
	FormatJSON  = "json"
	FormatExcel = "excel"
)

var csvHeader = []string{"Timestamp", "Latitude", "Longitude", "Class", "Confidence", "Severity"}

// File is a rendered export ready to be served as an attachment.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// ValidFormat reports whether format is one of the supported export formats.
func ValidFormat(format string) bool {
	return format == FormatJSON || format == FormatExcel
}

// Render encodes doc in format.
func Render(doc *ai.ExportResult, format string) (*File, error) {
	switch format {
	case FormatJSON:
		body, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		return &File{Name: "pothole-detection.json", ContentType: "application/json", Body: body}, nil
	case FormatExcel:
		body, err := CSV(doc)
		if err != nil {
			return nil, err
		}
		return &File{Name: "pothole-detection.csv", ContentType: "text/csv", Body: body}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// CSV writes one row per detection, every row repeating the document
// timestamp and location. A missing severity is written as N/A.
func CSV(doc *ai.ExportResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	lat := formatFloat(doc.Location.Latitude)
	lng := formatFloat(doc.Location.Longitude)
	for _, d := range doc.Detections {
		sev := string(d.Severity)
		if sev == "" {
			sev = "N/A"
		}
		if err := w.Write([]string{doc.Timestamp, lat, lng, d.Class, formatFloat(d.Confidence), sev}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
