// Package severity maps detector confidence to repair tiers and holds the
// colour palette shared by every view that draws a tier.
package severity

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"potholewatch/internal/model"
)

const (
	criticalThreshold = 0.85
	highThreshold     = 0.70
	mediumThreshold   = 0.50
)

// Classify maps a confidence score to a tier. Values outside [0,1] are
// compared literally.
func Classify(confidence float64) model.Severity {
	switch {
	case confidence > criticalThreshold:
		return model.SeverityCritical
	case confidence > highThreshold:
		return model.SeverityHigh
	case confidence > mediumThreshold:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// Resolve returns the server-supplied tier when it is a known value and
// derives one from the confidence otherwise.
func Resolve(d model.Detection) model.Severity {
	if d.Severity.Valid() {
		return d.Severity
	}
	return Classify(d.Confidence)
}

// Rank orders tiers from low (0) to critical (3); unknown tiers rank -1.
func Rank(s model.Severity) int {
	switch s {
	case model.SeverityLow:
		return 0
	case model.SeverityMedium:
		return 1
	case model.SeverityHigh:
		return 2
	case model.SeverityCritical:
		return 3
	}
	return -1
}

// Collapse folds critical into high for three-tier views.
func Collapse(s model.Severity) model.Severity {
	if s == model.SeverityCritical {
		return model.SeverityHigh
	}
	return s
}

// IsHigh reports whether the tier counts as high severity in summaries.
func IsHigh(s model.Severity) bool {
	return Collapse(s) == model.SeverityHigh
}

var (
	tierHex = map[model.Severity]string{
		model.SeverityCritical: "#e74c3c",
		model.SeverityHigh:     "#e67e22",
		model.SeverityMedium:   "#f39c12",
		model.SeverityLow:      "#3498db",
	}
	// high in the three-tier view takes the critical red.
	chartHex = map[model.Severity]string{
		model.SeverityHigh:   "#e74c3c",
		model.SeverityMedium: "#f39c12",
		model.SeverityLow:    "#3498db",
	}
)

// Color returns the canonical colour for a tier.
func Color(s model.Severity) color.RGBA {
	hex, ok := tierHex[s]
	if !ok {
		hex = tierHex[model.SeverityLow]
	}
	return MustRGBA(hex)
}

// ChartColor returns the three-tier chart colour for a tier.
func ChartColor(s model.Severity) color.RGBA {
	return MustRGBA(chartHex[Collapse(s)])
}

// Hex returns the canonical hex string for a tier, as used by the legend.
func Hex(s model.Severity) string {
	return tierHex[s]
}

// MustRGBA parses a #rrggbb string into an opaque colour.
func MustRGBA(hex string) color.RGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		panic(err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// WithAlpha returns c as a non-premultiplied colour with alpha a.
func WithAlpha(c color.RGBA, a uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: a}
}
