package analytics

import (
	"bytes"
	"image/color"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"potholewatch/internal/model"
	"potholewatch/internal/service/dataurl"
	"potholewatch/internal/service/render"
	"potholewatch/internal/service/severity"
)

// NoDataText is painted instead of a chart when every value is zero.
const NoDataText = "No data"

var (
	detectedColor = severity.MustRGBA("#D4AF37")
	repairedColor = severity.MustRGBA("#27ae60")
	placeholderBg = severity.MustRGBA("#f5f1e8")
	placeholderFg = severity.MustRGBA("#7f8c8d")
)

// TrendChart renders the detected and repaired series as a PNG line chart.
func TrendChart(t Trend, width, height int) ([]byte, error) {
	if lo.Sum(t.Detected) == 0 && lo.Sum(t.Repaired) == 0 {
		return dataurl.PNG(render.Message(width, height, placeholderBg, placeholderFg, NoDataText))
	}

	p := plot.New()
	p.Title.Text = "Detected vs repaired"
	p.Y.Label.Text = "Potholes"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	for _, s := range []struct {
		name   string
		values []int
		color  color.Color
	}{
		{"Detected", t.Detected, detectedColor},
		{"Repaired", t.Repaired, repairedColor},
	} {
		line, err := plotter.NewLine(toXYs(s.values))
		if err != nil {
			return nil, errors.Wrapf(err, "trend line %s", s.name)
		}
		line.Color = s.color
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true
	p.NominalX(t.Labels...)

	return encode(p, width, height)
}

// SeverityChart renders the breakdown as a three-bar PNG chart.
func SeverityChart(b Breakdown, width, height int) ([]byte, error) {
	values := b.Values()
	if lo.Sum(values) == 0 {
		return dataurl.PNG(render.Message(width, height, placeholderBg, placeholderFg, NoDataText))
	}

	p := plot.New()
	p.Title.Text = "Severity distribution"
	p.Y.Label.Text = "Potholes"
	p.Y.Min = 0

	tiers := []model.Severity{model.SeverityHigh, model.SeverityMedium, model.SeverityLow}
	for i, tier := range tiers {
		bars, err := plotter.NewBarChart(plotter.Values{float64(values[i])}, vg.Points(40))
		if err != nil {
			return nil, errors.Wrapf(err, "severity bar %s", tier)
		}
		bars.XMin = float64(i)
		bars.Color = severity.ChartColor(tier)
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.NominalX("High Severity", "Medium Severity", "Low Severity")

	return encode(p, width, height)
}

func toXYs(values []int) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i)
		pts[i].Y = float64(v)
	}
	return pts
}

// pixels converts a pixel count to a length at the default 96 DPI of the png backend.
func pixels(n int) vg.Length {
	return vg.Length(n) * vg.Inch / 96
}

func encode(p *plot.Plot, width, height int) ([]byte, error) {
	w, err := p.WriterTo(pixels(width), pixels(height), "png")
	if err != nil {
		return nil, errors.Wrap(err, "chart writer")
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "chart encode")
	}
	return buf.Bytes(), nil
}
