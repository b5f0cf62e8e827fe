package reports

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"potholewatch/internal/model"
	"potholewatch/internal/service/render"
	"potholewatch/internal/service/severity"
)

const (
	mapMargin    = 30
	gridSpacing  = 50
	pointRadius  = 8
	legendWidth  = 150
	legendHeight = 50
)

// EmptyMapText is painted when there are no reports.
const EmptyMapText = "No pothole reports to display"

var (
	mapBackground = severity.MustRGBA("#f5f1e8")
	mapGrid       = severity.MustRGBA("#d4c5a9")
	mapText       = severity.MustRGBA("#333333")
	mapEmptyText  = severity.MustRGBA("#666666")
	legendBorder  = severity.MustRGBA("#D4AF37")

	statusHex = map[model.Status]string{
		model.StatusPending:    "#e74c3c",
		model.StatusInProgress: "#f39c12",
		model.StatusCompleted:  "#27ae60",
	}
	unknownStatusHex = "#3498db"

	legendEntries = []struct {
		status model.Status
		label  string
	}{
		{model.StatusPending, "Pending"},
		{model.StatusInProgress, "In Progress"},
		{model.StatusCompleted, "Completed"},
	}
)

// StatusHex returns the map colour for a status.
func StatusHex(s model.Status) string {
	if hex, ok := statusHex[s]; ok {
		return hex
	}
	return unknownStatusHex
}

// Point is one report placed on the map canvas.
type Point struct {
	ReportID string  `json:"reportId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Color    string  `json:"color"`
}

// Project min-max normalizes report coordinates into a width x height canvas
// with a fixed margin, north up. When every report shares a latitude or
// longitude the range is taken as 1 and the points sit on the top or left edge.
func Project(reports []model.Report, width, height int) []Point {
	if len(reports) == 0 {
		return []Point{}
	}
	minLat, maxLat := reports[0].Location.Latitude, reports[0].Location.Latitude
	minLng, maxLng := reports[0].Location.Longitude, reports[0].Location.Longitude
	for _, r := range reports[1:] {
		minLat = min(minLat, r.Location.Latitude)
		maxLat = max(maxLat, r.Location.Latitude)
		minLng = min(minLng, r.Location.Longitude)
		maxLng = max(maxLng, r.Location.Longitude)
	}
	latRange := maxLat - minLat
	if latRange == 0 {
		latRange = 1
	}
	lngRange := maxLng - minLng
	if lngRange == 0 {
		lngRange = 1
	}

	innerW := float64(width - 2*mapMargin)
	innerH := float64(height - 2*mapMargin)
	points := make([]Point, len(reports))
	for i, r := range reports {
		points[i] = Point{
			ReportID: r.ID,
			X:        (r.Location.Longitude-minLng)/lngRange*innerW + mapMargin,
			Y:        (maxLat-r.Location.Latitude)/latRange*innerH + mapMargin,
			Color:    StatusHex(r.Status),
		}
	}
	return points
}

// RenderMap paints the synthetic map: a grid, one numbered marker per report
// and a status legend.
func RenderMap(reports []model.Report, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	dc := gg.NewContextForRGBA(img)
	dc.SetColor(mapBackground)
	dc.Clear()

	dc.SetColor(mapGrid)
	dc.SetLineWidth(1)
	for x := 0; x < width; x += gridSpacing {
		dc.DrawLine(float64(x), 0, float64(x), float64(height))
		dc.Stroke()
	}
	for y := 0; y < height; y += gridSpacing {
		dc.DrawLine(0, float64(y), float64(width), float64(y))
		dc.Stroke()
	}

	if len(reports) == 0 {
		dc.SetColor(mapEmptyText)
		dc.SetFontFace(render.Face(16, false))
		dc.DrawStringAnchored(EmptyMapText, float64(width)/2, float64(height)/2, 0.5, 0.5)
		return img
	}

	labelFace := render.Face(10, true)
	for i, p := range Project(reports, width, height) {
		dc.DrawCircle(p.X, p.Y, pointRadius)
		dc.SetColor(severity.MustRGBA(p.Color))
		dc.FillPreserve()
		dc.SetColor(color.White)
		dc.SetLineWidth(2)
		dc.Stroke()

		dc.SetColor(mapText)
		dc.SetFontFace(labelFace)
		dc.DrawStringAnchored(fmt.Sprintf("#%d", i+1), p.X, p.Y-12, 0.5, 0)
	}

	drawLegend(dc, height)
	return img
}

func drawLegend(dc *gg.Context, height int) {
	x, y := 10.0, float64(height-60)
	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 230})
	dc.DrawRectangle(x, y, legendWidth, legendHeight)
	dc.Fill()
	dc.SetColor(legendBorder)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x, y, legendWidth, legendHeight)
	dc.Stroke()

	dc.SetFontFace(render.Face(11, false))
	for i, entry := range legendEntries {
		cy := y + 15 + float64(i)*15
		dc.SetColor(severity.MustRGBA(StatusHex(entry.status)))
		dc.DrawCircle(x+15, cy, 5)
		dc.Fill()
		dc.SetColor(mapText)
		dc.DrawString(entry.label, x+25, cy+4)
	}
}
