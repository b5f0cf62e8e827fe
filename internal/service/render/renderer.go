package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"

	"potholewatch/internal/model"
	"potholewatch/internal/service/geometry"
	"potholewatch/internal/service/severity"
)

const (
	fillAlpha     = 0x22
	borderWidth   = 4
	innerWidth    = 2
	innerInset    = 2
	labelHeight   = 35
	minLabelWidth = 120
	cornerLength  = 12
	cornerWidth   = 3

	panelWidth  = 200
	panelHeight = 80
	panelMargin = 15
	barWidth    = 180
	barHeight   = 6
)

var (
	panelBackground = color.NRGBA{R: 10, G: 17, B: 40, A: 217}
	panelBorder     = severity.MustRGBA("#D4AF37")
	panelText       = severity.MustRGBA("#f5f5f5")
	barTrack        = color.NRGBA{R: 212, G: 175, B: 55, A: 77}
	barStart        = severity.MustRGBA("#f5bf2b")
	barEnd          = severity.MustRGBA("#d08f1b")
)

// Renderer paints frames and detection overlays onto canvases.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render resizes the canvas to fit, paints base scaled into it and draws the
// overlay for detections. The canvas keeps its own copy of detections and any
// previous heatmap snapshot is discarded.
func (r *Renderer) Render(c *Canvas, base image.Image, detections []model.Detection, fit geometry.Fit) {
	size := fit.Size()
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	drawBase(img, base)
	// only the display-size frame is kept
	c.base = clone(img)
	r.Overlay(img, fit, detections)

	c.img = img
	c.fit = fit
	c.detections = model.CloneDetections(detections)
	c.original = nil
	c.mode = ModeAnnotated
}

// Overlay draws every detection box followed by the summary panel. Nothing is
// drawn for an empty slice.
func (r *Renderer) Overlay(dst *image.RGBA, fit geometry.Fit, detections []model.Detection) {
	if len(detections) == 0 {
		return
	}
	dc := gg.NewContextForRGBA(dst)
	labelFace := Face(13, true)
	detailFace := Face(11, false)

	for i, d := range detections {
		box := fit.ToDisplay(d.BBox)
		tier := severity.Resolve(d)
		col := severity.Color(tier)
		x, y, w, h := box.X, box.Y, box.Width, box.Height

		dc.SetColor(severity.WithAlpha(col, fillAlpha))
		dc.DrawRectangle(x, y, w, h)
		dc.Fill()

		dc.SetColor(col)
		dc.SetLineWidth(borderWidth)
		dc.DrawRectangle(x, y, w, h)
		dc.Stroke()

		dc.SetColor(color.White)
		dc.SetLineWidth(innerWidth)
		dc.DrawRectangle(x+innerInset, y+innerInset, w-2*innerInset, h-2*innerInset)
		dc.Stroke()

		// label band sits above the box unless it would leave the canvas
		labelY := y - labelHeight
		if labelY < 0 {
			labelY = y
		}
		bandWidth := math.Max(w, minLabelWidth)
		grad := gg.NewLinearGradient(x, labelY, x, labelY+labelHeight)
		grad.AddColorStop(0, col)
		grad.AddColorStop(1, severity.WithAlpha(col, 0xdd))
		dc.SetFillStyle(grad)
		dc.DrawRectangle(x, labelY, bandWidth, labelHeight)
		dc.Fill()

		dc.SetColor(color.White)
		dc.SetFontFace(labelFace)
		dc.DrawString(fmt.Sprintf("#%d %s", i+1, strings.ToUpper(string(tier))), x+8, labelY+15)
		dc.SetFontFace(detailFace)
		dc.DrawString(fmt.Sprintf("%.1f%% confidence", d.Confidence*100), x+8, labelY+29)

		dc.SetColor(col)
		for _, rect := range corners(x, y, w, h) {
			dc.DrawRectangle(rect[0], rect[1], rect[2], rect[3])
			dc.Fill()
		}
	}

	r.drawSummary(dc, dst.Bounds().Dx(), detections)
}

func corners(x, y, w, h float64) [][4]float64 {
	return [][4]float64{
		{x, y, cornerLength, cornerWidth},
		{x, y, cornerWidth, cornerLength},
		{x + w - cornerLength, y, cornerLength, cornerWidth},
		{x + w - cornerWidth, y, cornerWidth, cornerLength},
		{x, y + h - cornerWidth, cornerLength, cornerWidth},
		{x, y + h - cornerLength, cornerWidth, cornerLength},
		{x + w - cornerLength, y + h - cornerWidth, cornerLength, cornerWidth},
		{x + w - cornerWidth, y + h - cornerLength, cornerWidth, cornerLength},
	}
}

func (r *Renderer) drawSummary(dc *gg.Context, canvasWidth int, detections []model.Detection) {
	confidences := lo.Map(detections, func(d model.Detection, _ int) float64 { return d.Confidence })
	mean, err := stats.Mean(confidences)
	if err != nil {
		mean = 0
	}

	px := float64(canvasWidth) - panelWidth - panelMargin
	py := float64(panelMargin)

	dc.SetColor(panelBackground)
	dc.DrawRectangle(px, py, panelWidth, panelHeight)
	dc.Fill()
	dc.SetColor(panelBorder)
	dc.SetLineWidth(2)
	dc.DrawRectangle(px, py, panelWidth, panelHeight)
	dc.Stroke()

	dc.SetColor(panelText)
	dc.SetFontFace(Face(14, true))
	dc.DrawString("Detection Summary", px+10, py+20)
	dc.SetFontFace(Face(12, false))
	dc.DrawString(fmt.Sprintf("Total: %d potholes", len(detections)), px+10, py+40)
	dc.DrawString(fmt.Sprintf("Avg Confidence: %.1f%%", mean*100), px+10, py+58)

	bx, by := px+10, py+65
	dc.SetColor(barTrack)
	dc.DrawRectangle(bx, by, barWidth, barHeight)
	dc.Fill()

	filled := barWidth * math.Min(math.Max(mean, 0), 1)
	if filled > 0 {
		grad := gg.NewLinearGradient(bx, by, bx+barWidth, by)
		grad.AddColorStop(0, barStart)
		grad.AddColorStop(1, barEnd)
		dc.SetFillStyle(grad)
		dc.DrawRectangle(bx, by, filled, barHeight)
		dc.Fill()
	}
}
