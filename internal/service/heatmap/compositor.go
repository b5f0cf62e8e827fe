package heatmap

import (
	"context"
	"errors"
	"image"

	pkgerrors "github.com/pkg/errors"

	"potholewatch/internal/model"
	"potholewatch/internal/service/ai"
	"potholewatch/internal/service/dataurl"
	"potholewatch/internal/service/render"
)

// Opacity is the weight of the multiply blend.
const Opacity = 0.7

// ErrNoDetections is returned when a heatmap is requested for an empty frame.
var ErrNoDetections = errors.New("no detections available for heatmap")

// Generator produces heatmaps for a set of detections. *ai.DetectorService
// satisfies it.
type Generator interface {
	GenerateHeatmap(ctx context.Context, detections []model.Detection, width, height int) (*ai.HeatmapResult, error)
}

// Compositor layers remote heatmaps over a canvas and takes them off again.
type Compositor struct {
	generator Generator
	renderer  *render.Renderer
}

// NewCompositor creates a Compositor.
func NewCompositor(generator Generator, renderer *render.Renderer) *Compositor {
	return &Compositor{generator: generator, renderer: renderer}
}

// Generate fetches a heatmap for the canvas's detections, sized to the
// original image. The unannotated snapshot is captured before the first
// request. The displayed pixels are not touched.
func (h *Compositor) Generate(ctx context.Context, c *render.Canvas) (image.Image, ai.HeatmapStats, error) {
	if c.Mode() == render.ModeBlank {
		return nil, ai.HeatmapStats{}, render.ErrBlankCanvas
	}
	detections := c.Detections()
	if len(detections) == 0 {
		return nil, ai.HeatmapStats{}, ErrNoDetections
	}
	if err := c.CaptureOriginal(); err != nil {
		return nil, ai.HeatmapStats{}, err
	}

	fit := c.Fit()
	res, err := h.generator.GenerateHeatmap(ctx, detections, fit.OriginalWidth, fit.OriginalHeight)
	if err != nil {
		return nil, ai.HeatmapStats{}, pkgerrors.Wrap(err, "heatmap generation failed")
	}
	img, err := dataurl.Decode(res.Heatmap)
	if err != nil {
		return nil, ai.HeatmapStats{}, pkgerrors.Wrap(err, "heatmap image")
	}
	return img, res.Stats, nil
}

// Apply blends heat over the original snapshot; the canvas enters heatmap mode.
func (h *Compositor) Apply(c *render.Canvas, heat image.Image) error {
	return c.EnterHeatmap(heat, Opacity)
}

// Show runs Generate then Apply. On any error the canvas is unchanged.
func (h *Compositor) Show(ctx context.Context, c *render.Canvas) (ai.HeatmapStats, error) {
	heat, stats, err := h.Generate(ctx, c)
	if err != nil {
		return ai.HeatmapStats{}, err
	}
	if err := h.Apply(c, heat); err != nil {
		return ai.HeatmapStats{}, err
	}
	return stats, nil
}

// Reset restores the snapshot and redraws the overlay; the canvas returns to
// annotated mode.
func (h *Compositor) Reset(c *render.Canvas) error {
	return c.LeaveHeatmap(h.renderer)
}
