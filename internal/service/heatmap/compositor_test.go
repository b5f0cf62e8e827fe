package heatmap

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"

	"potholewatch/internal/model"
	"potholewatch/internal/service/ai"
	"potholewatch/internal/service/dataurl"
	"potholewatch/internal/service/geometry"
	"potholewatch/internal/service/render"
)

type fakeGenerator struct {
	calls  int
	width  int
	height int
	result *ai.HeatmapResult
	err    error
}

func (f *fakeGenerator) GenerateHeatmap(_ context.Context, detections []model.Detection, width, height int) (*ai.HeatmapResult, error) {
	f.calls++
	f.width, f.height = width, height
	return f.result, f.err
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func heatResult(t *testing.T) *ai.HeatmapResult {
	t.Helper()
	url, err := dataurl.EncodePNG(solid(32, 18, color.RGBA{R: 255, G: 64, A: 255}))
	test.That(t, err, test.ShouldBeNil)
	return &ai.HeatmapResult{Heatmap: url, Stats: ai.HeatmapStats{HighSeverity: 1, AvgConfidence: 0.9}}
}

func annotatedCanvas(r *render.Renderer, detections []model.Detection) *render.Canvas {
	c := render.NewCanvas()
	base := solid(1600, 900, color.RGBA{R: 120, G: 130, B: 140, A: 255})
	r.Render(c, base, detections, geometry.FitWithin(1600, 900, 800, 600))
	return c
}

var twoPotholes = []model.Detection{
	{BBox: model.BBox{X: 100, Y: 100, Width: 200, Height: 120}, Confidence: 0.9},
	{BBox: model.BBox{X: 900, Y: 500, Width: 300, Height: 200}, Confidence: 0.45},
}

func TestShowThenResetRestoresPixels(t *testing.T) {
	r := render.NewRenderer()
	gen := &fakeGenerator{result: heatResult(t)}
	h := NewCompositor(gen, r)

	c := annotatedCanvas(r, twoPotholes)
	before := c.Snapshot()

	stats, err := h.Show(context.Background(), c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.HighSeverity, test.ShouldEqual, 1)
	test.That(t, gen.width, test.ShouldEqual, 1600)
	test.That(t, gen.height, test.ShouldEqual, 900)
	test.That(t, c.Mode(), test.ShouldEqual, render.ModeHeatmap)
	test.That(t, c.Image().Pix, test.ShouldNotResemble, before.Pix)

	// a second request while already in heatmap mode reuses the snapshot
	_, err = h.Show(context.Background(), c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gen.calls, test.ShouldEqual, 2)

	test.That(t, h.Reset(c), test.ShouldBeNil)
	test.That(t, c.Mode(), test.ShouldEqual, render.ModeAnnotated)
	test.That(t, c.Image().Pix, test.ShouldResemble, before.Pix)
}

func TestRemoteFailureLeavesCanvasUnchanged(t *testing.T) {
	r := render.NewRenderer()
	remote := &ai.RemoteError{Endpoint: "/generate_heatmap", StatusCode: 500, Message: "boom"}
	h := NewCompositor(&fakeGenerator{err: remote}, r)

	c := annotatedCanvas(r, twoPotholes)
	before := c.Snapshot()

	_, err := h.Show(context.Background(), c)
	var re *ai.RemoteError
	test.That(t, errors.As(err, &re), test.ShouldBeTrue)
	test.That(t, c.Mode(), test.ShouldEqual, render.ModeAnnotated)
	test.That(t, c.Image().Pix, test.ShouldResemble, before.Pix)
	test.That(t, h.Reset(c), test.ShouldBeError, render.ErrNotHeatmap)
}

func TestBadHeatmapImageLeavesCanvasUnchanged(t *testing.T) {
	r := render.NewRenderer()
	h := NewCompositor(&fakeGenerator{result: &ai.HeatmapResult{Heatmap: "data:image/png;base64,AAAA"}}, r)

	c := annotatedCanvas(r, twoPotholes)
	before := c.Snapshot()
	_, err := h.Show(context.Background(), c)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, c.Image().Pix, test.ShouldResemble, before.Pix)
}

func TestPreconditions(t *testing.T) {
	r := render.NewRenderer()
	gen := &fakeGenerator{result: heatResult(t)}
	h := NewCompositor(gen, r)

	_, err := h.Show(context.Background(), render.NewCanvas())
	test.That(t, errors.Is(err, render.ErrBlankCanvas), test.ShouldBeTrue)

	_, err = h.Show(context.Background(), annotatedCanvas(r, nil))
	test.That(t, errors.Is(err, ErrNoDetections), test.ShouldBeTrue)
	test.That(t, gen.calls, test.ShouldEqual, 0)
}
