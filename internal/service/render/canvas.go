package render

import (
	"errors"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"potholewatch/internal/model"
	"potholewatch/internal/service/geometry"
)

// Mode is the display state of a canvas.
type Mode int

const (
	ModeBlank Mode = iota
	ModeAnnotated
	ModeHeatmap
)

func (m Mode) String() string {
	switch m {
	case ModeBlank:
		return "blank"
	case ModeAnnotated:
		return "annotated"
	case ModeHeatmap:
		return "heatmap"
	default:
		return "unknown"
	}
}

var (
	// ErrBlankCanvas is returned when an operation needs a rendered frame.
	ErrBlankCanvas = errors.New("canvas has no rendered frame")
	// ErrNotHeatmap is returned by Reset outside heatmap mode.
	ErrNotHeatmap = errors.New("canvas is not in heatmap mode")
	// ErrNoSnapshot is returned when the original pixels were never captured.
	ErrNoSnapshot = errors.New("original snapshot was not captured")
)

// Canvas is the raster a frame and its overlays are painted on, together with
// the state needed to repaint it. A Canvas is not safe for concurrent use; the
// owner serializes access.
type Canvas struct {
	img        *image.RGBA
	mode       Mode
	base       *image.RGBA
	fit        geometry.Fit
	detections []model.Detection
	original   *image.RGBA
}

// NewCanvas returns a blank canvas.
func NewCanvas() *Canvas {
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, 0, 0))}
}

// Mode returns the current display state.
func (c *Canvas) Mode() Mode {
	return c.mode
}

// Image returns the live pixels. Callers must not modify them.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Snapshot returns a copy of the current pixels.
func (c *Canvas) Snapshot() *image.RGBA {
	return clone(c.img)
}

// Fit returns the scaling used for the current frame.
func (c *Canvas) Fit() geometry.Fit {
	return c.fit
}

// Detections returns a copy of the detections drawn on the canvas.
func (c *Canvas) Detections() []model.Detection {
	return model.CloneDetections(c.detections)
}

// HasOriginal reports whether the unannotated snapshot was captured.
func (c *Canvas) HasOriginal() bool {
	return c.original != nil
}

// CaptureOriginal stores the unannotated frame pixels the first time it is
// called for a frame and is a no-op afterwards.
func (c *Canvas) CaptureOriginal() error {
	if c.mode == ModeBlank {
		return ErrBlankCanvas
	}
	if c.original != nil {
		return nil
	}
	c.original = clone(c.base)
	return nil
}

// EnterHeatmap restores the original snapshot and multiply-blends heat over
// it at the given opacity.
func (c *Canvas) EnterHeatmap(heat image.Image, opacity float64) error {
	if c.mode == ModeBlank {
		return ErrBlankCanvas
	}
	if c.original == nil {
		return ErrNoSnapshot
	}
	b := c.img.Bounds()
	scaled := imaging.Resize(heat, b.Dx(), b.Dy(), imaging.Linear)

	next := clone(c.original)
	multiplyBlend(next, scaled, opacity)
	c.img = next
	c.mode = ModeHeatmap
	return nil
}

// LeaveHeatmap restores the original snapshot and repaints the overlay.
func (c *Canvas) LeaveHeatmap(r *Renderer) error {
	if c.mode != ModeHeatmap {
		return ErrNotHeatmap
	}
	if c.original == nil {
		return ErrNoSnapshot
	}
	next := clone(c.original)
	r.Overlay(next, c.fit, c.detections)
	c.img = next
	c.mode = ModeAnnotated
	return nil
}

// Clear drops the frame and returns the canvas to blank.
func (c *Canvas) Clear() {
	*c = *NewCanvas()
}

func drawBase(dst *image.RGBA, base image.Image) {
	b := dst.Bounds()
	scaled := imaging.Resize(base, b.Dx(), b.Dy(), imaging.Lanczos)
	draw.Draw(dst, b, scaled, image.Point{}, draw.Src)
}

func clone(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// multiplyBlend composites src over dst with a multiply blend, weighting the
// result by src alpha times opacity. Both images share the same bounds origin.
func multiplyBlend(dst *image.RGBA, src *image.NRGBA, opacity float64) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := src.PixOffset(x, y)
			di := dst.PixOffset(x, y)
			alpha := float64(src.Pix[si+3]) / 255 * opacity

			for k := 0; k < 3; k++ {
				s := float64(src.Pix[si+k]) / 255
				d := float64(dst.Pix[di+k]) / 255
				dst.Pix[di+k] = toByte(s*d*alpha + d*(1-alpha))
			}
			da := float64(dst.Pix[di+3]) / 255
			dst.Pix[di+3] = toByte(alpha + da*(1-alpha))
		}
	}
}

func toByte(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v*255 + 0.5)
}
