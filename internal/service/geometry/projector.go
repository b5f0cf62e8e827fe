// Package geometry fits captured frames into the display area and maps
// detector boxes from original-image pixels into canvas pixels.
package geometry

import (
	"image"

	"potholewatch/internal/model"
)

const (
	// DefaultMaxWidth is the widest canvas a frame is shown on.
	DefaultMaxWidth = 800
	// DefaultMaxHeight is the tallest canvas a frame is shown on.
	DefaultMaxHeight = 600
)

// Fit describes how an original frame is scaled onto the canvas.
type Fit struct {
	OriginalWidth  int
	OriginalHeight int
	DisplayWidth   float64
	DisplayHeight  float64
	ScaleX         float64
	ScaleY         float64
}

// FitWithin scales an original size down to fit maxWidth x maxHeight while
// keeping its aspect ratio. Frames that already fit are left at scale 1.
// Callers must not pass a zero dimension.
func FitWithin(originalWidth, originalHeight int, maxWidth, maxHeight float64) Fit {
	w := float64(originalWidth)
	h := float64(originalHeight)

	if w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
	}
	if h > maxHeight {
		w = w * maxHeight / h
		h = maxHeight
	}

	return Fit{
		OriginalWidth:  originalWidth,
		OriginalHeight: originalHeight,
		DisplayWidth:   w,
		DisplayHeight:  h,
		ScaleX:         w / float64(originalWidth),
		ScaleY:         h / float64(originalHeight),
	}
}

// Size is the raster size of the canvas: display dimensions truncated to
// whole pixels, never below 1.
func (f Fit) Size() image.Point {
	w, h := int(f.DisplayWidth), int(f.DisplayHeight)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Pt(w, h)
}

// ToDisplay maps a box into canvas space using this fit's scale factors.
func (f Fit) ToDisplay(b model.BBox) model.BBox {
	return ToDisplaySpace(b, f.ScaleX, f.ScaleY)
}

// ToDisplaySpace multiplies each component of b by the matching scale.
func ToDisplaySpace(b model.BBox, scaleX, scaleY float64) model.BBox {
	return model.BBox{
		X:      b.X * scaleX,
		Y:      b.Y * scaleY,
		Width:  b.Width * scaleX,
		Height: b.Height * scaleY,
	}
}
