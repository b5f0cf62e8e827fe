// Package dataurl converts between images and base64 data URLs.
package dataurl

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// JPEGQuality is the quality used for report snapshots.
	JPEGQuality = 70
	// DefaultMaxPixels bounds the declared width×height of a decoded image.
	DefaultMaxPixels = 40_000_000
)

var (
	// ErrMalformed is returned for strings that are not base64 data URLs.
	ErrMalformed = errors.New("malformed data URL")
	// ErrEmptyImage is returned for images with zero width or height.
	ErrEmptyImage = errors.New("image has zero size")
	// ErrTooManyPixels is returned for images larger than the pixel budget.
	ErrTooManyPixels = errors.New("image has too many pixels")
)

// Split returns the media type and decoded payload of a base64 data URL.
func Split(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrMalformed
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrMalformed
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrMalformed)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return mediaType, data, nil
}

// Decode parses a data URL into an image within DefaultMaxPixels.
func Decode(s string) (image.Image, error) {
	return DecodeWithin(s, DefaultMaxPixels)
}

// DecodeWithin parses a data URL into an image of at most maxPixels pixels.
func DecodeWithin(s string, maxPixels int) (image.Image, error) {
	_, data, err := Split(s)
	if err != nil {
		return nil, err
	}
	return DecodeBytesWithin(data, maxPixels)
}

// DecodeBytes decodes any registered image format within DefaultMaxPixels.
func DecodeBytes(data []byte) (image.Image, error) {
	return DecodeBytesWithin(data, DefaultMaxPixels)
}

// DecodeBytesWithin decodes any registered image format and rejects empty
// images. The header is checked against maxPixels before any pixel is
// decoded; maxPixels <= 0 disables the check.
func DecodeBytesWithin(data []byte, maxPixels int) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if err := CheckSize(cfg.Width, cfg.Height, maxPixels); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	if err := CheckSize(b.Dx(), b.Dy(), maxPixels); err != nil {
		return nil, err
	}
	return img, nil
}

// CheckSize rejects empty dimensions and, when maxPixels > 0, images with
// more than maxPixels pixels.
func CheckSize(width, height, maxPixels int) error {
	if width <= 0 || height <= 0 {
		return ErrEmptyImage
	}
	if maxPixels > 0 && int64(width)*int64(height) > int64(maxPixels) {
		return fmt.Errorf("%w (%dx%d > %d)", ErrTooManyPixels, width, height, maxPixels)
	}
	return nil
}

// Encode builds a data URL from raw bytes.
func Encode(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// PNG encodes img as PNG bytes.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes img as a PNG data URL.
func EncodePNG(img image.Image) (string, error) {
	data, err := PNG(img)
	if err != nil {
		return "", err
	}
	return Encode("image/png", data), nil
}

// EncodeJPEG encodes img as a JPEG data URL at the given quality.
func EncodeJPEG(img image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return Encode("image/jpeg", buf.Bytes()), nil
}
