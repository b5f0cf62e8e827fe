// Package upload validates files submitted for analysis.
package upload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Kind tells how an accepted file is turned into a frame.
type Kind int

const (
	KindImage Kind = iota
	KindVideo
)

var (
	// ErrEmpty is returned for zero-byte files.
	ErrEmpty = errors.New("empty file")
	// ErrTooLarge is returned when a file exceeds the configured limit.
	ErrTooLarge = errors.New("file too large")
	// ErrType is returned for unsupported MIME types or extensions.
	ErrType = errors.New("invalid file type")
)

// Config is the validator's rule set. It is also served to clients so they
// can validate before uploading.
type Config struct {
	MaxSize           int64    `json:"max_size"`
	AllowedTypes      []string `json:"allowed_types"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// DefaultConfig accepts still images and short phone videos up to maxBytes.
func DefaultConfig(maxBytes int64) Config {
	return Config{
		MaxSize:           maxBytes,
		AllowedTypes:      []string{"image/jpeg", "image/png", "image/bmp", "image/tiff", "video/mp4", "video/quicktime"},
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif", ".mp4", ".mov"},
	}
}

// Validate checks size, MIME type and extension, in that order, and reports
// whether the file is an image or a video.
func (c Config) Validate(name, contentType string, size int64) (Kind, error) {
	if size > c.MaxSize {
		return 0, fmt.Errorf("%w (%.1fMB > %.0fMB)", ErrTooLarge, mb(size), mb(c.MaxSize))
	}
	if size == 0 {
		return 0, ErrEmpty
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !lo.Contains(c.AllowedTypes, mediaType) {
		return 0, fmt.Errorf("%w: %s", ErrType, contentType)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !lo.Contains(c.AllowedExtensions, ext) {
		return 0, fmt.Errorf("%w: extension %q", ErrType, ext)
	}

	if strings.HasPrefix(mediaType, "video/") {
		return KindVideo, nil
	}
	return KindImage, nil
}

func mb(n int64) float64 {
	return float64(n) / 1024 / 1024
}
