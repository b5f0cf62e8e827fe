package upload

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

func TestValidate(t *testing.T) {
	cfg := DefaultConfig(250 << 20)

	for _, tc := range []struct {
		name        string
		file        string
		contentType string
		size        int64
		kind        Kind
		err         error
	}{
		{"jpeg", "road.JPG", "image/jpeg", 1024, KindImage, nil},
		{"tiff", "scan.tif", "image/tiff", 1024, KindImage, nil},
		{"video", "drive.mov", "video/quicktime", 10 << 20, KindVideo, nil},
		{"content type parameters", "road.png", "image/png; charset=binary", 10, KindImage, nil},
		{"too large", "drive.mp4", "video/mp4", 251 << 20, 0, ErrTooLarge},
		{"empty", "road.png", "image/png", 0, 0, ErrEmpty},
		{"bad type", "road.gif", "image/gif", 10, 0, ErrType},
		{"bad extension", "road.exe", "image/png", 10, 0, ErrType},
		{"no extension", "road", "image/png", 10, 0, ErrType},
	} {
		t.Run(tc.name, func(t *testing.T) {
			kind, err := cfg.Validate(tc.file, tc.contentType, tc.size)
			if tc.err != nil {
				test.That(t, errors.Is(err, tc.err), test.ShouldBeTrue)
				return
			}
			test.That(t, err, test.ShouldBeNil)
			test.That(t, kind, test.ShouldEqual, tc.kind)
		})
	}
}

func TestTooLargeMessage(t *testing.T) {
	_, err := DefaultConfig(250<<20).Validate("drive.mp4", "video/mp4", 300<<20)
	test.That(t, err.Error(), test.ShouldEqual, "file too large (300.0MB > 250MB)")
}
