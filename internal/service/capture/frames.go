// Package capture turns uploaded files and camera devices into single frames.
package capture

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"potholewatch/internal/service/dataurl"
	"potholewatch/internal/service/upload"
)

// ErrNoFrame is returned when a video or device yields no readable frame.
var ErrNoFrame = errors.New("no frame could be read")

// Frame decodes an accepted upload. Images go through the Go decoders, videos
// are reduced to their first frame.
func Frame(kind upload.Kind, data []byte) (image.Image, error) {
	if kind == upload.KindVideo {
		return FirstVideoFrame(data)
	}
	img, err := dataurl.DecodeBytes(data)
	if err == nil || errors.Is(err, dataurl.ErrTooManyPixels) {
		return img, err
	}
	// some encoders (CMYK JPEG, multi-page TIFF) only OpenCV reads
	mat, cvErr := gocv.IMDecode(data, gocv.IMReadColor)
	if cvErr != nil {
		return nil, err
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, err
	}
	if err := dataurl.CheckSize(mat.Cols(), mat.Rows(), dataurl.DefaultMaxPixels); err != nil {
		return nil, err
	}
	return matToImage(mat)
}

// FirstVideoFrame extracts the frame at position zero from an encoded video.
func FirstVideoFrame(data []byte) (image.Image, error) {
	f, err := os.CreateTemp("", "potholewatch-*.video")
	if err != nil {
		return nil, fmt.Errorf("failed to spool video: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to spool video: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to spool video: %w", err)
	}
	return FirstFileFrame(f.Name())
}

// FirstFileFrame extracts the first frame of the video at path.
func FirstFileFrame(path string) (image.Image, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	defer vc.Close()
	return read(vc)
}

// DeviceFrame grabs one frame from a local camera.
func DeviceFrame(deviceID int) (image.Image, error) {
	vc, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", deviceID, err)
	}
	defer vc.Close()
	return read(vc)
}

func read(vc *gocv.VideoCapture) (image.Image, error) {
	mat := gocv.NewMat()
	defer mat.Close()
	if ok := vc.Read(&mat); !ok || mat.Empty() {
		return nil, ErrNoFrame
	}
	if err := dataurl.CheckSize(mat.Cols(), mat.Rows(), dataurl.DefaultMaxPixels); err != nil {
		return nil, err
	}
	return matToImage(mat)
}

func matToImage(mat gocv.Mat) (image.Image, error) {
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, dataurl.ErrEmptyImage
	}
	return img, nil
}
