package dataurl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"strings"
	"testing"

	"go.viam.com/test"
	"golang.org/x/image/bmp"
)

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestPNGRoundTrip(t *testing.T) {
	src := checker(6, 4)
	url, err := EncodePNG(src)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.HasPrefix(url, "data:image/png;base64,"), test.ShouldBeTrue)

	img, err := Decode(url)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, src.Bounds())
	r, g, b, _ := img.At(1, 0).RGBA()
	test.That(t, []uint32{r, g, b}, test.ShouldResemble, []uint32{0, 0, 0})
}

func TestJPEG(t *testing.T) {
	url, err := EncodeJPEG(checker(16, 16), JPEGQuality)
	test.That(t, err, test.ShouldBeNil)
	mediaType, data, err := Split(url)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mediaType, test.ShouldEqual, "image/jpeg")
	test.That(t, data[:2], test.ShouldResemble, []byte{0xff, 0xd8})
}

func TestDecodeBMP(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, bmp.Encode(&buf, checker(3, 3)), test.ShouldBeNil)
	img, err := Decode(Encode("image/bmp", buf.Bytes()))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 3)
}

func TestDecodeErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"image/png;base64,AAAA",
		"data:image/png;base64",
		"data:text/plain,hello",
		"data:image/png;base64,***",
	} {
		_, err := Decode(s)
		test.That(t, errors.Is(err, ErrMalformed), test.ShouldBeTrue)
	}

	_, err := Decode(Encode("image/png", []byte("not an image")))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrMalformed), test.ShouldBeFalse)
}

func TestDecodeEmptyInput(t *testing.T) {
	_, err := DecodeBytes(nil)
	test.That(t, err, test.ShouldNotBeNil)
}

// pngHeader returns a PNG that declares a w×h grayscale image but carries no
// pixel data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth, gray, no interlace
	chunk := append([]byte("IHDR"), ihdr...)
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeRejectsHugeDeclaredSize(t *testing.T) {
	data := pngHeader(12000, 12000)
	test.That(t, len(data), test.ShouldBeLessThan, 64)

	_, err := Decode(Encode("image/png", data))
	test.That(t, errors.Is(err, ErrTooManyPixels), test.ShouldBeTrue)

	_, err = DecodeBytesWithin(data, 0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrTooManyPixels), test.ShouldBeFalse)
}

func TestDecodeWithinBudget(t *testing.T) {
	url, err := EncodePNG(checker(8, 8))
	test.That(t, err, test.ShouldBeNil)

	_, err = DecodeWithin(url, 63)
	test.That(t, errors.Is(err, ErrTooManyPixels), test.ShouldBeTrue)

	img, err := DecodeWithin(url, 64)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 8)
}

func TestCheckSize(t *testing.T) {
	test.That(t, errors.Is(CheckSize(0, 10, 100), ErrEmptyImage), test.ShouldBeTrue)
	test.That(t, errors.Is(CheckSize(11, 10, 100), ErrTooManyPixels), test.ShouldBeTrue)
	test.That(t, CheckSize(10, 10, 100), test.ShouldBeNil)
	test.That(t, CheckSize(100000, 100000, 0), test.ShouldBeNil)
}
