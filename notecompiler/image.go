package notecompiler

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// renderScale is the number of pixels embedded per point of page space.
const renderScale = 2

var errEmptyImage = errors.New("image has no pixels")

// Image is a decoded bitmap with a key identifying its source.
type Image struct {
	Key    string
	Bitmap image.Image
}

// DecodeImage decodes PNG, JPEG, GIF, BMP or WebP data. Decoder panics are
// returned as errors.
func DecodeImage(key string, r io.Reader) (img *Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("decoding %s: panic: %v", key, p)
		}
	}()

	bitmap, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	if bitmap.Bounds().Empty() {
		return nil, fmt.Errorf("decoding %s (%s): %w", key, format, errEmptyImage)
	}
	return &Image{Key: key, Bitmap: bitmap}, nil
}

// SolidImage returns a single-colour image, scaled up when drawn.
func SolidImage(key string, c color.Color) *Image {
	bitmap := image.NewRGBA(image.Rect(0, 0, 1, 1))
	bitmap.Set(0, 0, c)
	return &Image{Key: key, Bitmap: bitmap}
}

// scaled resamples the bitmap to w×h pixels.
func (img *Image) scaled(w, h int) image.Image {
	b := img.Bitmap.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img.Bitmap
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img.Bitmap, b, draw.Src, nil)
	return dst
}

// encodePNG resamples the bitmap for a w×h point box and encodes it.
func (img *Image) encodePNG(w, h float64) ([]byte, error) {
	pw, ph := pixels(w), pixels(h)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.scaled(pw, ph)); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", img.Key, err)
	}
	return buf.Bytes(), nil
}

func pixels(points float64) int {
	px := int(points * renderScale)
	if px < 1 {
		return 1
	}
	return px
}
