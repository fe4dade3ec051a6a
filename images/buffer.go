package images

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/pkg/errors"
)

// PixelFormat describes the byte layout of a Buffer.
type PixelFormat string

const (
	// PixelFormatRGBA is 8-bit RGBA with alpha-premultiplied color.
	PixelFormatRGBA PixelFormat = "rgba8_premultiplied"
	// PixelFormatNRGBA is 8-bit RGBA with straight alpha.
	PixelFormatNRGBA PixelFormat = "rgba8"
)

// BytesPerPixel returns the size of one pixel.
func (f PixelFormat) BytesPerPixel() int {
	return 4
}

// Buffer is an owned, immutable pixel buffer. Operations on it return new
// buffers instead of mutating shared image objects.
type Buffer struct {
	width  int
	height int
	format PixelFormat
	pix    []byte
}

// NewBuffer copies pix into a new buffer after validating its size.
//
// Arguments:
//   - width: Width in pixels.
//   - height: Height in pixels.
//   - format: The layout of pix.
//   - pix: Row-major pixel bytes without padding.
//
// Returns:
//   - Buffer: The new buffer.
//   - error: An error if the dimensions are not positive or pix has the wrong length.
func NewBuffer(width, height int, format PixelFormat, pix []byte) (Buffer, error) {
	if width <= 0 || height <= 0 {
		return Buffer{}, errors.Errorf("invalid buffer dimensions: %dx%d", width, height)
	}
	switch format {
	case PixelFormatRGBA, PixelFormatNRGBA:
	default:
		return Buffer{}, errors.Errorf("unsupported pixel format %q", format)
	}
	want := width * height * format.BytesPerPixel()
	if len(pix) != want {
		return Buffer{}, errors.Errorf("buffer holds %d bytes, want %d", len(pix), want)
	}
	owned := make([]byte, len(pix))
	copy(owned, pix)
	return Buffer{width: width, height: height, format: format, pix: owned}, nil
}

// FromImage copies img into a premultiplied RGBA buffer anchored at (0,0).
func FromImage(img image.Image) (Buffer, error) {
	if img == nil || img.Bounds().Empty() {
		return Buffer{}, ErrEmptyImage
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return Buffer{width: b.Dx(), height: b.Dy(), format: PixelFormatRGBA, pix: rgba.Pix}, nil
}

// Width returns the width in pixels.
func (b Buffer) Width() int { return b.width }

// Height returns the height in pixels.
func (b Buffer) Height() int { return b.height }

// Format returns the pixel layout.
func (b Buffer) Format() PixelFormat { return b.format }

// Bytes returns a copy of the pixel bytes.
func (b Buffer) Bytes() []byte {
	out := make([]byte, len(b.pix))
	copy(out, b.pix)
	return out
}

// At returns the color at column x, row y.
func (b Buffer) At(x, y int) color.Color {
	i := (y*b.width + x) * b.format.BytesPerPixel()
	p := b.pix[i : i+4 : i+4]
	if b.format == PixelFormatNRGBA {
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	}
	return color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Image returns a new image.Image backed by a copy of the buffer.
func (b Buffer) Image() image.Image {
	r := image.Rect(0, 0, b.width, b.height)
	if b.format == PixelFormatNRGBA {
		return &image.NRGBA{Pix: b.Bytes(), Stride: b.width * 4, Rect: r}
	}
	return &image.RGBA{Pix: b.Bytes(), Stride: b.width * 4, Rect: r}
}
