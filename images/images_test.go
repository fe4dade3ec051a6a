package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestImage() image.Image {
	// Create a simple 100x60 red image.
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	return img
}

func getPNGBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, getTestImage()))
	return buf.Bytes()
}

// TestReadAndDecode validates format sniffing and decoding for supported encodings.
func TestReadAndDecode(t *testing.T) {
	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, getTestImage(), nil))

	tests := []struct {
		name   string
		data   []byte
		format ImageFormat
	}{
		{"png", getPNGBytes(t), FormatPNG},
		{"jpeg", jpg.Bytes(), FormatJPEG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Read(bytes.NewReader(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.format, img.Format)
			assert.Equal(t, 100, img.Width)
			assert.Equal(t, 60, img.Height)

			decoded, err := img.Decode()
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 100, 60), decoded.Bounds())
		})
	}
}

func TestReadInvalid(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestDecodeEmpty(t *testing.T) {
	var img *Image
	_, err := img.Decode()
	assert.True(t, errors.Is(err, ErrEmptyImage))

	_, err = (&Image{Format: FormatPNG}).Decode()
	assert.True(t, errors.Is(err, ErrEmptyImage))
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, os.WriteFile(path, getPNGBytes(t), 0o600))

	img, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, img.Format)

	_, err = Open(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]ImageFormat{
		"a.JPG":  FormatJPEG,
		"a.jpeg": FormatJPEG,
		"b.png":  FormatPNG,
		"c.bmp":  FormatBMP,
		"d.tif":  FormatTIFF,
		"e.webp": FormatWebP,
	}
	for path, want := range tests {
		got, ok := FormatFromPath(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}

	_, ok := FormatFromPath("notes.txt")
	assert.False(t, ok)
}

func TestResize(t *testing.T) {
	out, err := Resize(getTestImage(), 7, 7, Bilinear)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 7, 7), out.Bounds())

	r, g, b, a := out.At(3, 3).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)
	assert.Equal(t, uint32(0xffff), a)
}

func TestResizeErrors(t *testing.T) {
	_, err := Resize(nil, 4, 4, Bilinear)
	assert.True(t, errors.Is(err, ErrEmptyImage))

	_, err = Resize(getTestImage(), 0, 4, Bilinear)
	assert.Error(t, err)

	_, err = Resize(getTestImage(), 4, 4, ResampleFilter("sinc"))
	assert.Error(t, err)
}

func TestBuffer(t *testing.T) {
	pix := []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 0, 0, 0, 0,
	}
	buf, err := NewBuffer(2, 2, PixelFormatRGBA, pix)
	require.NoError(t, err)

	pix[0] = 1
	assert.Equal(t, color.RGBA{R: 255, A: 255}, buf.At(0, 0), "buffer must own its bytes")

	out := buf.Bytes()
	out[4] = 9
	assert.Equal(t, color.RGBA{G: 255, A: 255}, buf.At(1, 0), "Bytes must return a copy")

	img := buf.Image()
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.At(0, 1))
}

func TestNewBufferErrors(t *testing.T) {
	_, err := NewBuffer(0, 2, PixelFormatRGBA, nil)
	assert.Error(t, err)

	_, err = NewBuffer(2, 2, PixelFormatRGBA, make([]byte, 15))
	assert.Error(t, err)

	_, err = NewBuffer(1, 1, PixelFormat("yuv"), make([]byte, 4))
	assert.Error(t, err)
}

func TestFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.SetNRGBA(2, 2, color.NRGBA{R: 200, A: 255})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))

	buf, err := FromImage(sub)
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Width())
	assert.Equal(t, 2, buf.Height())
	assert.Equal(t, PixelFormatRGBA, buf.Format())
	assert.Equal(t, color.RGBA{R: 200, A: 255}, buf.At(0, 0))

	_, err = FromImage(nil)
	assert.True(t, errors.Is(err, ErrEmptyImage))
}
