package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-segmentation/models/postprocess"
)

func TestVisualize(t *testing.T) {
	red := postprocess.Pack(color.RGBA{R: 255, A: 255})
	none := postprocess.Pack(color.RGBA{})
	img, err := Visualize([]uint32{red, none, none, red}, 2, 2)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(1, 1))
}

func TestVisualizeLengthMismatch(t *testing.T) {
	_, err := Visualize(make([]uint32, 10), 4, 4)
	require.Error(t, err)

	var rerr *RenderError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "visualize", rerr.Op)
}

func TestVisualizeInvalidDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 4}, {4, 0}, {-1, -1}} {
		_, err := Visualize(nil, dims[0], dims[1])
		var rerr *RenderError
		assert.True(t, errors.As(err, &rerr), "dims %v", dims)
	}
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestOverlayBlendsAtHalfOpacity(t *testing.T) {
	vis, err := Visualize([]uint32{
		postprocess.Pack(color.RGBA{}), postprocess.Pack(color.RGBA{R: 255, A: 255}),
		postprocess.Pack(color.RGBA{}), postprocess.Pack(color.RGBA{R: 255, A: 255}),
	}, 2, 2)
	require.NoError(t, err)
	original := solid(4, 2, color.NRGBA{B: 200, A: 255})

	out, err := Overlay(vis, original, DefaultBlendAlpha)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), out.Bounds())

	// Left half sits under transparent pixels and is unchanged.
	assert.Equal(t, color.NRGBA{B: 200, A: 255}, out.NRGBAAt(0, 0))
	// Right half is an even mix of red and blue.
	got := out.NRGBAAt(3, 1)
	assert.InDelta(t, 127, int(got.R), 2)
	assert.InDelta(t, 100, int(got.B), 2)
	assert.Equal(t, uint8(255), got.A)
}

func TestOverlayErrors(t *testing.T) {
	vis := image.NewRGBA(image.Rect(0, 0, 2, 2))
	original := solid(2, 2, color.NRGBA{A: 255})

	tests := []struct {
		name     string
		vis      image.Image
		original image.Image
		alpha    float64
	}{
		{"nil visualization", nil, original, 0.5},
		{"empty visualization", image.NewRGBA(image.Rect(0, 0, 0, 0)), original, 0.5},
		{"nil original", vis, nil, 0.5},
		{"alpha too large", vis, original, 1.5},
		{"negative alpha", vis, original, -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Overlay(tt.vis, tt.original, tt.alpha)
			var rerr *RenderError
			assert.True(t, errors.As(err, &rerr))
		})
	}
}

func TestOverlayDoesNotMutateInputs(t *testing.T) {
	vis, err := Visualize([]uint32{postprocess.Pack(color.RGBA{G: 255, A: 255})}, 1, 1)
	require.NoError(t, err)
	original := solid(2, 2, color.NRGBA{R: 10, A: 255})

	_, err = Overlay(vis, original, 0.5)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 10, A: 255}, original.NRGBAAt(1, 1))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, vis.RGBAAt(0, 0))
}

func TestEncodeAndSave(t *testing.T) {
	img := solid(3, 2, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, PNG))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), decoded.Bounds())

	path := filepath.Join(t.TempDir(), "out.jpg")
	require.NoError(t, Save(path, img))

	f, err := FormatFromFilename(path)
	require.NoError(t, err)
	assert.Equal(t, JPEG, f)

	_, err = FormatFromFilename("out.xyz")
	assert.Error(t, err)
}
