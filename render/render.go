// Package render - Visualization and overlay compositing for segmentation results.
package render

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-segmentation/models/postprocess"
)

// DefaultBlendAlpha is the opacity of the visualization over the original image.
const DefaultBlendAlpha = 0.5

// RenderError reports a failure to turn a visualization buffer or overlay into an image.
type RenderError struct {
	Op     string
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %s", e.Op, e.Reason)
}

// Visualize builds an RGBA image from a packed visualization buffer.
//
// Arguments:
//   - buf: Packed premultiplied pixels, row-major.
//   - width: Image width.
//   - height: Image height.
//
// Returns:
//   - *image.RGBA: The visualization.
//   - error: *RenderError if the dimensions are not positive or buf has the wrong length.
func Visualize(buf []uint32, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, &RenderError{Op: "visualize", Reason: fmt.Sprintf("invalid dimensions %dx%d", width, height)}
	}
	if len(buf) != width*height {
		return nil, &RenderError{
			Op:     "visualize",
			Reason: fmt.Sprintf("buffer holds %d pixels, want %d", len(buf), width*height),
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, px := range buf {
		c := postprocess.Unpack(px)
		o := i * 4
		img.Pix[o] = c.R
		img.Pix[o+1] = c.G
		img.Pix[o+2] = c.B
		img.Pix[o+3] = c.A
	}
	return img, nil
}

// Overlay scales vis to the bounds of original with nearest-neighbor
// sampling and composites it on top at the given opacity.
//
// Arguments:
//   - vis: The visualization image.
//   - original: The image the request was made for.
//   - alpha: Opacity of vis in [0,1].
//
// Returns:
//   - *image.NRGBA: A new image the size of original, anchored at (0,0).
//   - error: *RenderError if either input is missing or empty, or alpha is out of range.
func Overlay(vis, original image.Image, alpha float64) (*image.NRGBA, error) {
	if vis == nil || vis.Bounds().Empty() {
		return nil, &RenderError{Op: "overlay", Reason: "empty visualization"}
	}
	if original == nil || original.Bounds().Empty() {
		return nil, &RenderError{Op: "overlay", Reason: "empty original image"}
	}
	if alpha < 0 || alpha > 1 {
		return nil, &RenderError{Op: "overlay", Reason: fmt.Sprintf("alpha %v out of range [0,1]", alpha)}
	}

	b := original.Bounds()
	scaled := imaging.Resize(vis, b.Dx(), b.Dy(), imaging.NearestNeighbor)
	return imaging.Overlay(original, scaled, image.Pt(0, 0), alpha), nil
}

// Format is an output encoding.
type Format = imaging.Format

// Supported output encodings.
const (
	PNG  = imaging.PNG
	JPEG = imaging.JPEG
)

// FormatFromFilename picks the encoding from a file extension.
func FormatFromFilename(name string) (Format, error) {
	f, err := imaging.FormatFromFilename(name)
	if err != nil {
		return 0, errors.Wrapf(err, "output %s", name)
	}
	return f, nil
}

// Encode writes img to w.
func Encode(w io.Writer, img image.Image, format Format) error {
	if img == nil {
		return &RenderError{Op: "encode", Reason: "nil image"}
	}
	return errors.Wrap(imaging.Encode(w, img, format, imaging.JPEGQuality(90)), "encode")
}

// Save writes img to path, picking the encoding from its extension.
func Save(path string, img image.Image) error {
	if img == nil {
		return &RenderError{Op: "save", Reason: "nil image"}
	}
	return errors.Wrapf(imaging.Save(img, path), "save %s", path)
}
