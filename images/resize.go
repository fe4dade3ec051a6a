package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ResampleFilter defines the resampling algorithm used for image scaling.
type ResampleFilter string

const (
	// NearestNeighbor keeps hard edges; used for class maps.
	NearestNeighbor ResampleFilter = "nearest"
	// Bilinear is fast with good quality.
	Bilinear ResampleFilter = "bilinear"
	// Bicubic is slower with better quality.
	Bicubic ResampleFilter = "bicubic"
	// Lanczos is the slowest and sharpest.
	Lanczos ResampleFilter = "lanczos"
)

func (f ResampleFilter) interpolation() (resize.InterpolationFunction, error) {
	switch f {
	case NearestNeighbor:
		return resize.NearestNeighbor, nil
	case Bilinear, "":
		return resize.Bilinear, nil
	case Bicubic:
		return resize.Bicubic, nil
	case Lanczos:
		return resize.Lanczos3, nil
	default:
		return 0, errors.Errorf("unknown resample filter %q", f)
	}
}

// Resize scales img to exactly width×height, ignoring aspect ratio.
//
// Arguments:
//   - img: The source image.
//   - width: Target width in pixels.
//   - height: Target height in pixels.
//   - filter: The resampling filter.
//
// Returns:
//   - image.Image: The resized image, anchored at (0,0).
//   - error: An error if the source is empty, the target size is not positive
//     or the filter is unknown.
func Resize(img image.Image, width, height int, filter ResampleFilter) (image.Image, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid target size %dx%d", width, height)
	}
	interp, err := filter.interpolation()
	if err != nil {
		return nil, err
	}
	out := resize.Resize(uint(width), uint(height), img, interp)
	if out == nil || out.Bounds().Dx() != width || out.Bounds().Dy() != height {
		return nil, errors.Errorf("resize to %dx%d failed", width, height)
	}
	return out, nil
}
