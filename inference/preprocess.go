package inference

import (
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-segmentation/images"
)

// ErrInvalidImage is returned when an input image is nil or has no pixels.
var ErrInvalidImage = errors.New("invalid input image")

// PrepareInput resizes img to size×size and packs it into a [1,size,size,3]
// float32 tensor of raw 0..255 RGB values in row-major HWC order.
//
// Arguments:
//   - img: The image to prepare.
//   - size: The square model input size.
//
// Returns:
//   - *tensor.Dense: The input tensor.
//   - error: ErrInvalidImage if img is unusable, or a resize error.
func PrepareInput(img image.Image, size int) (*tensor.Dense, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrInvalidImage
	}
	if size <= 0 {
		return nil, errors.Errorf("invalid input size %d", size)
	}

	resized, err := images.Resize(img, size, size, images.Bilinear)
	if err != nil {
		return nil, errors.Wrap(err, "resize input")
	}

	data := make([]float32, size*size*3)
	b := resized.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := resized.At(x, y).RGBA()
			data[i] = float32(r >> 8)
			data[i+1] = float32(g >> 8)
			data[i+2] = float32(bl >> 8)
			i += 3
		}
	}

	return tensor.New(tensor.WithShape(1, size, size, 3), tensor.WithBacking(data)), nil
}

// InputData returns the float32 backing of a prepared input tensor after
// checking it has the [1,size,size,3] shape.
func InputData(input *tensor.Dense, size int) ([]float32, error) {
	if input == nil {
		return nil, errors.New("nil input tensor")
	}
	shape := input.Shape()
	if len(shape) != 4 || shape[0] != 1 || shape[1] != size || shape[2] != size || shape[3] != 3 {
		return nil, errors.Errorf("input shape %v, want [1 %d %d 3]", shape, size, size)
	}
	data, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("input dtype %v, want float32", input.Dtype())
	}
	return data, nil
}
