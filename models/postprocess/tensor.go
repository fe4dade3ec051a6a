package postprocess

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// PredictionTensor is a square, row-major grid of raw per-pixel predictions.
type PredictionTensor struct {
	Size int
	Data []float32
}

// NewPredictionTensor validates that data holds size×size values.
func NewPredictionTensor(size int, data []float32) (PredictionTensor, error) {
	if size <= 0 {
		return PredictionTensor{}, errors.Errorf("invalid prediction size %d", size)
	}
	if len(data) != size*size {
		return PredictionTensor{}, errors.Errorf("prediction holds %d values, want %d", len(data), size*size)
	}
	return PredictionTensor{Size: size, Data: data}, nil
}

// FromDense converts an engine output tensor into a PredictionTensor.
//
// Accepted shapes are [D,D], [1,D,D] and [1,D,D,1]; element types float32,
// float64, int32 and int64 are converted to float32.
//
// Arguments:
//   - t: The engine output.
//
// Returns:
//   - PredictionTensor: A copy of the predictions.
//   - error: An error if the shape or element type is unsupported.
func FromDense(t *tensor.Dense) (PredictionTensor, error) {
	if t == nil {
		return PredictionTensor{}, errors.New("nil prediction tensor")
	}

	shape := t.Shape()
	var h, w int
	switch {
	case len(shape) == 2:
		h, w = shape[0], shape[1]
	case len(shape) == 3 && shape[0] == 1:
		h, w = shape[1], shape[2]
	case len(shape) == 4 && shape[0] == 1 && shape[3] == 1:
		h, w = shape[1], shape[2]
	default:
		return PredictionTensor{}, errors.Errorf("unsupported prediction shape %v", shape)
	}
	if h != w {
		return PredictionTensor{}, errors.Errorf("prediction is not square: %dx%d", w, h)
	}

	n := h * w
	out := make([]float32, n)
	switch data := t.Data().(type) {
	case []float32:
		if len(data) < n {
			return PredictionTensor{}, errors.Errorf("prediction holds %d values, want %d", len(data), n)
		}
		copy(out, data[:n])
	case []float64:
		if len(data) < n {
			return PredictionTensor{}, errors.Errorf("prediction holds %d values, want %d", len(data), n)
		}
		for i := range out {
			out[i] = float32(data[i])
		}
	case []int32:
		if len(data) < n {
			return PredictionTensor{}, errors.Errorf("prediction holds %d values, want %d", len(data), n)
		}
		for i := range out {
			out[i] = float32(data[i])
		}
	case []int64:
		if len(data) < n {
			return PredictionTensor{}, errors.Errorf("prediction holds %d values, want %d", len(data), n)
		}
		for i := range out {
			out[i] = float32(data[i])
		}
	default:
		return PredictionTensor{}, errors.Errorf("unsupported prediction dtype %v", t.Dtype())
	}

	return NewPredictionTensor(h, out)
}
