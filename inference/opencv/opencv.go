// Package opencv - OpenCV DNN segmentation engine.
package opencv

import (
	"context"
	"encoding/binary"
	"math"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-segmentation/inference"
)

// Config configures an OpenCV DNN engine.
type Config struct {
	// The path to the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// The square input size D.
	InputSize int `json:"input_size" yaml:"input_size"`
	// Output layer name. Empty uses the network's default output.
	OutputName string `json:"output_name" yaml:"output_name"`
}

// Engine runs a model through gocv's DNN module on the CPU.
type Engine struct {
	mu     sync.Mutex
	size   int
	output string
	net    gocv.Net
	closed bool
}

var _ inference.Engine = (*Engine)(nil)

// New loads the model with gocv.ReadNetFromONNX.
//
// Arguments:
//   - cfg: The engine configuration.
//
// Returns:
//   - *Engine: The engine.
//   - error: An error if the model cannot be loaded.
func New(cfg Config) (*Engine, error) {
	if cfg.InputSize <= 0 {
		return nil, errors.Errorf("invalid input size %d", cfg.InputSize)
	}
	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		net.Close()
		return nil, errors.Errorf("failed to load ONNX model from %s", cfg.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendOpenCV); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "set backend")
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "set target")
	}
	return &Engine{size: cfg.InputSize, output: cfg.OutputName, net: net}, nil
}

// Infer feeds the [1,D,D,3] input as a blob and returns the D×D output.
func (e *Engine) Infer(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := inference.InputData(input, e.size)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, errors.New("engine is closed")
	}

	raw := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	blob, err := gocv.NewMatWithSizesFromBytes([]int{1, e.size, e.size, 3}, gocv.MatTypeCV32F, raw)
	if err != nil {
		return nil, errors.Wrap(err, "create input blob")
	}
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward(e.output)
	defer out.Close()
	if out.Empty() {
		return nil, errors.New("network produced no output")
	}

	n := e.size * e.size
	if err := checkOutputSize(out.Size(), e.size); err != nil {
		return nil, err
	}
	preds := make([]float32, n)
	switch out.Type() {
	case gocv.MatTypeCV32S:
		vals, err := out.DataPtrInt32()
		if err != nil {
			return nil, errors.Wrap(err, "read output")
		}
		if len(vals) != n {
			return nil, errors.Errorf("output holds %d values, want %d", len(vals), n)
		}
		for i := range preds {
			preds[i] = float32(vals[i])
		}
	default:
		vals, err := out.DataPtrFloat32()
		if err != nil {
			return nil, errors.Wrap(err, "read output")
		}
		if len(vals) != n {
			return nil, errors.Errorf("output holds %d values, want %d", len(vals), n)
		}
		copy(preds, vals[:n])
	}

	return tensor.New(tensor.WithShape(e.size, e.size), tensor.WithBacking(preds)), nil
}

// checkOutputSize accepts [D,D], [1,D,D] and [1,1,D,D] outputs. Anything
// else, such as per-class logits [1,C,D,D], is rejected.
func checkOutputSize(dims []int, size int) error {
	total := 1
	for _, d := range dims {
		total *= d
	}
	if len(dims) < 2 || dims[len(dims)-1] != size || dims[len(dims)-2] != size || total != size*size {
		return errors.Errorf("unsupported output shape %v, want %dx%d", dims, size, size)
	}
	return nil
}

// Close releases the network.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.net.Close()
}
