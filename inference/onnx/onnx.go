// Package onnx - ONNX Runtime segmentation engine.
package onnx

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-segmentation/inference"
	"github.com/nvr-ai/go-segmentation/inference/providers"
)

// Config configures an ONNX Runtime engine.
type Config struct {
	// The path to the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// The square input size D.
	InputSize int `json:"input_size" yaml:"input_size"`
	// Input node name. Empty uses the model's first input.
	InputName string `json:"input_name" yaml:"input_name"`
	// Output node name. Empty uses the model's first output.
	OutputName string `json:"output_name" yaml:"output_name"`
	// Shared library override. Empty uses providers.GetSharedLibPath.
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// Execution provider settings.
	Provider providers.Options `json:"provider" yaml:"provider"`
}

// Engine runs a model through an ONNX Runtime session with preallocated
// [1,D,D,3] input and [1,D,D] output tensors.
type Engine struct {
	mu      sync.Mutex
	size    int
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

var _ inference.Engine = (*Engine)(nil)

// New creates an ONNX Runtime engine.
//
// Order of operations:
//  1. Environment setup: loads the native runtime once per process.
//  2. Node discovery: resolves input/output names from the model when unset.
//  3. Tensor allocation: fixed-shape buffers for input and output.
//  4. Session creation with the configured execution provider.
//
// Arguments:
//   - cfg: The engine configuration.
//
// Returns:
//   - *Engine: The engine.
//   - error: An error if the runtime, model or provider cannot be loaded.
func New(cfg Config) (*Engine, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if cfg.InputSize <= 0 {
		return nil, errors.Errorf("invalid input size %d", cfg.InputSize)
	}
	if err := providers.InitEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	inName, outName, err := nodeNames(cfg)
	if err != nil {
		return nil, err
	}

	d := int64(cfg.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, d, d, 3))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, d, d))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := providers.SessionOptions(cfg.Provider)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inName},
		[]string{outName},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "create session for %s", cfg.ModelPath)
	}

	return &Engine{size: cfg.InputSize, session: session, input: input, output: output}, nil
}

func nodeNames(cfg Config) (string, string, error) {
	if cfg.InputName != "" && cfg.OutputName != "" {
		return cfg.InputName, cfg.OutputName, nil
	}
	ins, outs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return "", "", errors.Wrapf(err, "read model info %s", cfg.ModelPath)
	}
	if len(ins) == 0 || len(outs) == 0 {
		return "", "", errors.Errorf("model %s has no inputs or outputs", cfg.ModelPath)
	}
	in, out := cfg.InputName, cfg.OutputName
	if in == "" {
		in = ins[0].Name
	}
	if out == "" {
		out = outs[0].Name
	}
	return in, out, nil
}

// Infer copies input into the session, runs it and returns a copy of the output.
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
	if e.session == nil {
		return nil, errors.New("engine is closed")
	}

	copy(e.input.GetData(), data)
	if err := e.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run session")
	}
	out := make([]float32, e.size*e.size)
	copy(out, e.output.GetData())

	return tensor.New(tensor.WithShape(1, e.size, e.size), tensor.WithBacking(out)), nil
}

// Close releases the session and its tensors.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.session != nil {
		err = multierr.Append(err, errors.Wrap(e.session.Destroy(), "destroy session"))
		e.session = nil
	}
	if e.input != nil {
		err = multierr.Append(err, e.input.Destroy())
		e.input = nil
	}
	if e.output != nil {
		err = multierr.Append(err, e.output.Destroy())
		e.output = nil
	}
	return err
}
