// Package backend - Selects and opens an inference engine for a model.
package backend

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-segmentation/inference"
	"github.com/nvr-ai/go-segmentation/inference/onnx"
	"github.com/nvr-ai/go-segmentation/inference/opencv"
	"github.com/nvr-ai/go-segmentation/inference/providers"
	"github.com/nvr-ai/go-segmentation/models/model"
)

// Kind names an engine implementation.
type Kind string

const (
	// KindONNX runs models through ONNX Runtime.
	KindONNX Kind = "onnx"
	// KindOpenCV runs models through OpenCV's DNN module.
	KindOpenCV Kind = "opencv"
)

// ErrUnknownKind is returned for unsupported backend names.
var ErrUnknownKind = errors.New("unknown inference backend")

// ParseKind parses a backend name. An empty name selects ONNX Runtime.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindONNX, nil
	case KindONNX, KindOpenCV:
		return k, nil
	default:
		return "", errors.Wrapf(ErrUnknownKind, "%q", s)
	}
}

// Config selects the backend and its runtime settings.
type Config struct {
	Kind        Kind              `json:"kind" yaml:"kind"`
	LibraryPath string            `json:"library_path" yaml:"library_path"`
	Provider    providers.Options `json:"provider" yaml:"provider"`
}

// Loader opens an engine for a model.
type Loader func(opts model.Options) (inference.Engine, error)

// NewLoader returns a Loader that opens engines of the configured kind.
//
// Arguments:
//   - cfg: The backend configuration.
//
// Returns:
//   - Loader: Opens an engine for the model's path, input size and node names.
//   - error: ErrUnknownKind if the kind is unsupported.
func NewLoader(cfg Config) (Loader, error) {
	kind, err := ParseKind(string(cfg.Kind))
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindOpenCV:
		return func(opts model.Options) (inference.Engine, error) {
			e, err := opencv.New(opencv.Config{
				ModelPath:  opts.Path,
				InputSize:  opts.InputSize,
				OutputName: opts.OutputName,
			})
			if err != nil {
				return nil, err
			}
			return e, nil
		}, nil
	default:
		return func(opts model.Options) (inference.Engine, error) {
			e, err := onnx.New(onnx.Config{
				ModelPath:   opts.Path,
				InputSize:   opts.InputSize,
				InputName:   opts.InputName,
				OutputName:  opts.OutputName,
				LibraryPath: cfg.LibraryPath,
				Provider:    cfg.Provider,
			})
			if err != nil {
				return nil, err
			}
			return e, nil
		}, nil
	}
}
