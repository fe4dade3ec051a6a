// Package model - Definitions for segmentation models and their options.
package model

import (
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-segmentation/inference"
	"github.com/nvr-ai/go-segmentation/models/postprocess"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyVOC is the Pascal VOC model family.
	ModelFamilyVOC Family = "voc"
	// ModelFamilyCOCO is the COCO model family.
	ModelFamilyCOCO Family = "coco"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameDeepLabV3 is the name of the DeepLabV3 model.
	ModelNameDeepLabV3 Name = "deeplabv3"
)

// ErrInvalidModel is returned for model arguments that cannot describe a usable model.
var ErrInvalidModel = errors.New("invalid model")

// Options describes a loaded model.
type Options struct {
	Name   Name   `json:"name" yaml:"name"`
	Family Family `json:"family" yaml:"family"`
	Path   string `json:"path" yaml:"path"`
	// InputSize is the square input edge D.
	InputSize int `json:"input_size" yaml:"input_size"`
	// ForegroundValue is the raw prediction marking the foreground class.
	ForegroundValue int `json:"foreground_value" yaml:"foreground_value"`
	// InputName and OutputName are the graph node names; empty means first.
	InputName  string `json:"input_name" yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`
}

// Model prepares inputs for and interprets outputs of a segmentation model.
type Model interface {
	Options() Options
	PreProcess(img image.Image) (*tensor.Dense, error)
	PostProcess(output *tensor.Dense, p postprocess.Processor) (postprocess.Output, error)
}

// NewModelArgs is the arguments for creating a new model. Zero values
// select the model's defaults.
type NewModelArgs struct {
	Name            Name   `json:"name" yaml:"name"`
	Path            string `json:"path" yaml:"path"`
	InputSize       int    `json:"input_size" yaml:"input_size"`
	// ForegroundValue is nil for the model default; 0 is a valid value.
	ForegroundValue *int   `json:"foreground_value,omitempty" yaml:"foreground_value,omitempty"`
	InputName       string `json:"input_name" yaml:"input_name"`
	OutputName      string `json:"output_name" yaml:"output_name"`
}

// BaseModel implements the square-input, square-output contract shared by
// segmentation models.
type BaseModel struct {
	Opts Options
}

// Options returns the model options.
func (m BaseModel) Options() Options {
	return m.Opts
}

// PreProcess resizes img to the model input and packs it as [1,D,D,3].
func (m BaseModel) PreProcess(img image.Image) (*tensor.Dense, error) {
	return inference.PrepareInput(img, m.Opts.InputSize)
}

// PostProcess converts the raw output into a class map and visualization buffer.
//
// Arguments:
//   - output: The engine output tensor.
//   - p: The processor settings.
//
// Returns:
//   - postprocess.Output: The segmentation map, buffer and class set.
//   - error: An error if the output does not match the model's D×D grid.
func (m BaseModel) PostProcess(output *tensor.Dense, p postprocess.Processor) (postprocess.Output, error) {
	pred, err := postprocess.FromDense(output)
	if err != nil {
		return postprocess.Output{}, err
	}
	if pred.Size != m.Opts.InputSize {
		return postprocess.Output{}, errors.Errorf("prediction is %dx%d, model %s expects %dx%d",
			pred.Size, pred.Size, m.Opts.Name, m.Opts.InputSize, m.Opts.InputSize)
	}
	return p.Process(pred), nil
}

// Validate checks that the options describe a usable model.
func (o Options) Validate() error {
	if o.Name == "" {
		return errors.Wrap(ErrInvalidModel, "name is required")
	}
	if o.InputSize <= 0 {
		return errors.Wrapf(ErrInvalidModel, "input size must be positive, got %d", o.InputSize)
	}
	return nil
}
