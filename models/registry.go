// Package models - registry for models.
package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-segmentation/models/deeplabv3"
	"github.com/nvr-ai/go-segmentation/models/model"
)

// NewModel creates a new segmentation model instance based on the specified model name.
//
// An empty name selects DeepLabV3.
//
// Arguments:
//   - args: Configuration parameters specifying the model type and location.
//
// Returns:
//   - model.Model: A configured model instance.
//   - error: model.ErrInvalidModel if the name is unsupported or the arguments are invalid.
//
// Example:
//
//	m, err := NewModel(model.NewModelArgs{
//	    Name: model.ModelNameDeepLabV3,
//	    Path: "/models/deeplabv3.onnx",
//	})
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case model.ModelNameDeepLabV3, "":
		m, err := deeplabv3.NewModel(args)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errors.Wrapf(model.ErrInvalidModel, "unsupported model name: %s", args.Name)
	}
}
