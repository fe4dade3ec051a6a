// Package deeplabv3 - DeepLabV3 semantic segmentation model.
package deeplabv3

import (
	"github.com/nvr-ai/go-segmentation/models/model"
	"github.com/nvr-ai/go-segmentation/models/postprocess"
)

const (
	// InputSize is the square input edge of the published model.
	InputSize = 513
	// ForegroundValue is the VOC "person" class.
	ForegroundValue = postprocess.DefaultForegroundValue
)

// DeepLabV3 is the instance of the DeepLabV3 model.
type DeepLabV3 struct {
	model.BaseModel
}

// NewModel creates a new model.
//
// Arguments:
//   - args: The arguments for creating a new model.
//
// Returns:
//   - The model.
func NewModel(args model.NewModelArgs) (*DeepLabV3, error) {
	opts := model.Options{
		Name:            model.ModelNameDeepLabV3,
		Family:          model.ModelFamilyVOC,
		Path:            args.Path,
		InputSize:       args.InputSize,
		ForegroundValue: ForegroundValue,
		InputName:       args.InputName,
		OutputName:      args.OutputName,
	}
	if opts.InputSize == 0 {
		opts.InputSize = InputSize
	}
	if args.ForegroundValue != nil {
		opts.ForegroundValue = *args.ForegroundValue
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &DeepLabV3{BaseModel: model.BaseModel{Opts: opts}}, nil
}
