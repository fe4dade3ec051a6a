package models

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-segmentation/models/deeplabv3"
	"github.com/nvr-ai/go-segmentation/models/model"
	"github.com/nvr-ai/go-segmentation/models/postprocess"
)

func TestNewModelDefaults(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{Path: "deeplabv3.onnx"})
	require.NoError(t, err)

	opts := m.Options()
	assert.Equal(t, model.ModelNameDeepLabV3, opts.Name)
	assert.Equal(t, model.ModelFamilyVOC, opts.Family)
	assert.Equal(t, deeplabv3.InputSize, opts.InputSize)
	assert.Equal(t, 15, opts.ForegroundValue)
	assert.Equal(t, "deeplabv3.onnx", opts.Path)
}

func TestNewModelZeroForeground(t *testing.T) {
	zero := 0
	m, err := NewModel(model.NewModelArgs{ForegroundValue: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, m.Options().ForegroundValue)
}

func TestNewModelUnsupported(t *testing.T) {
	_, err := NewModel(model.NewModelArgs{Name: "yolov4"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidModel))
}

func TestNewModelInvalidSize(t *testing.T) {
	_, err := NewModel(model.NewModelArgs{Name: model.ModelNameDeepLabV3, InputSize: -1})
	assert.True(t, errors.Is(err, model.ErrInvalidModel))
}

func TestModelPrePostProcess(t *testing.T) {
	m, err := NewModel(model.NewModelArgs{InputSize: 3})
	require.NoError(t, err)

	in, err := m.PreProcess(image.NewRGBA(image.Rect(0, 0, 6, 6)))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3, 3, 3}, in.Shape())

	raw := []float32{0, 15, 0, 15, 15, 15, 0, 0, 0}
	out, err := m.PostProcess(tensor.New(tensor.WithShape(3, 3), tensor.WithBacking(raw)), postprocess.Processor{
		Mode:            postprocess.ModeBinary,
		ForegroundValue: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, []postprocess.ClassIndex{0, 1, 0, 1, 1, 1, 0, 0, 0}, out.Map.Classes)

	_, err = m.PostProcess(tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(make([]float32, 4))), postprocess.Processor{})
	assert.Error(t, err)
}
