package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-segmentation/inference/backend"
	"github.com/nvr-ai/go-segmentation/inference/providers"
	"github.com/nvr-ai/go-segmentation/models/model"
	"github.com/nvr-ai/go-segmentation/models/postprocess"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", Options{})
	require.NoError(t, err)

	assert.Equal(t, "deeplabv3", cfg.Model.Name)
	assert.Equal(t, 513, cfg.Model.InputSize)
	assert.Equal(t, "onnx", cfg.Inference.Backend)
	assert.Equal(t, "cpu", cfg.Inference.Provider)
	assert.Equal(t, "binary", cfg.Segmentation.Mode)
	assert.Equal(t, 15, cfg.Segmentation.ForegroundValue)
	assert.False(t, cfg.Segmentation.ScanClassSet)
	assert.Equal(t, 0.5, cfg.Render.BlendAlpha)
	assert.Equal(t, "info", cfg.LogLevel)

	p, err := cfg.Palette()
	require.NoError(t, err)
	assert.Equal(t, postprocess.DefaultPalette(), p)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
model:
  path: /models/deeplabv3.onnx
  input_size: 257
inference:
  backend: opencv
  threads: 4
segmentation:
  mode: multiclass
  scan_class_set: true
render:
  palette: ["#000000", "#ff0000"]
  blend_alpha: 0.25
`)
	cfg, err := Load(path, Options{})
	require.NoError(t, err)

	assert.Equal(t, "/models/deeplabv3.onnx", cfg.Model.Path)
	assert.Equal(t, 257, cfg.Model.InputSize)
	assert.Equal(t, "opencv", cfg.Inference.Backend)
	assert.Equal(t, "multiclass", cfg.Segmentation.Mode)
	assert.True(t, cfg.Segmentation.ScanClassSet)
	assert.Equal(t, 0.25, cfg.Render.BlendAlpha)

	p, err := cfg.Palette()
	require.NoError(t, err)
	assert.Len(t, p, 2)

	args := cfg.ModelArgs()
	assert.Equal(t, model.ModelNameDeepLabV3, args.Name)
	assert.Equal(t, 257, args.InputSize)

	b := cfg.Backend()
	assert.Equal(t, backend.KindOpenCV, b.Kind)
	assert.Equal(t, 4, b.Provider.Threads)
	assert.Equal(t, providers.CPUProviderBackend, b.Provider.Backend)
}

func TestLoadZeroForeground(t *testing.T) {
	cfg, err := Load(writeConfig(t, "segmentation:\n  foreground_value: 0\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Segmentation.ForegroundValue)

	args := cfg.ModelArgs()
	require.NotNil(t, args.ForegroundValue)
	assert.Equal(t, 0, *args.ForegroundValue)
}

func TestLoadPaletteFromEnv(t *testing.T) {
	t.Setenv("SEGMENT_RENDER_PALETTE", "#000000,#00ff00")

	cfg, err := Load("", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"#000000", "#00ff00"}, cfg.Render.Palette)

	p, err := cfg.Palette()
	require.NoError(t, err)
	require.Len(t, p, 2)
	assert.Equal(t, uint8(0xff), p[1].G)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, "model:\n  path: /from/file.onnx\nlog_level: debug\n")
	t.Setenv("SEGMENT_MODEL_PATH", "/from/env.onnx")
	t.Setenv("SEGMENT_LOG_LEVEL", "warn")

	cfg, err := Load(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, "/from/env.onnx", cfg.Model.Path)
	assert.Equal(t, "warn", cfg.LogLevel)

	cfg, err = Load(path, Options{ModelPath: "/from/flag.onnx"})
	require.NoError(t, err)
	assert.Equal(t, "/from/flag.onnx", cfg.Model.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), Options{})
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"input size", "model:\n  input_size: -3\n"},
		{"backend", "inference:\n  backend: tflite\n"},
		{"provider", "inference:\n  provider: tpu\n"},
		{"threads", "inference:\n  threads: -1\n"},
		{"mode", "segmentation:\n  mode: instance\n"},
		{"alpha", "render:\n  blend_alpha: 2\n"},
		{"palette", "render:\n  palette: [\"not-a-color\"]\n"},
		{"log level", "log_level: chatty\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), Options{})
			assert.Error(t, err)
		})
	}
}
