package commands

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-segmentation/inference"
	"github.com/nvr-ai/go-segmentation/inference/backend"
	"github.com/nvr-ai/go-segmentation/inference/inferencetest"
	"github.com/nvr-ai/go-segmentation/models/model"
	"github.com/nvr-ai/go-segmentation/pipeline"
)

func stubDeps() Deps {
	return Deps{
		Version: "1.2.3",
		Commit:  "abc123",
		NewLoader: func(backend.Config) (pipeline.EngineLoader, error) {
			return func(opts model.Options) (inference.Engine, error) {
				return inferencetest.Fill(opts.InputSize, 15), nil
			}, nil
		},
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func testEnv(t *testing.T) (cfgPath, inDir, outDir string) {
	t.Helper()
	root := t.TempDir()
	cfgPath = filepath.Join(root, "segment.yaml")
	writeFile(t, cfgPath, []byte("model:\n  input_size: 4\nlog_level: error\n"))

	inDir = filepath.Join(root, "in")
	require.NoError(t, os.Mkdir(inDir, 0o700))
	for _, name := range []string{"frame-1.png", "frame-2.png"} {
		img := image.NewRGBA(image.Rect(0, 0, 8, 6))
		for i := range img.Pix {
			img.Pix[i] = 128
			if i%4 == 3 {
				img.Pix[i] = 255
			}
		}
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))
		writeFile(t, filepath.Join(inDir, name), buf.Bytes())
	}
	return cfgPath, inDir, filepath.Join(root, "out")
}

func execute(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(deps)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunDirectory(t *testing.T) {
	cfgPath, inDir, outDir := testEnv(t)

	out, err := execute(t, stubDeps(), "run", "--config", cfgPath, "--dir", inDir, "--out", outDir)
	require.NoError(t, err)

	for _, name := range []string{"frame-1_mask.png", "frame-1_overlay.png", "frame-2_mask.png", "frame-2_overlay.png"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
	assert.Contains(t, out, "background,person")

	f, err := os.Open(filepath.Join(outDir, "frame-1_overlay.png"))
	require.NoError(t, err)
	defer f.Close()
	overlay, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), overlay.Bounds())
	// Every pixel is "person", so the gray input picks up a red tint.
	px := color.NRGBAModel.Convert(overlay.At(0, 0)).(color.NRGBA)
	assert.Greater(t, px.R, px.G)
}

func TestRunSingleImageJPEG(t *testing.T) {
	cfgPath, inDir, outDir := testEnv(t)

	_, err := execute(t, stubDeps(), "run", "--config", cfgPath,
		"--image", filepath.Join(inDir, "frame-2.png"), "--out", outDir, "--format", "jpg")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "frame-2_mask.jpg"))
}

func TestRunErrors(t *testing.T) {
	cfgPath, inDir, outDir := testEnv(t)

	_, err := execute(t, stubDeps(), "run", "--config", cfgPath, "--out", outDir)
	assert.ErrorContains(t, err, "no input images")

	_, err = execute(t, stubDeps(), "run", "--config", cfgPath, "--dir", inDir, "--out", outDir, "--format", "gif")
	assert.ErrorContains(t, err, "unsupported output format")

	broken := stubDeps()
	broken.NewLoader = func(backend.Config) (pipeline.EngineLoader, error) {
		return func(model.Options) (inference.Engine, error) { return nil, errors.New("missing model") }, nil
	}
	_, err = execute(t, broken, "run", "--config", cfgPath, "--dir", inDir, "--out", outDir)
	assert.True(t, errors.Is(err, pipeline.ErrInvalidModel))

	bad := filepath.Join(inDir, "frame-3.png")
	writeFile(t, bad, []byte("not a png"))
	_, err = execute(t, stubDeps(), "run", "--config", cfgPath, "--image", bad, "--out", outDir)
	assert.ErrorContains(t, err, "frame-3.png")
}

func TestBench(t *testing.T) {
	cfgPath, inDir, outDir := testEnv(t)

	out, err := execute(t, stubDeps(), "bench", "--config", cfgPath,
		"--image", filepath.Join(inDir, "frame-1.png"), "--iterations", "2", "--warmup", "0", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "SCENARIO")
	assert.Contains(t, out, "frame-1.png")
	assert.Contains(t, out, "summary: ")

	jsons, err := filepath.Glob(filepath.Join(outDir, "benchmark_results_*.json"))
	require.NoError(t, err)
	assert.Len(t, jsons, 1)

	_, err = execute(t, stubDeps(), "bench", "--config", cfgPath, "--iterations", "0")
	assert.Error(t, err)
}

func TestRunDuplicateStems(t *testing.T) {
	cfgPath, inDir, outDir := testEnv(t)
	other := filepath.Join(inDir, "other")
	require.NoError(t, os.Mkdir(other, 0o700))
	data, err := os.ReadFile(filepath.Join(inDir, "frame-1.png"))
	require.NoError(t, err)
	writeFile(t, filepath.Join(other, "frame-1.png"), data)

	_, err = execute(t, stubDeps(), "run", "--config", cfgPath,
		"--image", filepath.Join(inDir, "frame-1.png"),
		"--image", filepath.Join(other, "frame-1.png"),
		"--out", outDir)
	require.NoError(t, err)

	for _, name := range []string{"frame-1_mask.png", "frame-1_overlay.png", "frame-1-2_mask.png", "frame-1-2_overlay.png"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestOutputStems(t *testing.T) {
	got := outputStems([]string{"a/x.png", "b/x.jpg", "x-2.png", "c/x.png", "y.png"})
	assert.Equal(t, []string{"x", "x-3", "x-2", "x-4", "y"}, got)
}

func TestLabels(t *testing.T) {
	out, err := execute(t, stubDeps(), "labels", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "INDEX")
	assert.Regexp(t, `15\s+person`, out)
	assert.Contains(t, out, "#c08080")
}

func TestLabelsCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")
	writeFile(t, path, []byte(`["sky","tree"]`))

	out, err := execute(t, stubDeps(), "labels", "--labels", path)
	require.NoError(t, err)
	assert.Contains(t, out, "tree")
	assert.NotContains(t, out, "person")

	writeFile(t, path, []byte(`{}`))
	_, err = execute(t, stubDeps(), "labels", "--labels", path)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, stubDeps(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "segment 1.2.3")
	assert.Contains(t, out, "abc123")
}
