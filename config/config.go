// Package config - Configuration loading for the segmentation pipeline.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/nvr-ai/go-segmentation/inference/backend"
	"github.com/nvr-ai/go-segmentation/inference/providers"
	"github.com/nvr-ai/go-segmentation/models/deeplabv3"
	"github.com/nvr-ai/go-segmentation/models/model"
	"github.com/nvr-ai/go-segmentation/models/postprocess"
)

// EnvPrefix prefixes environment overrides, e.g. SEGMENT_MODEL_PATH.
const EnvPrefix = "SEGMENT"

// Config is the complete runtime configuration.
type Config struct {
	Model        ModelConfig        `mapstructure:"model"`
	LabelsPath   string             `mapstructure:"labels_path"`
	Inference    InferenceConfig    `mapstructure:"inference"`
	Segmentation SegmentationConfig `mapstructure:"segmentation"`
	Render       RenderConfig       `mapstructure:"render"`
	LogLevel     string             `mapstructure:"log_level"`
	LogConsole   bool               `mapstructure:"log_console"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// ModelConfig selects the model.
type ModelConfig struct {
	Name       string `mapstructure:"name"`
	Path       string `mapstructure:"path"`
	InputSize  int    `mapstructure:"input_size"`
	InputName  string `mapstructure:"input_name"`
	OutputName string `mapstructure:"output_name"`
}

// InferenceConfig selects the engine and execution provider.
type InferenceConfig struct {
	Backend     string `mapstructure:"backend"`
	Provider    string `mapstructure:"provider"`
	Threads     int    `mapstructure:"threads"`
	DeviceID    int    `mapstructure:"device_id"`
	LibraryPath string `mapstructure:"library_path"`
}

// SegmentationConfig controls post-processing.
type SegmentationConfig struct {
	Mode            string `mapstructure:"mode"`
	ForegroundValue int    `mapstructure:"foreground_value"`
	ScanClassSet    bool   `mapstructure:"scan_class_set"`
}

// RenderConfig controls visualization.
type RenderConfig struct {
	// Palette holds hex colors; empty uses the VOC colormap.
	Palette    []string `mapstructure:"palette"`
	BlendAlpha float64  `mapstructure:"blend_alpha"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	// Textfile is written with the final metric values when set.
	Textfile string `mapstructure:"textfile"`
}

// Options are explicit overrides, typically from command line flags.
type Options struct {
	ModelPath  string
	LabelsPath string
	Backend    string
	Provider   string
	LogLevel   string
}

// Load loads configuration from file and applies command line options.
//
// Precedence, lowest first: defaults, config file, SEGMENT_* environment
// variables, opts.
//
// Arguments:
//   - configPath: A config file. Empty searches ./segment.yaml and $HOME/.segment/.
//   - opts: Explicit overrides.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: An error if the file cannot be read or a value is invalid.
func Load(configPath string, opts Options) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	} else {
		v.SetConfigName("segment")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.segment")

		// Ignore error if config file not found
		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ModelPath != "" {
		v.Set("model.path", opts.ModelPath)
	}
	if opts.LabelsPath != "" {
		v.Set("labels_path", opts.LabelsPath)
	}
	if opts.Backend != "" {
		v.Set("inference.backend", opts.Backend)
	}
	if opts.Provider != "" {
		v.Set("inference.provider", opts.Provider)
	}
	if opts.LogLevel != "" {
		v.Set("log_level", opts.LogLevel)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.name", string(model.ModelNameDeepLabV3))
	v.SetDefault("model.path", "")
	v.SetDefault("model.input_size", deeplabv3.InputSize)
	v.SetDefault("model.input_name", "")
	v.SetDefault("model.output_name", "")

	v.SetDefault("labels_path", "")

	v.SetDefault("inference.backend", string(backend.KindONNX))
	v.SetDefault("inference.provider", string(providers.CPUProviderBackend))
	v.SetDefault("inference.threads", 0)
	v.SetDefault("inference.device_id", 0)
	v.SetDefault("inference.library_path", "")

	v.SetDefault("segmentation.mode", string(postprocess.ModeBinary))
	v.SetDefault("segmentation.foreground_value", postprocess.DefaultForegroundValue)
	v.SetDefault("segmentation.scan_class_set", false)

	v.SetDefault("render.palette", []string{})
	v.SetDefault("render.blend_alpha", 0.5)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_console", false)
	v.SetDefault("metrics.textfile", "")
}

func (c *Config) validate() error {
	if c.Model.InputSize <= 0 {
		return errors.Errorf("model.input_size must be positive, got %d", c.Model.InputSize)
	}
	if _, err := backend.ParseKind(c.Inference.Backend); err != nil {
		return errors.Wrap(err, "inference.backend")
	}
	if _, err := providers.ParseBackend(c.Inference.Provider); err != nil {
		return errors.Wrap(err, "inference.provider")
	}
	if c.Inference.Threads < 0 {
		return errors.Errorf("inference.threads must not be negative, got %d", c.Inference.Threads)
	}
	switch postprocess.Mode(c.Segmentation.Mode) {
	case postprocess.ModeBinary, postprocess.ModeMultiClass:
	default:
		return errors.Errorf("segmentation.mode must be %q or %q, got %q",
			postprocess.ModeBinary, postprocess.ModeMultiClass, c.Segmentation.Mode)
	}
	if c.Render.BlendAlpha < 0 || c.Render.BlendAlpha > 1 {
		return errors.Errorf("render.blend_alpha must be in [0,1], got %v", c.Render.BlendAlpha)
	}
	if _, err := c.Palette(); err != nil {
		return errors.Wrap(err, "render.palette")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return errors.Wrapf(err, "log_level %q", c.LogLevel)
	}
	return nil
}

// Palette parses the configured palette, or returns the default one.
func (c *Config) Palette() (postprocess.Palette, error) {
	if len(c.Render.Palette) == 0 {
		return postprocess.DefaultPalette(), nil
	}
	return postprocess.NewPalette(c.Render.Palette...)
}

// ModelArgs returns the arguments for models.NewModel.
func (c *Config) ModelArgs() model.NewModelArgs {
	fg := c.Segmentation.ForegroundValue
	return model.NewModelArgs{
		Name:            model.Name(c.Model.Name),
		Path:            c.Model.Path,
		InputSize:       c.Model.InputSize,
		ForegroundValue: &fg,
		InputName:       c.Model.InputName,
		OutputName:      c.Model.OutputName,
	}
}

// Backend returns the engine backend settings.
func (c *Config) Backend() backend.Config {
	return backend.Config{
		Kind:        backend.Kind(c.Inference.Backend),
		LibraryPath: c.Inference.LibraryPath,
		Provider: providers.Options{
			Backend:  providers.ProviderBackend(c.Inference.Provider),
			Threads:  c.Inference.Threads,
			DeviceID: c.Inference.DeviceID,
		},
	}
}
