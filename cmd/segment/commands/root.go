// Package commands - Command line interface for the segmentation pipeline.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-segmentation/config"
	"github.com/nvr-ai/go-segmentation/inference/backend"
	"github.com/nvr-ai/go-segmentation/pipeline"
)

// Deps are the pieces main wires in.
type Deps struct {
	Version string
	Commit  string
	// NewLoader opens engines for the configured backend.
	NewLoader func(cfg backend.Config) (pipeline.EngineLoader, error)
}

type globalFlags struct {
	configPath string
	opts       config.Options
}

func (g *globalFlags) load() (*config.Config, error) {
	return config.Load(g.configPath, g.opts)
}

// NewRootCmd builds the segment command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "segment",
		Short: "Semantic segmentation of photos with a pretrained model",
		Long: `segment runs a semantic segmentation model on photos and writes a
color-coded class mask and an overlay blended onto the original image.

Configuration is read from ./segment.yaml or $HOME/.segment/segment.yaml and
can be overridden with SEGMENT_* environment variables, for example:
  SEGMENT_MODEL_PATH=/models/deeplabv3.onnx
  SEGMENT_INFERENCE_PROVIDER=coreml`,
		Version:       fmt.Sprintf("%s (commit: %s)", deps.Version, deps.Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to configuration file")
	pf.StringVar(&g.opts.ModelPath, "model", "", "Path to the ONNX model")
	pf.StringVar(&g.opts.LabelsPath, "labels", "", "Path to a JSON label list")
	pf.StringVar(&g.opts.Backend, "backend", "", "Inference backend (onnx, opencv)")
	pf.StringVar(&g.opts.Provider, "provider", "", "Execution provider (cpu, coreml, cuda, openvino)")
	pf.StringVar(&g.opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(g, deps))
	root.AddCommand(newLabelsCmd(g))
	root.AddCommand(newBenchCmd(g, deps))
	root.AddCommand(newVersionCmd(deps))
	return root
}

func newVersionCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "segment %s\n  Commit: %s\n", deps.Version, deps.Commit)
		},
	}
}
