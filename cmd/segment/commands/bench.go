package commands

import (
	"context"
	"fmt"
	"image"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-segmentation/benchmark"
	"github.com/nvr-ai/go-segmentation/config"
	"github.com/nvr-ai/go-segmentation/images"
	"github.com/nvr-ai/go-segmentation/logging"
	"github.com/nvr-ai/go-segmentation/metrics"
)

type benchFlags struct {
	image      string
	iterations int
	warmup     int
	out        string
}

func newBenchCmd(g *globalFlags, deps Deps) *cobra.Command {
	f := &benchFlags{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure per-stage segmentation latency",
		Example: `  segment bench --model deeplabv3.onnx --iterations 50
  segment bench --image beach.jpg --out ./results`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			return runBench(cmd.Context(), cmd.OutOrStdout(), cfg, f, deps)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.image, "image", "", "Benchmark this image instead of synthetic inputs")
	fl.IntVar(&f.iterations, "iterations", 20, "Measured iterations per scenario")
	fl.IntVar(&f.warmup, "warmup", 3, "Unmeasured warmup iterations per scenario")
	fl.StringVar(&f.out, "out", "", "Directory for JSON and CSV results")
	return cmd
}

func runBench(ctx context.Context, stdout io.Writer, cfg *config.Config, f *benchFlags, deps Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if f.iterations <= 0 {
		return errors.New("--iterations must be positive")
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Console: cfg.LogConsole})
	if err != nil {
		return err
	}

	var (
		img       image.Image
		scenarios []benchmark.Scenario
	)
	if f.image != "" {
		src, err := images.Open(f.image)
		if err != nil {
			return err
		}
		if img, err = src.Decode(); err != nil {
			return err
		}
		scenarios = append(scenarios, benchmark.Scenario{
			Name: f.image,
			Resolution: benchmark.Resolution{
				Width:  src.Width,
				Height: src.Height,
				Name:   fmt.Sprintf("%dx%d", src.Width, src.Height),
			},
			Iterations: f.iterations,
			WarmupRuns: f.warmup,
		})
	} else {
		for _, r := range benchmark.CommonResolutions {
			scenarios = append(scenarios, benchmark.Scenario{
				Name:       "synthetic_" + r.Name,
				Resolution: r,
				Iterations: f.iterations,
				WarmupRuns: f.warmup,
			})
		}
	}

	p, err := openPipeline(cfg, deps, log, metrics.New())
	if err != nil {
		return err
	}
	defer p.Close()

	suite := benchmark.NewSuite(p, f.out, log)
	for _, s := range scenarios {
		if _, err := suite.RunScenario(ctx, s, img); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tFPS\tPREPROCESS\tINFERENCE\tPOSTPROCESS\tVISUALIZATION\tERRORS")
	for _, r := range suite.Results() {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\t%s\t%.1f%%\n",
			r.Scenario.Name, r.FramesPerSecond,
			r.PreprocessDuration, r.InferenceDuration, r.PostProcessDuration, r.VisualizationDuration,
			r.ErrorRate*100)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if f.out != "" {
		jsonPath, csvPath, err := suite.SaveResults()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "results: %s\nsummary: %s\n", jsonPath, csvPath)
	}
	return nil
}
