package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-segmentation/config"
	"github.com/nvr-ai/go-segmentation/images"
	"github.com/nvr-ai/go-segmentation/logging"
	"github.com/nvr-ai/go-segmentation/metrics"
	"github.com/nvr-ai/go-segmentation/models/postprocess"
	"github.com/nvr-ai/go-segmentation/pipeline"
	"github.com/nvr-ai/go-segmentation/render"
	"github.com/nvr-ai/go-segmentation/util"
)

type runFlags struct {
	images   []string
	dir      string
	out      string
	format   string
	parallel int
}

func newRunCmd(g *globalFlags, deps Deps) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Segment images and write masks and overlays",
		Example: `  segment run --model deeplabv3.onnx --image beach.jpg --out ./out
  segment run --dir ./frames --out ./out --format jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			return runSegment(cmd.Context(), cmd.OutOrStdout(), cfg, f, deps)
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVar(&f.images, "image", nil, "Image to segment (repeatable)")
	fl.StringVar(&f.dir, "dir", "", "Directory of images to segment")
	fl.StringVar(&f.out, "out", ".", "Output directory")
	fl.StringVar(&f.format, "format", "png", "Output encoding (png, jpg)")
	fl.IntVar(&f.parallel, "parallel", 4, "Images decoded and encoded concurrently")
	return cmd
}

func runSegment(ctx context.Context, stdout io.Writer, cfg *config.Config, f *runFlags, deps Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Console: cfg.LogConsole})
	if err != nil {
		return err
	}

	inputs, err := collectInputs(f)
	if err != nil {
		return err
	}
	ext, err := outputExt(f.format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.out, 0o750); err != nil {
		return errors.Wrapf(err, "create output directory %s", f.out)
	}

	m := metrics.New()
	p, err := openPipeline(cfg, deps, log, m)
	if err != nil {
		return err
	}
	defer p.Close()

	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(f.parallel, 1))
	stems := outputStems(inputs)
	for i, path := range inputs {
		stem := stems[i]
		eg.Go(func() error {
			line, err := segmentFile(ctx, p, path, stem, f.out, ext, log)
			if err != nil {
				return errors.WithMessage(err, path)
			}
			mu.Lock()
			defer mu.Unlock()
			_, err = fmt.Fprintln(stdout, line)
			return err
		})
	}
	runErr := eg.Wait()

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn().Err(err).Msg("failed to write metrics")
		}
	}
	return runErr
}

func collectInputs(f *runFlags) ([]string, error) {
	inputs := append([]string(nil), f.images...)
	if f.dir != "" {
		files, err := util.ListDirectoryImageFiles(f.dir)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			inputs = append(inputs, file.Path)
		}
	}
	if len(inputs) == 0 {
		return nil, errors.New("no input images: use --image or --dir")
	}
	return inputs, nil
}

// outputStems names the outputs of each input after its file stem. Inputs
// sharing a stem get a numeric suffix so no two write the same files.
func outputStems(inputs []string) []string {
	taken := make(map[string]bool, len(inputs))
	for _, path := range inputs {
		taken[strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))] = false
	}

	stems := make([]string, len(inputs))
	for i, path := range inputs {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if used := taken[stem]; used {
			base := stem
			for n := 2; ; n++ {
				stem = fmt.Sprintf("%s-%d", base, n)
				if _, exists := taken[stem]; !exists {
					break
				}
			}
		}
		taken[stem] = true
		stems[i] = stem
	}
	return stems
}

func outputExt(format string) (string, error) {
	switch strings.ToLower(format) {
	case "png":
		return ".png", nil
	case "jpg", "jpeg":
		return ".jpg", nil
	default:
		return "", errors.Errorf("unsupported output format %q", format)
	}
}

func segmentFile(
	ctx context.Context,
	p *pipeline.Pipeline,
	path, stem, outDir, ext string,
	log zerolog.Logger,
) (string, error) {
	src, err := images.Open(path)
	if err != nil {
		return "", err
	}
	img, err := src.Decode()
	if err != nil {
		return "", err
	}

	res, err := p.Run(ctx, img)
	if err != nil {
		return "", err
	}

	if err := render.Save(filepath.Join(outDir, stem+"_mask"+ext), res.Visualization); err != nil {
		return "", err
	}
	if err := render.Save(filepath.Join(outDir, stem+"_overlay"+ext), res.Overlay); err != nil {
		return "", err
	}

	log.Info().
		Str("request_id", res.RequestID).
		Str("image", path).
		Dur("total", res.Timings.Total()).
		Msg("segmented image")

	return fmt.Sprintf("%s\t%s\t%s", path, strings.Join(res.Legend.Labels(), ","), res.Timings.Total()), nil
}

// openPipeline builds and initializes a pipeline from cfg.
func openPipeline(cfg *config.Config, deps Deps, log zerolog.Logger, m *metrics.Metrics) (*pipeline.Pipeline, error) {
	palette, err := cfg.Palette()
	if err != nil {
		return nil, err
	}
	if deps.NewLoader == nil {
		return nil, errors.New("no inference backend available")
	}
	loader, err := deps.NewLoader(cfg.Backend())
	if err != nil {
		return nil, err
	}

	p := pipeline.New(pipeline.Config{
		Model:        cfg.ModelArgs(),
		LabelsPath:   cfg.LabelsPath,
		Mode:         postprocess.Mode(cfg.Segmentation.Mode),
		ScanClassSet: cfg.Segmentation.ScanClassSet,
		Palette:      palette,
		BlendAlpha:   cfg.Render.BlendAlpha,
	}, loader, pipeline.WithLogger(log), pipeline.WithMetrics(m))

	if err := <-p.Initialize(); err != nil {
		return nil, multierr.Append(err, p.Close())
	}
	return p, nil
}
