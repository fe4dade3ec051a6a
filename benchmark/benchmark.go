// Package benchmark - Functionality for running benchmarks.
package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nvr-ai/go-segmentation/pipeline"
)

// Resolution represents image dimensions for benchmarking
type Resolution struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// CommonResolutions are typical photo sizes.
var CommonResolutions = []Resolution{
	{Width: 513, Height: 513, Name: "513x513"},
	{Width: 640, Height: 480, Name: "640x480"},
	{Width: 1280, Height: 720, Name: "1280x720"},
	{Width: 1920, Height: 1080, Name: "1920x1080"},
}

// Scenario defines a specific test configuration
type Scenario struct {
	Name       string     `json:"name"`
	Resolution Resolution `json:"resolution"`
	Iterations int        `json:"iterations"`
	WarmupRuns int        `json:"warmup_runs"`
}

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario              Scenario      `json:"scenario"`
	Timestamp             time.Time     `json:"timestamp"`
	TotalDuration         time.Duration `json:"total_duration"`
	PreprocessDuration    time.Duration `json:"preprocess_duration"`
	InferenceDuration     time.Duration `json:"inference_duration"`
	PostProcessDuration   time.Duration `json:"post_process_duration"`
	VisualizationDuration time.Duration `json:"visualization_duration"`
	FramesPerSecond       float64       `json:"frames_per_second"`
	MemoryStats           MemoryMetrics `json:"memory_stats"`
	ErrorRate             float64       `json:"error_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}

// Runner segments one image; *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, img image.Image) (*pipeline.Result, error)
}

// Suite manages and executes benchmark scenarios
type Suite struct {
	runner    Runner
	outputDir string
	log       zerolog.Logger

	mu      sync.RWMutex
	results []PerformanceMetrics
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - runner: The pipeline to measure.
//   - outputDir: Where SaveResults writes; empty disables saving.
//   - log: Receives per-scenario summaries.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(runner Runner, outputDir string, log zerolog.Logger) *Suite {
	return &Suite{runner: runner, outputDir: outputDir, log: log}
}

// SyntheticImage builds a deterministic gradient image of the given size.
func SyntheticImage(r Resolution) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / max(r.Width-1, 1)),
				G: uint8(y * 255 / max(r.Height-1, 1)),
				B: 96,
				A: 255,
			})
		}
	}
	return img
}

// RunScenario executes a single benchmark scenario. img is used as input
// when non-nil, otherwise a synthetic image at the scenario resolution.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario, img image.Image) (*PerformanceMetrics, error) {
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("scenario %s: iterations must be positive", scenario.Name)
	}
	if img == nil {
		img = SyntheticImage(scenario.Resolution)
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		if _, err := s.runner.Run(ctx, img); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue // Skip warmup errors
		}
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	var (
		timings pipeline.Timings
		ok      int
		failed  int
	)
	start := time.Now()
	for i := 0; i < scenario.Iterations; i++ {
		res, err := s.runner.Run(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			continue
		}
		ok++
		timings.Preprocess += res.Timings.Preprocess
		timings.Inference += res.Timings.Inference
		timings.PostProcess += res.Timings.PostProcess
		timings.Visualization += res.Timings.Visualization
	}
	total := time.Since(start)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	m := &PerformanceMetrics{
		Scenario:      scenario,
		Timestamp:     start,
		TotalDuration: total,
		ErrorRate:     float64(failed) / float64(scenario.Iterations),
		MemoryStats: MemoryMetrics{
			AllocBytes:      endMem.Alloc,
			TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
			SysBytes:        endMem.Sys,
			NumGC:           endMem.NumGC - startMem.NumGC,
			HeapAllocBytes:  endMem.HeapAlloc,
		},
	}
	if total > 0 {
		m.FramesPerSecond = float64(ok) / total.Seconds()
	}
	if ok > 0 {
		n := time.Duration(ok)
		m.PreprocessDuration = timings.Preprocess / n
		m.InferenceDuration = timings.Inference / n
		m.PostProcessDuration = timings.PostProcess / n
		m.VisualizationDuration = timings.Visualization / n
	}

	s.mu.Lock()
	s.results = append(s.results, *m)
	s.mu.Unlock()

	s.log.Info().
		Str("scenario", scenario.Name).
		Float64("fps", m.FramesPerSecond).
		Dur("inference_avg", m.InferenceDuration).
		Float64("error_rate", m.ErrorRate).
		Msg("scenario completed")

	return m, nil
}

// Results returns all benchmark results
func (s *Suite) Results() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]PerformanceMetrics, len(s.results))
	copy(results, s.results)
	return results
}

// SaveResults writes the results as JSON and a CSV summary, returning both paths.
func (s *Suite) SaveResults() (string, string, error) {
	results := s.Results()

	if err := os.MkdirAll(s.outputDir, 0o750); err != nil {
		return "", "", errors.Wrap(err, "failed to create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o600); err != nil {
		return "", "", errors.Wrap(err, "failed to write results file")
	}

	summaryFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return "", "", errors.Wrap(err, "failed to save summary CSV")
	}
	return resultsFile, summaryFile, nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	_ = w.Write([]string{
		"scenario", "resolution", "fps", "total_ms",
		"preprocess_ms", "inference_ms", "postprocess_ms", "visualization_ms", "error_rate",
	})
	ms := func(d time.Duration) string { return strconv.FormatFloat(float64(d.Nanoseconds())/1e6, 'f', 3, 64) }
	for _, r := range results {
		_ = w.Write([]string{
			r.Scenario.Name,
			r.Scenario.Resolution.Name,
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			ms(r.TotalDuration),
			ms(r.PreprocessDuration),
			ms(r.InferenceDuration),
			ms(r.PostProcessDuration),
			ms(r.VisualizationDuration),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		})
	}
	w.Flush()
	return w.Error()
}
