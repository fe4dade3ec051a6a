// Package profiler - Per-stage timing statistics for segmentation requests.
package profiler

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Stage names one step of a segmentation request.
type Stage string

const (
	StagePreprocess    Stage = "preprocess"
	StageInference     Stage = "inference"
	StagePostProcess   Stage = "postprocess"
	StageVisualization Stage = "visualization"
)

// Stages lists the request stages in execution order.
var Stages = []Stage{StagePreprocess, StageInference, StagePostProcess, StageVisualization}

// TimeTracker tracks operation timing statistics over a sliding window.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Stats is a snapshot of one TimeTracker.
type Stats struct {
	Count   int64         `json:"count"`
	Samples int           `json:"samples"`
	Avg     time.Duration `json:"avg"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Last    time.Duration `json:"last"`
}

// ProfilingOptions configures the profiler.
type ProfilingOptions struct {
	// ReportInterval specifies how often Start emits status reports (default: 30s).
	ReportInterval time.Duration
	// MaxSamples specifies the sliding window per stage (default: 600).
	MaxSamples int
	// Logger receives status reports.
	Logger zerolog.Logger
}

// StageProfiler records durations per stage. It is safe for concurrent use.
type StageProfiler struct {
	reportInterval time.Duration
	maxSamples     int
	logger         zerolog.Logger

	mu        sync.RWMutex
	startTime time.Time
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	operationTimes map[Stage]*TimeTracker
}

// NewStageProfiler creates a new profiler with the specified options.
//
// Arguments:
// - opts: Configuration options for the profiler
//
// Returns:
// - A configured StageProfiler instance
func NewStageProfiler(opts ProfilingOptions) *StageProfiler {
	if opts.ReportInterval == 0 {
		opts.ReportInterval = 30 * time.Second
	}
	if opts.MaxSamples == 0 {
		opts.MaxSamples = 600
	}
	return &StageProfiler{
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		logger:         opts.Logger,
		startTime:      time.Now(),
		operationTimes: make(map[Stage]*TimeTracker),
	}
}

// StartOperation begins timing a stage.
//
// Arguments:
// - stage: The stage to track
//
// Returns:
// - A function to call when the stage completes; it returns the elapsed time
func (sp *StageProfiler) StartOperation(stage Stage) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		sp.Record(stage, d)
		return d
	}
}

// Record adds a completed stage duration.
func (sp *StageProfiler) Record(stage Stage, d time.Duration) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	tracker, exists := sp.operationTimes[stage]
	if !exists {
		tracker = &TimeTracker{minTime: d, maxTime: d}
		sp.operationTimes[stage] = tracker
	}

	tracker.durations = append(tracker.durations, d)
	if len(tracker.durations) > sp.maxSamples {
		// Remove oldest sample
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.totalTime += d
	tracker.count++

	if d < tracker.minTime {
		tracker.minTime = d
	}
	if d > tracker.maxTime {
		tracker.maxTime = d
	}
}

// Snapshot returns the current statistics for every recorded stage.
func (sp *StageProfiler) Snapshot() map[Stage]Stats {
	sp.mu.RLock()
	defer sp.mu.RUnlock()

	out := make(map[Stage]Stats, len(sp.operationTimes))
	for stage, t := range sp.operationTimes {
		n := len(t.durations)
		if n == 0 {
			continue
		}
		out[stage] = Stats{
			Count:   t.count,
			Samples: n,
			Avg:     t.totalTime / time.Duration(n),
			Min:     t.minTime,
			Max:     t.maxTime,
			Last:    t.durations[n-1],
		}
	}
	return out
}

// Start begins periodic status reports. Calling it twice is a no-op.
func (sp *StageProfiler) Start() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.running {
		return
	}
	sp.running = true
	sp.startTime = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	sp.cancel = cancel

	sp.wg.Add(1)
	go func() {
		defer sp.wg.Done()

		ticker := time.NewTicker(sp.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sp.emitStatusReport()
			}
		}
	}()
}

// Stop ends status reports and waits for the reporter to exit.
func (sp *StageProfiler) Stop() {
	sp.mu.Lock()
	if !sp.running {
		sp.mu.Unlock()
		return
	}
	sp.running = false
	cancel := sp.cancel
	sp.mu.Unlock()

	cancel()
	sp.wg.Wait()
}

func (sp *StageProfiler) emitStatusReport() {
	snap := sp.Snapshot()

	sp.mu.RLock()
	uptime := time.Since(sp.startTime)
	sp.mu.RUnlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stages := make([]string, 0, len(snap))
	for s := range snap {
		stages = append(stages, string(s))
	}
	sort.Strings(stages)

	ev := sp.logger.Info().
		Dur("uptime", uptime.Truncate(time.Millisecond)).
		Int("goroutines", runtime.NumGoroutine()).
		Uint64("heap_alloc", mem.HeapAlloc)
	for _, name := range stages {
		st := snap[Stage(name)]
		ev = ev.Dict(name, zerolog.Dict().
			Int64("count", st.Count).
			Dur("avg", st.Avg).
			Dur("min", st.Min).
			Dur("max", st.Max))
	}
	ev.Msg("profiler status report")
}
