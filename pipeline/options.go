package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/nvr-ai/go-segmentation/metrics"
	"github.com/nvr-ai/go-segmentation/profiler"
)

// DefaultQueueSize is the number of jobs that may wait for the worker
// before Submit blocks.
const DefaultQueueSize = 64

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.log = l.With().Str("component", "pipeline").Logger()
	}
}

// WithDispatcher routes SubmitFunc callbacks through dispatch, for hosts
// that must run them on their own loop. dispatch must not block for long;
// it is called from the pipeline's callback goroutine.
func WithDispatcher(dispatch func(func())) Option {
	return func(p *Pipeline) {
		p.dispatch = dispatch
	}
}

// WithMetrics records request and stage metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithProfiler records stage timings into sp instead of a private profiler.
func WithProfiler(sp *profiler.StageProfiler) Option {
	return func(p *Pipeline) {
		p.profiler = sp
	}
}

// WithQueueSize bounds the job queue.
func WithQueueSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.queueSize = n
		}
	}
}
