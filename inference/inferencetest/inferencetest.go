// Package inferencetest - Deterministic engines for tests.
package inferencetest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-segmentation/inference"
)

// Constant returns the same D×D prediction for every input.
type Constant struct {
	Size   int
	Values []float32

	closed atomic.Bool
}

var _ inference.Engine = (*Constant)(nil)

// NewConstant creates an engine returning values, which must hold size×size entries.
func NewConstant(size int, values []float32) *Constant {
	return &Constant{Size: size, Values: values}
}

// Fill creates an engine predicting v for every pixel.
func Fill(size int, v float32) *Constant {
	values := make([]float32, size*size)
	for i := range values {
		values[i] = v
	}
	return NewConstant(size, values)
}

// Infer returns a copy of the constant prediction.
func (c *Constant) Infer(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := inference.InputData(input, c.Size); err != nil {
		return nil, err
	}
	out := make([]float32, len(c.Values))
	copy(out, c.Values)
	return tensor.New(tensor.WithShape(c.Size, c.Size), tensor.WithBacking(out)), nil
}

// Close marks the engine closed.
func (c *Constant) Close() error {
	c.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (c *Constant) Closed() bool { return c.closed.Load() }

// Failing returns Err from every Infer call.
type Failing struct {
	Err error
}

// Infer returns f.Err.
func (f Failing) Infer(context.Context, *tensor.Dense) (*tensor.Dense, error) {
	if f.Err == nil {
		return nil, errors.New("inference failed")
	}
	return nil, f.Err
}

// Close is a no-op.
func (Failing) Close() error { return nil }

// Event is one entry or exit recorded by a Recorder.
type Event struct {
	Call  int
	Enter bool
}

// Recorder wraps an engine and records the order calls enter and leave it.
// Overlapping calls show up as two consecutive Enter events.
type Recorder struct {
	Engine inference.Engine
	Delay  time.Duration

	mu     sync.Mutex
	calls  int
	active int
	peak   int
	events []Event
}

// NewRecorder wraps engine, holding each call for delay.
func NewRecorder(engine inference.Engine, delay time.Duration) *Recorder {
	return &Recorder{Engine: engine, Delay: delay}
}

// Infer records entry, waits Delay, delegates and records exit.
func (r *Recorder) Infer(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	r.mu.Lock()
	r.calls++
	call := r.calls
	r.active++
	if r.active > r.peak {
		r.peak = r.active
	}
	r.events = append(r.events, Event{Call: call, Enter: true})
	r.mu.Unlock()

	if r.Delay > 0 {
		time.Sleep(r.Delay)
	}
	out, err := r.Engine.Infer(ctx, input)

	r.mu.Lock()
	r.active--
	r.events = append(r.events, Event{Call: call, Enter: false})
	r.mu.Unlock()
	return out, err
}

// Close closes the wrapped engine.
func (r *Recorder) Close() error { return r.Engine.Close() }

// Calls returns the number of Infer calls.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// MaxConcurrent returns the largest number of calls in flight at once.
func (r *Recorder) MaxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
