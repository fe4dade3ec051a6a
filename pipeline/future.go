package pipeline

import (
	"context"
)

// Future is the pending outcome of one segmentation request.
type Future struct {
	id   string
	done chan struct{}
	res  *Result
	err  error
}

func newFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

func (f *Future) resolve(res *Result, err error) {
	f.res, f.err = res, err
	close(f.done)
}

// ID returns the request ID.
func (f *Future) ID() string { return f.id }

// Done is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the request completes or ctx ends. Abandoning the wait
// does not cancel the request.
func (f *Future) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
