package pipeline

import (
	"sync"
	"sync/atomic"
)

// callbackQueue runs callbacks one at a time, in push order, on its own
// goroutine so a slow callback never stalls the worker.
type callbackQueue struct {
	dispatch func(func())

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	closed  bool
	done    chan struct{}

	// running is set while the loop goroutine is inside a callback.
	running atomic.Bool
}

func newCallbackQueue(dispatch func(func())) *callbackQueue {
	q := &callbackQueue{
		dispatch: dispatch,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *callbackQueue) push(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		go q.call(fn)
		return
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *callbackQueue) call(fn func()) {
	if q.dispatch != nil {
		q.dispatch(fn)
		return
	}
	fn()
}

func (q *callbackQueue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, fn := range batch {
			q.running.Store(true)
			q.call(fn)
			q.running.Store(false)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-q.wake
	}
}

// close runs everything already pushed, then stops the loop. Called while a
// callback is running, possibly from that callback, it does not wait: the
// loop finishes the remaining callbacks and exits on its own.
func (q *callbackQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	if q.running.Load() {
		return
	}
	<-q.done
}
