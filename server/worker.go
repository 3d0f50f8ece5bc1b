package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("worker stopped")

// request represents a unit of work to be executed on the worker goroutine.
type request struct {
	fn   func() (any, error)
	done chan result
}

// result holds the return value from a worker operation.
type result struct {
	value any
	err   error
}

// Worker serializes all interpreter access through a single goroutine.
// Interpreters are single-threaded; every Connect and gRPC handler
// that touches a Runner must go through the worker to avoid data races.
type Worker struct {
	requests chan request
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *Worker) execute(fn func() (any, error)) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res = result{err: fmt.Errorf("panic: %v", r)}
		}
	}()
	value, err := fn()
	return result{value: value, err: err}
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes or ctx is done. Returns the result and any error (including
// panics). Abandoning a call does not stop fn; fn should watch ctx itself.
func (w *Worker) Do(ctx context.Context, fn func() (any, error)) (any, error) {
	select {
	case <-w.quit:
		return nil, ErrWorkerStopped
	default:
	}

	req := request{
		fn:   fn,
		done: make(chan result, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
