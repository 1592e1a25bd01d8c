package hostproc

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

const (
	minWorkers = 1
	maxWorkers = 2
)

// Pool bounds how many blocking host calls run at once. Callers never run the
// work on their own goroutine; they wait on a Future instead.
type Pool struct {
	size int
	sem  *semaphore.Weighted
	wg   sync.WaitGroup
}

// NewPool returns a pool with size clamped to [1, 2].
func NewPool(size int) *Pool {
	if size < minWorkers {
		size = minWorkers
	}
	if size > maxWorkers {
		size = maxWorkers
	}
	return &Pool{size: size, sem: semaphore.NewWeighted(int64(size))}
}

// Size reports the number of concurrent workers.
func (p *Pool) Size() int { return p.size }

// Wait blocks until every dispatched job has finished.
func (p *Pool) Wait() { p.wg.Wait() }

// Future is the pending result of a job submitted to a Pool.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Await returns the job's result, or ctx.Err() if ctx ends first. Giving up
// does not stop the job; it runs to completion and its result is discarded.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit dispatches fn onto p. fn receives ctx stripped of its cancellation so an
// abandoned caller cannot interrupt the OS call mid-flight.
func Submit[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	jobCtx := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(f.done)
		// Background context: a queued job still runs even if its caller left.
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			f.err = err
			return
		}
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("offloaded call panicked: %v", r)
			}
		}()
		f.val, f.err = fn(jobCtx)
	}()
	return f
}
