package gate

import (
	"context"

	"github.com/nebula-ui/nebula-upload/internal/models"
)

// Future is a file that becomes available later.
type Future struct {
	done chan struct{}
	file *models.File
	err  error
}

// Defer runs fn on its own goroutine and returns a Future for its result.
func Defer(ctx context.Context, fn func(ctx context.Context) (*models.File, error)) *Future {
	fut := &Future{done: make(chan struct{})}
	go func() {
		defer close(fut.done)
		fut.file, fut.err = fn(ctx)
	}()
	return fut
}

// Resolved returns a Future that is already settled with f.
func Resolved(f *models.File) *Future {
	fut := &Future{done: make(chan struct{}), file: f}
	close(fut.done)
	return fut
}

// Failed returns a Future that is already settled with err.
func Failed(err error) *Future {
	fut := &Future{done: make(chan struct{}), err: err}
	close(fut.done)
	return fut
}

// Done is closed once the Future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future settles or ctx is done.
func (f *Future) Await(ctx context.Context) (*models.File, error) {
	select {
	case <-f.done:
		return f.file, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
