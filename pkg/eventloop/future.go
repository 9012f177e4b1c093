package eventloop

import (
	"context"
	"fmt"
)

// Future is the eventual result of work started with Async.
type Future[T any] struct {
	result T
	err    error
	done   chan struct{}
}

// Async runs fn on its own goroutine. A context cancelled before fn starts
// completes the future with the context error; a panic in fn completes it with ErrPanic.
func Async[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.result, f.err = zero, fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx)
	}()

	return f
}

// Await blocks until the work completes.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.result, f.err
}

// IsComplete reports whether the work has completed without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Go runs fn off the loop and posts then(result, err) back to it.
// If the loop is closed by the time fn returns, then is never called.
func Go[T any](l *Loop, ctx context.Context, fn func(context.Context) (T, error), then func(T, error)) *Future[T] {
	f := Async(ctx, fn)
	go func() {
		v, err := f.Await()
		l.Post(func() { then(v, err) })
	}()
	return f
}
