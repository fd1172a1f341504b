package instrument

import (
	"context"
	"fmt"
)

// Future is the eventual result of an asynchronous computation.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Async runs fn on a new goroutine and returns a future for its result. A panic in fn resolves
// the future with an error.
func Async[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("future: computation panicked: panic=%v", r)
			}
		}()

		f.value, f.err = fn()
	}()

	return f
}

// Resolved returns a future that is already complete.
func Resolved[T any](value T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: value, err: err}
	close(f.done)

	return f
}

// Done returns a channel that is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done, whichever happens first.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// wait blocks until the result is available, regardless of any caller's cancellation.
func (f *Future[T]) wait() (T, error) {
	<-f.done

	return f.value, f.err
}
