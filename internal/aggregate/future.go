package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Future is the handle a Service hands back from Retrieve. It resolves exactly
// once, either to a value or to a failure; later Resolve/Reject calls are ignored.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value string
	err   error
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future that has already succeeded with value.
func Resolved(value string) *Future {
	f := NewFuture()
	f.Resolve(value)
	return f
}

// Failed returns a future that has already failed with err.
func Failed(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// Go runs fn on its own goroutine and returns a future for its result.
// A panic in fn rejects the future instead of crashing the process.
func Go(fn func() (string, error)) *Future {
	f := NewFuture()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Reject(fmt.Errorf("panic: %v", r))
			}
		}()
		v, err := fn()
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()
	return f
}

// Resolve completes the future successfully. It reports whether this call
// performed the transition.
func (f *Future) Resolve(value string) bool {
	return f.complete(value, nil)
}

// Reject completes the future with a failure. A nil err is replaced so that a
// rejected future never looks like a success.
func (f *Future) Reject(err error) bool {
	if err == nil {
		err = errors.New("future rejected without a cause")
	}
	return f.complete("", err)
}

func (f *Future) complete(value string, err error) bool {
	won := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
		won = true
	})
	return won
}

// Done is closed once the future is terminal.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the terminal value without blocking. Before Done is closed it
// returns ErrPending.
func (f *Future) Result() (string, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		return "", ErrPending
	}
}

// Await blocks until the future is terminal or ctx is done.
func (f *Future) Await(ctx context.Context) (string, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
