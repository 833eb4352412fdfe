package substrate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	apperrors "github.com/agbru/concfetch/internal/errors"
)

// ErrHandleConsumed is the cause reported when a handle is awaited twice.
var ErrHandleConsumed = errors.New("handle already awaited")

// PanicError is the cause reported when a task panics.
type PanicError struct {
	// Value is the value passed to panic.
	Value any
	// Stack is the goroutine stack captured at recovery.
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Handle is an owned token for a scheduled task. The result is delivered to
// the first Await; later calls fail with ErrHandleConsumed. A handle that is
// never awaited leaves its task detached: the task still runs to completion
// and its result is dropped.
type Handle[T any] struct {
	lane     string
	done     chan struct{}
	value    T
	err      error
	consumed atomic.Bool
}

func newHandle[T any](lane string) *Handle[T] {
	return &Handle[T]{lane: lane, done: make(chan struct{})}
}

// complete publishes the result. It must be called exactly once.
func (h *Handle[T]) complete(v T, err error) {
	h.value, h.err = v, err
	close(h.done)
}

// Await suspends the calling goroutine until the task finishes or ctx is
// done, and returns the task's result. The handle is consumed even when ctx
// ends the wait first.
func (h *Handle[T]) Await(ctx context.Context) (T, error) {
	var zero T
	if !h.consumed.CompareAndSwap(false, true) {
		return zero, apperrors.SubstrateError{Lane: h.lane, Cause: ErrHandleConsumed}
	}
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Done returns a channel closed once the task has finished. Waiting on it
// does not consume the handle.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}
