// Package resilience bounds calls into collaborators that may stall or panic
// (camera, smile detector, audio device) so that no periodic loop can be
// blocked or crashed by them.
package resilience

import (
	"context"
	"fmt"
	"time"

	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
)

// result carries the outcome of a bounded call.
type result[T any] struct {
	value T
	err   error
}

// Do runs fn on its own goroutine and waits at most timeout for it. A panic
// inside fn is converted into an error. When the deadline passes first,
// Do returns domain.ErrCollaboratorTimeout; fn keeps running in the
// background and its result is discarded.
func Do[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	callCtx, cancel := callContext(ctx, timeout)
	defer cancel()

	done := make(chan result[T], 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result[T]{err: fmt.Errorf("collaborator panic: %v", r)}
			}
		}()

		v, err := fn(callCtx)
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		return zero, fmt.Errorf("%w after %s", domain.ErrCollaboratorTimeout, timeout)
	}
}

// Call is Do for functions without a result value.
func Call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})

	return err
}

// callContext returns a context with the timeout if configured,
// otherwise a cancellable child context without a deadline.
func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}
