// Package context holds small context helpers shared by the Redis backed controls.
package context

import (
	"context"
	"errors"
	"time"
)

// WithOptionalTimeout bounds parent by timeout when timeout is positive.
// Otherwise it returns parent unchanged with a no-op cancel.
func WithOptionalTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, timeout)
}

// Detached returns a context that carries no deadline or cancellation,
// for work that runs after the caller's request has finished.
func Detached() context.Context {
	return context.Background()
}

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// IsTimedOut reports whether err is, or ctx ended with, a deadline expiry.
func IsTimedOut(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}
