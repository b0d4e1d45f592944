package distributed

import (
	"context"
	"time"

	"github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/metrics"
)

// Throttler runs f at most once per interval across all instances.
// Calls refused by the Gate are dropped, as with throttle.Basic.
type Throttler[T any] struct {
	gate *Gate
	f    func(T)
}

// NewThrottler creates a cluster-wide Basic throttler for f.
func NewThrottler[T any](f func(T), interval time.Duration, config Config) (*Throttler[T], error) {
	if f == nil {
		return nil, errors.NewValidationError(module, "f", nil, "cannot be nil").
			WithHint("provide the function to throttle")
	}
	gate, err := newGate(interval, config, metrics.TypeDistributedThrottle)
	if err != nil {
		return nil, err
	}
	return &Throttler[T]{gate: gate, f: f}, nil
}

// Call runs f(arg) on the caller's goroutine if this instance wins the
// current window and reports whether it ran.
func (t *Throttler[T]) Call(ctx context.Context, arg T) (bool, error) {
	t.gate.inc(calls)

	admitted, err := t.gate.Admit(ctx)
	if err != nil {
		return false, err
	}
	if !admitted {
		t.gate.inc(suppressed)
		return false, nil
	}

	start := time.Now()
	t.f(arg)
	t.gate.observe(start)
	return true, nil
}

// Gate returns the underlying Gate.
func (t *Throttler[T]) Gate() *Gate {
	return t.gate
}

// Reset opens the window for every instance.
func (t *Throttler[T]) Reset(ctx context.Context) error {
	return t.gate.Reset(ctx)
}

// Close releases local resources.
func (t *Throttler[T]) Close() error {
	return t.gate.Close()
}
