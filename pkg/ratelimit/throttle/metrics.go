package throttle

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/metrics"
)

// MetricsThrottler wraps a Throttler with Prometheus metrics collection.
type MetricsThrottler[T any] struct {
	throttler Throttler[T]
	policy    Policy
	name      string
	registry  atomic.Pointer[metrics.Registry]
	enabled   atomic.Bool
	pending   metrics.PendingState
}

// NewWithMetrics creates a new Basic throttler with metrics enabled.
func NewWithMetrics[T any](f func(T), interval time.Duration, name string) (Throttler[T], error) {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	config := metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	}
	return NewWithConfigAndMetrics(f, Config{Interval: interval, Name: name}, name, config)
}

// NewWithConfigAndMetrics creates a new throttler with custom config and metrics.
func NewWithConfigAndMetrics[T any](f func(T), config Config, name string, metricsConfig metrics.Config) (Throttler[T], error) {
	if f == nil {
		return nil, errors.NewValidationError(module, "f", nil, "cannot be nil").
			WithHint("provide the function to throttle")
	}
	if !metricsConfig.Enabled {
		return NewWithConfig(f, config)
	}

	mt := &MetricsThrottler[T]{name: name, policy: config.Policy}
	mt.registry.Store(metrics.Resolve(metricsConfig))
	mt.enabled.Store(true)

	inner, err := NewWithConfig(mt.instrument(f), config)
	if err != nil {
		return nil, err
	}
	mt.throttler = inner
	return mt, nil
}

// instrument wraps f so each execution is counted and timed.
func (mt *MetricsThrottler[T]) instrument(f func(T)) func(T) {
	return func(arg T) {
		start := time.Now()
		f(arg)

		if mt.enabled.Load() {
			r := mt.registry.Load()
			r.ControlExecutions.WithLabelValues(metrics.TypeThrottle, mt.name).Inc()
			r.ExecutionDuration.WithLabelValues(metrics.TypeThrottle, mt.name).Observe(time.Since(start).Seconds())
			mt.updatePending(r)
		}
	}
}

// Call runs or defers f(arg). Dropped calls and calls that replace a
// pending trailing argument count as suppressed.
func (mt *MetricsThrottler[T]) Call(arg T) bool {
	if !mt.enabled.Load() {
		return mt.throttler.Call(arg)
	}

	r := mt.registry.Load()
	r.ControlCalls.WithLabelValues(metrics.TypeThrottle, mt.name).Inc()

	replaced := mt.throttler.Pending()
	executed := mt.throttler.Call(arg)
	if !executed && (mt.policy == Basic || replaced) {
		r.ControlSuppressed.WithLabelValues(metrics.TypeThrottle, mt.name).Inc()
	}
	mt.updatePending(r)
	return executed
}

// Cancel drops a pending trailing call; a dropped call counts as suppressed.
func (mt *MetricsThrottler[T]) Cancel() bool {
	dropped := mt.throttler.Cancel()
	if mt.enabled.Load() {
		r := mt.registry.Load()
		if dropped {
			r.ControlSuppressed.WithLabelValues(metrics.TypeThrottle, mt.name).Inc()
		}
		mt.updatePending(r)
	}
	return dropped
}

// Flush runs a pending trailing call now.
func (mt *MetricsThrottler[T]) Flush() bool {
	flushed := mt.throttler.Flush()
	if mt.enabled.Load() {
		mt.updatePending(mt.registry.Load())
	}
	return flushed
}

// Pending reports whether a trailing call is scheduled.
func (mt *MetricsThrottler[T]) Pending() bool {
	return mt.throttler.Pending()
}

// LastInvocation returns when f last started.
func (mt *MetricsThrottler[T]) LastInvocation() time.Time {
	return mt.throttler.LastInvocation()
}

// Stop cancels any pending call and disables the throttler. A dropped
// trailing call counts as suppressed.
func (mt *MetricsThrottler[T]) Stop() {
	dropped := mt.throttler.Pending()
	mt.throttler.Stop()
	if mt.enabled.Load() {
		r := mt.registry.Load()
		if dropped {
			r.ControlSuppressed.WithLabelValues(metrics.TypeThrottle, mt.name).Inc()
		}
		mt.updatePending(r)
	}
}

func (mt *MetricsThrottler[T]) updatePending(r *metrics.Registry) {
	pending := mt.throttler != nil && mt.throttler.Pending()
	mt.pending.Update(r.ControlPending.WithLabelValues(metrics.TypeThrottle, mt.name), pending)
}

// EnableMetrics enables metrics collection.
func (mt *MetricsThrottler[T]) EnableMetrics(config metrics.Config) error {
	if config.Registry != nil {
		mt.registry.Store(metrics.Resolve(config))
	}
	mt.enabled.Store(config.Enabled)
	return nil
}

// DisableMetrics disables metrics collection.
func (mt *MetricsThrottler[T]) DisableMetrics() {
	mt.enabled.Store(false)
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mt *MetricsThrottler[T]) MetricsEnabled() bool {
	return mt.enabled.Load()
}

// Registry returns the metrics registry currently in use.
func (mt *MetricsThrottler[T]) Registry() *metrics.Registry {
	return mt.registry.Load()
}
