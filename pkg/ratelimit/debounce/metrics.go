package debounce

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/metrics"
)

// MetricsDebouncer wraps a Debouncer with Prometheus metrics collection.
type MetricsDebouncer[T any] struct {
	debouncer Debouncer[T]
	name      string
	registry  atomic.Pointer[metrics.Registry]
	enabled   atomic.Bool
	pending   metrics.PendingState
}

// NewWithMetrics creates a new debouncer with metrics enabled.
func NewWithMetrics[T any](f func(T), delay time.Duration, name string) (Debouncer[T], error) {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	config := metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	}
	return NewWithConfigAndMetrics(f, Config{Delay: delay, Name: name}, name, config)
}

// NewWithConfigAndMetrics creates a new debouncer with custom config and metrics.
func NewWithConfigAndMetrics[T any](f func(T), config Config, name string, metricsConfig metrics.Config) (Debouncer[T], error) {
	if f == nil {
		return nil, errors.NewValidationError(module, "f", nil, "cannot be nil").
			WithHint("provide the function to debounce")
	}
	if !metricsConfig.Enabled {
		return NewWithConfig(f, config)
	}

	md := &MetricsDebouncer[T]{name: name}
	md.registry.Store(metrics.Resolve(metricsConfig))
	md.enabled.Store(true)

	inner, err := NewWithConfig(md.instrument(f), config)
	if err != nil {
		return nil, err
	}
	md.debouncer = inner
	return md, nil
}

// instrument wraps f so each execution is counted and timed.
func (md *MetricsDebouncer[T]) instrument(f func(T)) func(T) {
	return func(arg T) {
		start := time.Now()
		f(arg)

		if md.enabled.Load() {
			r := md.registry.Load()
			r.ControlExecutions.WithLabelValues(metrics.TypeDebounce, md.name).Inc()
			r.ExecutionDuration.WithLabelValues(metrics.TypeDebounce, md.name).Observe(time.Since(start).Seconds())
			md.updatePending(r)
		}
	}
}

// Call schedules f(arg); a call that replaces a pending one counts as suppressed.
func (md *MetricsDebouncer[T]) Call(arg T) {
	if !md.enabled.Load() {
		md.debouncer.Call(arg)
		return
	}

	r := md.registry.Load()
	r.ControlCalls.WithLabelValues(metrics.TypeDebounce, md.name).Inc()

	replaced := md.debouncer.Pending()
	md.debouncer.Call(arg)
	if replaced {
		r.ControlSuppressed.WithLabelValues(metrics.TypeDebounce, md.name).Inc()
	}
	md.updatePending(r)
}

// Cancel drops the pending call; a dropped call counts as suppressed.
func (md *MetricsDebouncer[T]) Cancel() bool {
	dropped := md.debouncer.Cancel()
	if md.enabled.Load() {
		r := md.registry.Load()
		if dropped {
			r.ControlSuppressed.WithLabelValues(metrics.TypeDebounce, md.name).Inc()
		}
		md.updatePending(r)
	}
	return dropped
}

// Flush runs the pending call now.
func (md *MetricsDebouncer[T]) Flush() bool {
	return md.debouncer.Flush()
}

// Pending reports whether a call is waiting.
func (md *MetricsDebouncer[T]) Pending() bool {
	return md.debouncer.Pending()
}

// Stop cancels any pending call and disables the debouncer. A dropped
// call counts as suppressed.
func (md *MetricsDebouncer[T]) Stop() {
	dropped := md.debouncer.Pending()
	md.debouncer.Stop()
	if md.enabled.Load() {
		r := md.registry.Load()
		if dropped {
			r.ControlSuppressed.WithLabelValues(metrics.TypeDebounce, md.name).Inc()
		}
		md.updatePending(r)
	}
}

func (md *MetricsDebouncer[T]) updatePending(r *metrics.Registry) {
	pending := md.debouncer != nil && md.debouncer.Pending()
	md.pending.Update(r.ControlPending.WithLabelValues(metrics.TypeDebounce, md.name), pending)
}

// EnableMetrics enables metrics collection.
func (md *MetricsDebouncer[T]) EnableMetrics(config metrics.Config) error {
	if config.Registry != nil {
		md.registry.Store(metrics.Resolve(config))
	}
	md.enabled.Store(config.Enabled)
	return nil
}

// DisableMetrics disables metrics collection.
func (md *MetricsDebouncer[T]) DisableMetrics() {
	md.enabled.Store(false)
}

// MetricsEnabled returns true if metrics are currently enabled.
func (md *MetricsDebouncer[T]) MetricsEnabled() bool {
	return md.enabled.Load()
}

// Registry returns the metrics registry currently in use.
func (md *MetricsDebouncer[T]) Registry() *metrics.Registry {
	return md.registry.Load()
}
