// Package metrics provides Prometheus instrumentation for tempo components.
//
// # Overview
//
// Debouncers and throttlers are wrapped by metrics-aware decorators
// (debounce.NewWithMetrics, throttle.NewWithMetrics) that count calls,
// executions and suppressed calls, and time each execution of the wrapped
// function. Keyed groups report the number of live keys and evictions.
//
// Expose the metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Available Metrics
//
//   - tempo_control_calls_total: calls made to a rate-controlled function
//   - tempo_control_executions_total: times the wrapped function ran
//   - tempo_control_suppressed_total: calls dropped or deferred
//   - tempo_control_pending: 1 while an execution is scheduled
//   - tempo_control_execution_duration_seconds: wrapped function run time
//   - tempo_keyed_active_keys: live keys in a keyed group
//   - tempo_keyed_evictions_total: idle keys evicted from a keyed group
//   - tempo_backend_errors_total: coordination backend failures
//
// # Labels
//
//   - control_type: "debounce", "throttle", "distributed_debounce" or "distributed_throttle"
//   - control_name: user-provided name for the control instance
//   - group_name: user-provided name for the keyed group
//   - operation: backend operation that failed
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	d, err := debounce.NewWithMetrics(save, 300*time.Millisecond, "autosave",
//		metrics.Config{Enabled: true, Registry: registry})
package metrics
