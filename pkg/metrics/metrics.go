// Package metrics provides Prometheus instrumentation for tempo components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Control type label values.
const (
	TypeDebounce            = "debounce"
	TypeThrottle            = "throttle"
	TypeDistributedDebounce = "distributed_debounce"
	TypeDistributedThrottle = "distributed_throttle"
)

// Registry holds all metric instances for tempo components.
type Registry struct {
	// Rate control metrics
	ControlCalls      *prometheus.CounterVec
	ControlExecutions *prometheus.CounterVec
	ControlSuppressed *prometheus.CounterVec
	ControlPending    *prometheus.GaugeVec
	ExecutionDuration *prometheus.HistogramVec

	// Keyed group metrics
	KeyedActiveKeys *prometheus.GaugeVec
	KeyedEvictions  *prometheus.CounterVec

	// Coordination backend metrics
	BackendErrors *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by tempo components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Registry: reg, Namespace: DefaultNamespace})
}

// NewRegistryWithConfig creates a metrics registry honouring the namespace
// and constant labels in cfg.
func NewRegistryWithConfig(cfg Config) *Registry {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(reg)
	controlLabels := []string{"control_type", "control_name"}

	return &Registry{
		ControlCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "control",
				Name:        "calls_total",
				Help:        "Total number of calls made to rate-controlled functions",
				ConstLabels: cfg.Labels,
			},
			controlLabels,
		),

		ControlExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "control",
				Name:        "executions_total",
				Help:        "Total number of times the wrapped function actually ran",
				ConstLabels: cfg.Labels,
			},
			controlLabels,
		),

		ControlSuppressed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "control",
				Name:        "suppressed_total",
				Help:        "Total number of calls whose argument never executed (dropped, replaced or cancelled)",
				ConstLabels: cfg.Labels,
			},
			controlLabels,
		),

		ControlPending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "control",
				Name:        "pending",
				Help:        "Whether an execution is currently scheduled (1) or not (0)",
				ConstLabels: cfg.Labels,
			},
			controlLabels,
		),

		ExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "control",
				Name:        "execution_duration_seconds",
				Help:        "Time spent executing the wrapped function",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: cfg.Labels,
			},
			controlLabels,
		),

		KeyedActiveKeys: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "keyed",
				Name:        "active_keys",
				Help:        "Number of keys with a live control in the group",
				ConstLabels: cfg.Labels,
			},
			[]string{"group_name"},
		),

		KeyedEvictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "keyed",
				Name:        "evictions_total",
				Help:        "Total number of idle keys evicted from the group",
				ConstLabels: cfg.Labels,
			},
			[]string{"group_name"},
		),

		BackendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "backend",
				Name:        "errors_total",
				Help:        "Total number of coordination backend errors",
				ConstLabels: cfg.Labels,
			},
			[]string{"control_name", "operation"},
		),
	}
}
