package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every tempo metric name.
const DefaultNamespace = "tempo"

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace overrides the default "tempo" namespace for metrics.
	Namespace string

	// Labels are additional constant labels to add to all metrics.
	Labels prometheus.Labels
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
		Labels:    nil,
	}
}

type resolveKey struct {
	reg       prometheus.Registerer
	namespace string
}

var (
	resolvedMu sync.Mutex
	resolved   = map[resolveKey]*Registry{}
)

// Resolve returns the Registry a component should report to: the shared
// DefaultRegistry when cfg names no registerer, otherwise the Registry
// created for that registerer and namespace on first use. Components that
// share a registerer share its collectors.
func Resolve(cfg Config) *Registry {
	if cfg.Registry == nil {
		return DefaultRegistry
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	key := resolveKey{reg: cfg.Registry, namespace: ns}

	resolvedMu.Lock()
	defer resolvedMu.Unlock()
	if r, ok := resolved[key]; ok {
		return r
	}
	r := NewRegistryWithConfig(cfg)
	resolved[key] = r
	return r
}

// Instrumentable is an interface for components that can be instrumented with metrics.
type Instrumentable interface {
	// EnableMetrics enables metrics collection for this component.
	EnableMetrics(config Config) error

	// DisableMetrics disables metrics collection for this component.
	DisableMetrics()

	// MetricsEnabled returns true if metrics are currently enabled.
	MetricsEnabled() bool
}
