package distributed

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/pkg/common/clock"
	tpctx "github.com/vnykmshr/tempo/pkg/common/context"
	"github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/common/validation"
	"github.com/vnykmshr/tempo/pkg/metrics"
)

const module = "distributed"

// DefaultRedisTimeout bounds every Redis round trip unless Config overrides it.
const DefaultRedisTimeout = 500 * time.Millisecond

// Config holds configuration shared by the Redis backed controls.
type Config struct {
	// Redis client for coordination
	Redis redis.UniversalClient

	// Key is the Redis key prefix for this control
	Key string

	// InstanceID uniquely identifies this application instance
	InstanceID string

	// FallbackToLocal keeps the control working on this instance alone
	// while Redis is unavailable
	FallbackToLocal bool

	// RedisTimeout is the timeout for Redis operations
	RedisTimeout time.Duration

	// Name identifies the control in logs and metrics. Defaults to Key.
	Name string

	// Clock drives local timers and the fallback throttle. If nil, clock.System is used.
	Clock clock.Clock

	// Logger receives backend and lifecycle events. If nil, logging is disabled.
	Logger *zap.Logger

	// Metrics controls Prometheus reporting.
	Metrics metrics.Config
}

// DefaultConfig returns a default distributed control configuration.
func DefaultConfig() Config {
	return Config{
		InstanceID:      generateInstanceID(),
		FallbackToLocal: true,
		RedisTimeout:    DefaultRedisTimeout,
	}
}

// validateConfig validates the shared configuration.
func validateConfig(config Config) error {
	if config.Redis == nil {
		return errors.NewValidationError(module, "redis", nil, "cannot be nil").
			WithHint("provide a redis client, e.g. redis.NewClient(&redis.Options{Addr: \"localhost:6379\"})")
	}
	return validation.ValidateNotEmpty(module, "key", config.Key)
}

// applyConfigDefaults sets default values for unspecified config fields.
func applyConfigDefaults(config Config) Config {
	if config.InstanceID == "" {
		config.InstanceID = generateInstanceID()
	}
	if config.RedisTimeout == 0 {
		config.RedisTimeout = DefaultRedisTimeout
	}
	if config.Name == "" {
		config.Name = config.Key
	}
	if config.Clock == nil {
		config.Clock = clock.System{}
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return config
}

// backend carries what the Gate and Debouncer share: the client, the key
// they coordinate on, and the reporting plumbing.
type backend struct {
	redis       redis.UniversalClient
	key         string
	instanceID  string
	fallback    bool
	timeout     time.Duration
	name        string
	controlType string
	logger      *zap.Logger
	metrics     *metrics.Registry
	pending     *metrics.PendingState
}

func newBackend(config Config, key, controlType string) backend {
	b := backend{
		redis:       config.Redis,
		key:         key,
		instanceID:  config.InstanceID,
		fallback:    config.FallbackToLocal,
		timeout:     config.RedisTimeout,
		name:        config.Name,
		controlType: controlType,
		pending:     &metrics.PendingState{},
		logger: config.Logger.With(
			zap.String("control", controlType),
			zap.String("name", config.Name),
			zap.String("instance", config.InstanceID),
		),
	}
	if config.Metrics.Enabled {
		b.metrics = metrics.Resolve(config.Metrics)
	}
	return b
}

func (b *backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return tpctx.WithOptionalTimeout(ctx, b.timeout)
}

// backendError classifies a Redis failure as ErrTimeout or
// ErrBackendUnavailable and records it.
func (b *backend) backendError(ctx context.Context, op string, err error) error {
	cause := errors.ErrBackendUnavailable
	if tpctx.IsTimedOut(ctx, err) {
		cause = errors.ErrTimeout
	}
	if b.metrics != nil {
		b.metrics.BackendErrors.WithLabelValues(b.name, op).Inc()
	}
	return errors.NewOperationError(module, op, fmt.Errorf("%w: %w", cause, err)).
		WithContext("key=" + b.key)
}

func (b *backend) inc(vec func(*metrics.Registry) *prometheus.CounterVec) {
	if b.metrics != nil {
		vec(b.metrics).WithLabelValues(b.controlType, b.name).Inc()
	}
}

func (b *backend) observe(start time.Time) {
	if b.metrics != nil {
		b.metrics.ControlExecutions.WithLabelValues(b.controlType, b.name).Inc()
		b.metrics.ExecutionDuration.WithLabelValues(b.controlType, b.name).Observe(time.Since(start).Seconds())
	}
}

func (b *backend) setPending(pending bool) {
	if b.metrics == nil {
		return
	}
	b.pending.Update(b.metrics.ControlPending.WithLabelValues(b.controlType, b.name), pending)
}

func calls(r *metrics.Registry) *prometheus.CounterVec      { return r.ControlCalls }
func suppressed(r *metrics.Registry) *prometheus.CounterVec { return r.ControlSuppressed }
