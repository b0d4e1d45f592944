package distributed

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/pkg/common/validation"
	"github.com/vnykmshr/tempo/pkg/metrics"
	"github.com/vnykmshr/tempo/pkg/ratelimit/throttle"
)

// Gate admits at most one caller per interval across every instance that
// shares its key.
//
// The first caller of a window claims it with SET key instance NX PX
// interval; everyone else is refused until the key expires.
type Gate struct {
	backend
	interval time.Duration
	local    throttle.Throttler[struct{}]
}

// NewGate creates a Gate with the given window length.
func NewGate(interval time.Duration, config Config) (*Gate, error) {
	return newGate(interval, config, metrics.TypeDistributedThrottle)
}

func newGate(interval time.Duration, config Config, controlType string) (*Gate, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveDuration(module, "interval", interval); err != nil {
		return nil, err
	}
	config = applyConfigDefaults(config)

	g := &Gate{
		backend:  newBackend(config, gateKey(config.Key), controlType),
		interval: interval,
	}
	if config.FallbackToLocal {
		local, err := throttle.NewWithConfig(func(struct{}) {}, throttle.Config{
			Interval: interval,
			Name:     config.Name,
			Clock:    config.Clock,
		})
		if err != nil {
			return nil, err
		}
		g.local = local
	}
	return g, nil
}

// Admit claims the current window for this instance. When Redis fails and
// FallbackToLocal is set, the decision is made by a local Basic throttle.
func (g *Gate) Admit(ctx context.Context) (bool, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	ok, err := g.redis.SetNX(ctx, g.key, g.instanceID, g.interval).Result()
	if err != nil {
		berr := g.backendError(ctx, "admit", err)
		if g.local == nil {
			return false, berr
		}
		g.logger.Warn("redis unavailable, using local gate", zap.Error(berr))
		return g.local.Call(struct{}{}), nil
	}
	return ok, nil
}

// Holder returns the instance that owns the current window, or "" if the
// window is open.
func (g *Gate) Holder(ctx context.Context) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	holder, err := g.redis.Get(ctx, g.key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", g.backendError(ctx, "holder", err)
	}
	return holder, nil
}

// Reset opens the window for every instance.
func (g *Gate) Reset(ctx context.Context) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.redis.Del(ctx, g.key).Err(); err != nil {
		return g.backendError(ctx, "reset", err)
	}
	return nil
}

// Close releases local resources. The Redis key is left to expire.
func (g *Gate) Close() error {
	if g.local != nil {
		g.local.Stop()
	}
	return nil
}
