package distributed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/pkg/common/clock"
	tpctx "github.com/vnykmshr/tempo/pkg/common/context"
	"github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/common/validation"
	"github.com/vnykmshr/tempo/pkg/metrics"
)

// Debouncer runs f once a burst of calls, made from any instance, has been
// quiet for the delay. Only the instance that made the last call executes.
//
// Every call stores a fresh token under the key and arms a local timer.
// When the timer fires, the token is compared and deleted atomically; f
// runs only if the token was still the latest one.
type Debouncer[T any] struct {
	backend
	f     func(T)
	delay time.Duration
	clock clock.Clock

	release *redis.Script

	mu      sync.Mutex
	timer   clock.Timer
	gen     uint64
	token   string
	pending bool
	closed  bool
}

// NewDebouncer creates a cluster-wide debouncer for f.
func NewDebouncer[T any](f func(T), delay time.Duration, config Config) (*Debouncer[T], error) {
	if f == nil {
		return nil, errors.NewValidationError(module, "f", nil, "cannot be nil").
			WithHint("provide the function to debounce")
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveDuration(module, "delay", delay); err != nil {
		return nil, err
	}
	config = applyConfigDefaults(config)

	return &Debouncer[T]{
		backend: newBackend(config, debounceKey(config.Key), metrics.TypeDistributedDebounce),
		f:       f,
		delay:   delay,
		clock:   config.Clock,
		release: redis.NewScript(luaCompareAndDelete),
	}, nil
}

// Call records arg as the latest call of the burst. If Redis cannot be
// reached and FallbackToLocal is set, the call is debounced on this
// instance alone; otherwise the error is returned and nothing is scheduled.
func (d *Debouncer[T]) Call(ctx context.Context, arg T) error {
	d.inc(calls)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.ErrClosed
	}

	// The token is written under d.mu so that the local timer always holds
	// the token this instance wrote last.
	token := uuid.NewString()
	local := false
	rctx, cancel := d.withTimeout(ctx)
	err := d.redis.Set(rctx, d.key, token, 2*d.delay).Err()
	if err != nil {
		berr := d.backendError(rctx, "call", err)
		cancel()
		if !d.fallback {
			return berr
		}
		d.logger.Warn("redis unavailable, debouncing locally", zap.Error(berr))
		local = true
	} else {
		cancel()
	}

	if d.timer != nil {
		d.timer.Stop()
		d.inc(suppressed)
	}
	d.gen++
	gen := d.gen
	d.token = token
	d.pending = true
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen, token, arg, local) })
	d.setPending(true)
	return nil
}

func (d *Debouncer[T]) fire(gen uint64, token string, arg T, local bool) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()
	d.setPending(false)

	if !local {
		owned, err := d.releaseToken(tpctx.Detached(), token)
		switch {
		case err != nil && !d.fallback:
			d.logger.Error("dropping call, ownership unknown", zap.Error(err))
			d.inc(suppressed)
			return
		case err != nil:
			d.logger.Warn("redis unavailable, executing locally", zap.Error(err))
		case !owned:
			d.logger.Debug("superseded by a later call")
			d.inc(suppressed)
			return
		}
	}

	start := time.Now()
	d.f(arg)
	d.observe(start)
}

// releaseToken deletes the key if it still holds token and reports whether it did.
func (d *Debouncer[T]) releaseToken(ctx context.Context, token string) (bool, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	n, err := d.release.Run(ctx, d.redis, []string{d.key}, token).Int64()
	if err != nil {
		return false, d.backendError(ctx, "release", err)
	}
	return n == 1, nil
}

// Pending reports whether this instance has a call waiting for its quiet period.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Cancel drops this instance's pending call and, if this instance made the
// latest call of the burst, removes its token so no instance executes.
func (d *Debouncer[T]) Cancel(ctx context.Context) (bool, error) {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false, nil
	}
	token := d.token
	d.cancelLocked()
	d.mu.Unlock()

	d.inc(suppressed)
	d.setPending(false)
	_, err := d.releaseToken(ctx, token)
	return true, err
}

// Reset cancels any local pending call and clears the key for every instance.
func (d *Debouncer[T]) Reset(ctx context.Context) error {
	d.mu.Lock()
	d.cancelLocked()
	d.mu.Unlock()
	d.setPending(false)

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	if err := d.redis.Del(ctx, d.key).Err(); err != nil {
		return d.backendError(ctx, "reset", err)
	}
	return nil
}

// Close stops the local timer. Later calls return ErrClosed.
func (d *Debouncer[T]) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.closed = true
	d.setPending(false)
	return nil
}

func (d *Debouncer[T]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
	d.token = ""
}

const luaCompareAndDelete = `
-- KEYS[1]: debounce key
-- ARGV[1]: token written by the caller

if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`
