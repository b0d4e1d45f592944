package keyed

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/pkg/common/clock"
	"github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/common/validation"
	"github.com/vnykmshr/tempo/pkg/metrics"
)

const module = "keyed"

// Default values for Config.
const (
	DefaultIdleTTL   = 5 * time.Minute
	DefaultSweepSpec = "@every 1m"
)

// Member is the per-key control held by a Group.
type Member[T any] interface {
	// Call hands arg to the control and reports whether f ran on the
	// caller's goroutine.
	Call(arg T) bool
	Pending() bool
	Stop()
}

// Factory builds the Member for a key the first time it is seen.
type Factory[K comparable, T any] func(key K) (Member[T], error)

// Config holds configuration options for creating a new Group.
type Config struct {
	// IdleTTL is how long a key must go without calls before Sweep may evict it.
	// Defaults to DefaultIdleTTL.
	IdleTTL time.Duration

	// SweepSpec is the cron schedule Start uses to run Sweep.
	// Defaults to DefaultSweepSpec.
	SweepSpec string

	// Name identifies the group in logs and metrics.
	Name string

	// Clock is used to track idle time. If nil, clock.System is used.
	Clock clock.Clock

	// Logger receives debug events. If nil, logging is disabled.
	Logger *zap.Logger

	// Metrics controls active key and eviction reporting.
	Metrics metrics.Config
}

type entry[T any] struct {
	member   Member[T]
	lastCall time.Time
}

// Group maintains one rate control per key.
type Group[K comparable, T any] struct {
	factory Factory[K, T]
	idleTTL time.Duration
	spec    string
	name    string
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Registry

	mu      sync.Mutex
	members map[K]*entry[T]
	cron    *cron.Cron
	closed  atomic.Bool
}

// New creates a Group that builds members with factory.
func New[K comparable, T any](factory Factory[K, T], config Config) (*Group[K, T], error) {
	if factory == nil {
		return nil, errors.NewValidationError(module, "factory", nil, "cannot be nil").
			WithHint("provide a function that builds the control for a key")
	}
	if config.IdleTTL == 0 {
		config.IdleTTL = DefaultIdleTTL
	}
	if err := validation.ValidatePositiveDuration(module, "idle_ttl", config.IdleTTL); err != nil {
		return nil, err
	}
	if config.SweepSpec == "" {
		config.SweepSpec = DefaultSweepSpec
	}
	if _, err := cron.ParseStandard(config.SweepSpec); err != nil {
		return nil, errors.NewValidationError(module, "sweep_spec", config.SweepSpec, err.Error()).
			WithHint("use a cron expression such as \"*/5 * * * *\" or \"@every 1m\"")
	}
	if config.Clock == nil {
		config.Clock = clock.System{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Group[K, T]{
		factory: factory,
		idleTTL: config.IdleTTL,
		spec:    config.SweepSpec,
		name:    config.Name,
		clock:   config.Clock,
		logger:  logger.With(zap.String("group", config.Name)),
		members: make(map[K]*entry[T]),
	}
	if config.Metrics.Enabled {
		g.metrics = metrics.Resolve(config.Metrics)
	}
	return g, nil
}

// Call routes arg to the member for key, creating it on first use.
func (g *Group[K, T]) Call(key K, arg T) (bool, error) {
	if g.closed.Load() {
		return false, errors.ErrClosed
	}

	g.mu.Lock()
	// Stop may have closed the group while this call waited for the lock.
	if g.closed.Load() {
		g.mu.Unlock()
		return false, errors.ErrClosed
	}
	e, ok := g.members[key]
	if !ok {
		m, err := g.factory(key)
		if err != nil {
			g.mu.Unlock()
			return false, errors.NewOperationError(module, "create", err).
				WithContext(fmt.Sprintf("key=%v", key))
		}
		e = &entry[T]{member: m}
		g.members[key] = e
		g.reportSizeLocked()
		g.logger.Debug("member created", zap.Any("key", key))
	}
	e.lastCall = g.clock.Now()
	m := e.member
	g.mu.Unlock()

	return m.Call(arg), nil
}

// Sweep stops and removes every member idle for longer than IdleTTL
// with nothing pending. It returns the number of evicted keys.
func (g *Group[K, T]) Sweep() int {
	now := g.clock.Now()

	g.mu.Lock()
	var evicted []Member[T]
	for key, e := range g.members {
		if now.Sub(e.lastCall) <= g.idleTTL || e.member.Pending() {
			continue
		}
		delete(g.members, key)
		evicted = append(evicted, e.member)
	}
	if len(evicted) > 0 {
		g.reportSizeLocked()
	}
	g.mu.Unlock()

	for _, m := range evicted {
		m.Stop()
	}
	if len(evicted) > 0 {
		if g.metrics != nil {
			g.metrics.KeyedEvictions.WithLabelValues(g.name).Add(float64(len(evicted)))
		}
		g.logger.Debug("idle members evicted", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Start runs Sweep on the configured cron schedule until Stop is called.
func (g *Group[K, T]) Start() error {
	if g.closed.Load() {
		return errors.ErrClosed
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(g.spec, func() { g.Sweep() }); err != nil {
		return errors.NewOperationError(module, "start", err).WithContext("spec=" + g.spec)
	}
	c.Start()
	g.cron = c
	g.logger.Debug("sweeper started", zap.String("spec", g.spec))
	return nil
}

// Stop halts the sweeper and stops every member. Calls made after Stop
// return ErrClosed.
func (g *Group[K, T]) Stop() {
	if g.closed.Swap(true) {
		return
	}

	g.mu.Lock()
	c := g.cron
	g.cron = nil
	members := g.members
	g.members = make(map[K]*entry[T])
	g.reportSizeLocked()
	g.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	for _, e := range members {
		e.member.Stop()
	}
}

// Len returns the number of live keys.
func (g *Group[K, T]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// Keys returns the live keys in no particular order.
func (g *Group[K, T]) Keys() []K {
	g.mu.Lock()
	defer g.mu.Unlock()
	keys := make([]K, 0, len(g.members))
	for k := range g.members {
		keys = append(keys, k)
	}
	return keys
}

func (g *Group[K, T]) reportSizeLocked() {
	if g.metrics != nil {
		g.metrics.KeyedActiveKeys.WithLabelValues(g.name).Set(float64(len(g.members)))
	}
}
