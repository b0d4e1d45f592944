package throttle

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/pkg/common/clock"
	"github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/common/validation"
)

const module = "throttle"

// Policy selects what happens to calls that arrive inside a window.
type Policy int

const (
	// Basic runs a call immediately when the window has elapsed and
	// silently drops every other call.
	Basic Policy = iota

	// LeadingTrailing runs the first call of a burst immediately and
	// defers the latest call inside the window to the window boundary.
	LeadingTrailing
)

// Policy names accepted by ParsePolicy.
const (
	PolicyBasic           = "basic"
	PolicyLeadingTrailing = "leading-trailing"
)

func (p Policy) String() string {
	switch p {
	case Basic:
		return PolicyBasic
	case LeadingTrailing:
		return PolicyLeadingTrailing
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name into a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case PolicyBasic, "":
		return Basic, nil
	case PolicyLeadingTrailing:
		return LeadingTrailing, nil
	default:
		return Basic, validation.ValidateOneOf(module, "policy", name, PolicyBasic, PolicyLeadingTrailing)
	}
}

// Throttler limits a function to at most one execution per interval.
type Throttler[T any] interface {
	// Call runs f(arg) now if the window allows it and reports whether it
	// did. Under LeadingTrailing a refused call is remembered and may run
	// at the window boundary; under Basic it is dropped.
	Call(arg T) bool

	// Cancel drops a pending trailing call and reports whether one was dropped.
	Cancel() bool

	// Flush runs a pending trailing call immediately and reports whether
	// there was one. The flushed call starts a new window.
	Flush() bool

	// Pending reports whether a trailing call is scheduled.
	Pending() bool

	// LastInvocation returns when f last started, or the zero time.
	LastInvocation() time.Time

	// Stop cancels any pending call and turns later calls into no-ops.
	Stop()
}

// Config holds configuration options for creating a new Throttler.
type Config struct {
	// Interval is the minimum time between two executions.
	// Zero runs every call immediately.
	Interval time.Duration

	// Policy selects Basic (default) or LeadingTrailing behaviour.
	Policy Policy

	// Name identifies the throttler in logs.
	Name string

	// Clock provides time and timers. If nil, clock.System is used.
	Clock clock.Clock

	// Logger receives debug events. If nil, logging is disabled.
	Logger *zap.Logger
}

type throttler[T any] struct {
	f        func(T)
	interval time.Duration
	policy   Policy
	clock    clock.Clock
	logger   *zap.Logger

	mu      sync.Mutex
	last    time.Time
	invoked bool
	timer   clock.Timer
	gen     uint64 // bumped whenever the trailing timer is replaced or cancelled
	pending bool
	arg     T
	stopped bool
}

// New creates a Basic Throttler that runs f at most once per interval.
func New[T any](f func(T), interval time.Duration) (Throttler[T], error) {
	return NewWithConfig(f, Config{Interval: interval})
}

// NewWithConfig creates a Throttler with custom configuration.
func NewWithConfig[T any](f func(T), config Config) (Throttler[T], error) {
	if f == nil {
		return nil, errors.NewValidationError(module, "f", nil, "cannot be nil").
			WithHint("provide the function to throttle")
	}
	if err := validation.ValidateNonNegativeDuration(module, "interval", config.Interval); err != nil {
		return nil, err
	}
	if config.Policy != Basic && config.Policy != LeadingTrailing {
		return nil, errors.NewValidationError(module, "policy", int(config.Policy), "unknown policy").
			WithHint("use Basic or LeadingTrailing")
	}
	if config.Clock == nil {
		config.Clock = clock.System{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &throttler[T]{
		f:        f,
		interval: config.Interval,
		policy:   config.Policy,
		clock:    config.Clock,
		logger: logger.With(
			zap.String("control", module),
			zap.String("name", config.Name),
			zap.Stringer("policy", config.Policy),
		),
	}, nil
}

// Func returns f wrapped in a Basic Throttler as a plain function value.
func Func[T any](f func(T), interval time.Duration) (func(T), error) {
	t, err := New(f, interval)
	if err != nil {
		return nil, err
	}
	return func(arg T) { t.Call(arg) }, nil
}

func (t *throttler[T]) Call(arg T) bool {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return false
	}

	now := t.clock.Now()
	windowOpen := !t.invoked || now.Sub(t.last) >= t.interval

	if windowOpen && !t.pending {
		t.last = now
		t.invoked = true
		t.mu.Unlock()

		t.f(arg)
		return true
	}

	if t.policy == Basic {
		t.mu.Unlock()
		t.logger.Debug("call dropped", zap.Duration("since_last", now.Sub(t.last)))
		return false
	}

	t.pending = true
	t.arg = arg
	if t.timer == nil {
		wait := t.interval - now.Sub(t.last)
		if wait < 0 {
			wait = 0
		}
		t.gen++
		gen := t.gen
		t.timer = t.clock.AfterFunc(wait, func() { t.fireTrailing(gen) })
		t.logger.Debug("trailing call scheduled", zap.Duration("wait", wait))
	}
	t.mu.Unlock()
	return false
}

func (t *throttler[T]) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	had := t.pending
	t.clearTrailingLocked()
	if had {
		t.logger.Debug("trailing call cancelled")
	}
	return had
}

func (t *throttler[T]) Flush() bool {
	t.mu.Lock()
	if !t.pending {
		t.mu.Unlock()
		return false
	}
	arg := t.arg
	t.clearTrailingLocked()
	t.last = t.clock.Now()
	t.invoked = true
	t.mu.Unlock()

	t.logger.Debug("trailing call flushed")
	t.f(arg)
	return true
}

func (t *throttler[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

func (t *throttler[T]) LastInvocation() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.invoked {
		return time.Time{}
	}
	return t.last
}

func (t *throttler[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearTrailingLocked()
	t.stopped = true
}

// fireTrailing runs the remembered call at the window boundary and opens
// a new window starting now.
func (t *throttler[T]) fireTrailing(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	if !t.pending {
		t.mu.Unlock()
		return
	}
	arg := t.arg
	t.clearPendingLocked()
	t.last = t.clock.Now()
	t.invoked = true
	t.mu.Unlock()

	t.logger.Debug("trailing call executed")
	t.f(arg)
}

func (t *throttler[T]) clearTrailingLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.clearPendingLocked()
}

func (t *throttler[T]) clearPendingLocked() {
	var zero T
	t.pending = false
	t.arg = zero
}
