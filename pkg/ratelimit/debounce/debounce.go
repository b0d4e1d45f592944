package debounce

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/pkg/common/clock"
	"github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/common/validation"
)

const module = "debounce"

// Debouncer delays calls to a function until calls stop arriving for a
// quiet period. Only the argument of the last call in a burst is used.
type Debouncer[T any] interface {
	// Call schedules f(arg) to run once no further call arrives for the
	// configured delay, replacing any call already pending. It never blocks
	// on f unless the delay is zero or a leading call fires.
	Call(arg T)

	// Cancel drops the pending call, if any, and reports whether one was dropped.
	Cancel() bool

	// Flush runs the pending call immediately on the caller's goroutine and
	// reports whether there was one to run.
	Flush() bool

	// Pending reports whether a call is waiting for its quiet period.
	Pending() bool

	// Stop cancels any pending call and turns later calls into no-ops.
	Stop()
}

// Config holds configuration options for creating a new Debouncer.
type Config struct {
	// Delay is the quiet period that must pass after the last call.
	// Zero runs every call immediately.
	Delay time.Duration

	// MaxWait caps how long a continuous burst can postpone execution.
	// Zero disables the cap; otherwise it must be >= Delay.
	MaxWait time.Duration

	// Leading runs f on the first call of a burst. The trailing call then
	// only fires if more calls arrived during the burst.
	Leading bool

	// Name identifies the debouncer in logs.
	Name string

	// Clock provides time and timers. If nil, clock.System is used.
	Clock clock.Clock

	// Logger receives debug events. If nil, logging is disabled.
	Logger *zap.Logger
}

type debouncer[T any] struct {
	f       func(T)
	delay   time.Duration
	maxWait time.Duration
	leading bool
	clock   clock.Clock
	logger  *zap.Logger

	mu       sync.Mutex
	timer    clock.Timer
	maxTimer clock.Timer
	gen      uint64 // bumped on every call; stale quiet timers compare against it
	burst    uint64 // bumped when a burst starts or ends; stale max timers compare against it
	inBurst  bool
	pending  bool
	arg      T
	stopped  bool
}

// New creates a Debouncer that runs f after delay of inactivity.
func New[T any](f func(T), delay time.Duration) (Debouncer[T], error) {
	return NewWithConfig(f, Config{Delay: delay})
}

// NewWithConfig creates a Debouncer with custom configuration.
func NewWithConfig[T any](f func(T), config Config) (Debouncer[T], error) {
	if f == nil {
		return nil, errors.NewValidationError(module, "f", nil, "cannot be nil").
			WithHint("provide the function to debounce")
	}
	if err := validation.ValidateNonNegativeDuration(module, "delay", config.Delay); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeDuration(module, "max_wait", config.MaxWait); err != nil {
		return nil, err
	}
	if config.MaxWait > 0 && config.MaxWait < config.Delay {
		return nil, errors.NewValidationError(module, "max_wait", config.MaxWait, "shorter than delay").
			WithHint("max_wait must be 0 or at least the delay")
	}
	if config.Clock == nil {
		config.Clock = clock.System{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &debouncer[T]{
		f:       f,
		delay:   config.Delay,
		maxWait: config.MaxWait,
		leading: config.Leading,
		clock:   config.Clock,
		logger:  logger.With(zap.String("control", module), zap.String("name", config.Name)),
	}, nil
}

// Func returns f wrapped in a Debouncer as a plain function value.
func Func[T any](f func(T), delay time.Duration) (func(T), error) {
	d, err := New(f, delay)
	if err != nil {
		return nil, err
	}
	return d.Call, nil
}

func (d *debouncer[T]) Call(arg T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	if d.delay == 0 {
		d.mu.Unlock()
		d.f(arg)
		return
	}

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}

	fireLeading := false
	if !d.inBurst {
		d.inBurst = true
		d.burst++
		fireLeading = d.leading
		if d.maxWait > 0 {
			burst := d.burst
			d.maxTimer = d.clock.AfterFunc(d.maxWait, func() { d.fireMax(burst) })
		}
	}

	if fireLeading {
		d.clearPendingLocked()
	} else {
		d.pending = true
		d.arg = arg
	}

	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fireQuiet(gen) })
	d.mu.Unlock()

	if fireLeading {
		d.logger.Debug("leading call executed")
		d.f(arg)
		return
	}
	d.logger.Debug("call scheduled", zap.Duration("delay", d.delay))
}

func (d *debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	had := d.pending
	d.endBurstLocked()
	if had {
		d.logger.Debug("pending call cancelled")
	}
	return had
}

func (d *debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	arg := d.arg
	d.endBurstLocked()
	d.mu.Unlock()

	d.logger.Debug("pending call flushed")
	d.f(arg)
	return true
}

func (d *debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.endBurstLocked()
	d.stopped = true
}

// fireQuiet runs when the quiet period after call number gen has elapsed.
func (d *debouncer[T]) fireQuiet(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.inBurst {
		d.mu.Unlock()
		return
	}
	d.fireLocked("quiet period elapsed")
}

// fireMax runs when a burst has lasted MaxWait.
func (d *debouncer[T]) fireMax(burst uint64) {
	d.mu.Lock()
	if burst != d.burst || !d.inBurst {
		d.mu.Unlock()
		return
	}
	d.fireLocked("max wait reached")
}

// fireLocked ends the burst and runs the pending call. It is entered with
// d.mu held and releases it before calling f.
func (d *debouncer[T]) fireLocked(reason string) {
	run := d.pending
	arg := d.arg
	d.endBurstLocked()
	d.mu.Unlock()

	if !run {
		return
	}
	d.logger.Debug("pending call executed", zap.String("reason", reason))
	d.f(arg)
}

func (d *debouncer[T]) endBurstLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.maxTimer != nil {
		d.maxTimer.Stop()
		d.maxTimer = nil
	}
	d.gen++
	d.burst++
	d.inBurst = false
	d.clearPendingLocked()
}

func (d *debouncer[T]) clearPendingLocked() {
	var zero T
	d.pending = false
	d.arg = zero
}
