package testutil

import (
	"sync"
	"time"

	"github.com/vnykmshr/tempo/pkg/common/clock"
)

// MockClock is a controllable clock shared by the rate control tests.
// Timers scheduled on it fire synchronously inside Advance.
type MockClock = clock.Manual

// Epoch is a fixed start time so test failures print stable timestamps.
var Epoch = time.Date(2024, 5, 10, 9, 15, 0, 0, time.UTC)

// NewMockClock creates a new MockClock starting at the given time.
// If zero time is provided, uses Epoch.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = Epoch
	}
	return clock.NewManual(start)
}

// Call is one recorded invocation of a wrapped function.
type Call[T any] struct {
	At  time.Time
	Arg T
}

// Recorder records invocations of a function under test, stamping each one
// with the time reported by its clock.
type Recorder[T any] struct {
	mu    sync.Mutex
	clock clock.Clock
	calls []Call[T]
}

// NewRecorder creates a Recorder that timestamps calls with c.
func NewRecorder[T any](c clock.Clock) *Recorder[T] {
	return &Recorder[T]{clock: c}
}

// Func is the function to hand to the control under test.
func (r *Recorder[T]) Func(arg T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call[T]{At: r.clock.Now(), Arg: arg})
}

// Calls returns a copy of the recorded invocations.
func (r *Recorder[T]) Calls() []Call[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call[T], len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns the number of recorded invocations.
func (r *Recorder[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Last returns the most recent invocation and whether there was one.
func (r *Recorder[T]) Last() (Call[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		var zero Call[T]
		return zero, false
	}
	return r.calls[len(r.calls)-1], true
}

// Reset discards all recorded invocations.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
