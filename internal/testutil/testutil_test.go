package testutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/tempo/pkg/common/clock"
)

func TestNewMockClock(t *testing.T) {
	AssertEqual(t, NewMockClock(time.Time{}).Now(), Epoch)

	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	AssertEqual(t, NewMockClock(start).Now(), start)
}

func TestRecorder(t *testing.T) {
	clk := NewMockClock(time.Time{})
	rec := NewRecorder[string](clk)

	if _, ok := rec.Last(); ok {
		t.Error("empty recorder should have no last call")
	}

	rec.Func("a")
	clk.Advance(10 * time.Millisecond)
	rec.Func("b")

	calls := rec.Calls()
	AssertEqual(t, len(calls), 2)
	AssertEqual(t, calls[0].Arg, "a")
	AssertEqual(t, calls[1].At, Epoch.Add(10*time.Millisecond))

	last, ok := rec.Last()
	AssertEqual(t, ok, true)
	AssertEqual(t, last.Arg, "b")

	rec.Reset()
	AssertEqual(t, rec.Count(), 0)
}

func TestRecorderStampsTimerDeadline(t *testing.T) {
	clk := NewMockClock(time.Time{})
	rec := NewRecorder[int](clk)

	clk.AfterFunc(30*time.Millisecond, func() { rec.Func(1) })
	clk.AfterFunc(70*time.Millisecond, func() { rec.Func(2) })
	clk.Advance(time.Second)

	calls := rec.Calls()
	AssertEqual(t, len(calls), 2)
	AssertEqual(t, calls[0].At, Epoch.Add(30*time.Millisecond))
	AssertEqual(t, calls[1].At, Epoch.Add(70*time.Millisecond))
}

func TestWaitForInt32OnTimerGoroutine(t *testing.T) {
	var fired int32
	for i := 0; i < 3; i++ {
		clock.System{}.AfterFunc(time.Duration(i+1)*10*time.Millisecond, func() {
			atomic.AddInt32(&fired, 1)
		})
	}

	WaitForInt32(t, &fired, 3, time.Second)
}

func TestEventuallyImmediate(t *testing.T) {
	calls := 0
	Eventually(t, func() bool {
		calls++
		return true
	}, 100*time.Millisecond, 10*time.Millisecond)
	AssertEqual(t, calls, 1)
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(t)
	defer cancel()

	deadline, ok := ctx.Deadline()
	AssertEqual(t, ok, true)
	if time.Until(deadline) > TestTimeout {
		t.Errorf("deadline is too far in the future")
	}
	AssertNoError(t, ctx.Err())

	cancel()
	AssertError(t, ctx.Err())
}
