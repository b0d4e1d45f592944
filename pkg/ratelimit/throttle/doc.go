/*
Package throttle caps how often a function may run.

A Throttler lets at most one execution through per interval. Two policies
are available.

Basic runs a call immediately when at least one interval has passed since
the last execution and drops every other call:

	t, _ := throttle.New(func(pos Point) { redraw(pos) }, 100*time.Millisecond)
	t.Call(p) // runs now, or is dropped

LeadingTrailing runs the first call of a burst immediately, remembers only
the latest argument of the calls that arrive inside the window, and runs it
once at the window boundary:

	t, _ := throttle.NewWithConfig(save, throttle.Config{
		Interval: time.Second,
		Policy:   throttle.LeadingTrailing,
	})

Timeline for LeadingTrailing with a 100ms interval:

	t=0    Call("a")  runs f("a"), window until t=100
	t=30   Call("b")  remembered
	t=60   Call("c")  replaces "b"
	t=100  f("c")     new window until t=200

A LeadingTrailing call that arrives exactly on the window boundary runs
immediately unless a trailing call is still pending, in which case it
replaces the pending argument.

Immediate executions run on the caller's goroutine and Call reports them by
returning true. Trailing executions run on the clock's timer goroutine.
A zero interval runs every call immediately.
*/
package throttle
