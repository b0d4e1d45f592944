/*
Package ratelimit groups the rate control wrappers.

Two controls decide when a wrapped function runs:

  - debounce: postpone execution until calls stop for a delay
  - throttle: execute at most once per interval

Debounce suits inputs that only matter once they settle:

	save, _ := debounce.New(saveDraft, time.Second)
	save.Call(text) // saves one second after the last edit

Throttle suits inputs that matter continuously but arrive too fast:

	report, _ := throttle.NewWithConfig(sendPosition, throttle.Config{
		Interval: 100 * time.Millisecond,
		Policy:   throttle.LeadingTrailing, // keep the last position of a burst
	})
	report.Call(pos)

The keyed package keeps one control per key, and the distributed package
coordinates either control across processes through Redis.

Controls are safe for concurrent use. The wrapped function runs on the
caller's goroutine for immediate executions and on a timer goroutine for
deferred ones. No lock is held while it runs, so a function that may race
with its own deferred execution must be safe for concurrent use.
*/
package ratelimit
