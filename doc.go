/*
Package tempo provides debounce and throttle wrappers that control how often
a function runs.

Rate Control (pkg/ratelimit):
  - debounce: Run once a burst of calls goes quiet, with optional leading edge and max wait
  - throttle: Run at most once per interval, dropping or deferring extra calls
  - keyed: One control per key with scheduled eviction of idle keys
  - distributed: Debounce and throttle coordinated across instances through Redis

Supporting packages:
  - metrics: Prometheus instrumentation for every control
  - common/clock: Injectable clock so controls can be driven in tests

Example usage:

	import (
		"github.com/vnykmshr/tempo/pkg/ratelimit/debounce"
		"github.com/vnykmshr/tempo/pkg/ratelimit/throttle"
	)

	search, _ := debounce.New(runQuery, 300*time.Millisecond)
	scroll, _ := throttle.New(updatePosition, 100*time.Millisecond)

	search.Call("tempo")   // runs 300ms after the last keystroke
	scroll.Call(offset)    // runs now, then at most every 100ms

The tempo binary (cmd/tempo) replays call traces through a control and
serves per-key controls over HTTP.
*/
package tempo
