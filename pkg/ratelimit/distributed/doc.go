// Package distributed coordinates throttling and debouncing across multiple
// application instances using Redis.
//
// # Overview
//
// The in-process throttle and debounce packages only see calls made on one
// instance. The controls here make the same decisions cluster wide:
//
//   - Gate: admits at most one caller per interval across all instances
//   - Throttler: runs f when the Gate admits the call (Basic policy)
//   - Debouncer: runs f once, on the instance that made the last call of a burst
//
// # Quick Start
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//
//	t, err := distributed.NewThrottler(sendDigest, time.Hour, distributed.Config{
//		Redis: rdb,
//		Key:   "digest",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer t.Close()
//
//	ran, err := t.Call(ctx, userID)
//
// # Redis Data Structures
//
//   - Gate: "<key>:gate" holds the instance ID that owns the current window,
//     written with SET NX PX interval
//   - Debouncer: "<key>:debounce" holds a random token for the latest call,
//     written with SET PX 2*delay and released with a compare-and-delete script
//
// # Fallback Strategy
//
// With Config.FallbackToLocal set, a Redis failure degrades to per-instance
// behaviour instead of an error: the Gate consults a local Basic throttle,
// and the Debouncer executes its own latest call. Without it, Redis failures
// surface as *errors.OperationError values wrapping ErrBackendUnavailable or
// ErrTimeout:
//
//	ran, err := t.Call(ctx, arg)
//	if errors.IsRetryable(err) {
//		// Redis is down or slow
//	}
//
// Backend failures are counted in tempo_backend_errors_total when metrics
// are enabled.
package distributed
