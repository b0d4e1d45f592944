// Package keyed runs an independent debouncer or throttler per key.
//
// A Group creates the control for a key the first time the key is called,
// using a Factory such as Debounce or Throttle:
//
//	g, _ := keyed.New(keyed.Throttle(notify, throttle.Config{Interval: time.Minute}), keyed.Config{})
//	g.Call(userID, msg)
//
// Keys that stay quiet for longer than Config.IdleTTL and have nothing
// pending are removed by Sweep. Start runs Sweep on a cron schedule.
package keyed
