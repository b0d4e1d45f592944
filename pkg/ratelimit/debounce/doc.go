/*
Package debounce delays a function until its callers go quiet.

A Debouncer collapses a burst of calls into a single execution that runs
once no call has arrived for the configured delay, using the argument of the
last call in the burst. Typical callers are input handlers whose work is
only worth doing once the user stops typing or scrolling.

Basic usage:

	save, err := debounce.New(func(doc string) { store.Save(doc) }, 300*time.Millisecond)
	if err != nil {
		return err
	}
	save.Call(draft) // runs 300ms after the last Call

Timeline for calls at t=0, 10 and 20ms with a 50ms delay:

	t=0   Call("a")  schedule for t=50
	t=10  Call("b")  reschedule for t=60
	t=20  Call("c")  reschedule for t=70
	t=70  f("c")

Options:

	debounce.Config{
		Delay:   300 * time.Millisecond,
		MaxWait: 2 * time.Second, // fire at least every 2s during a long burst
		Leading: true,            // also fire on the first call of a burst
	}

The delayed execution runs on the clock's timer goroutine. A panic in the
wrapped function is not recovered. A zero delay runs every call immediately
on the caller's goroutine.

Debouncers are safe for concurrent use. The wrapped function is never called
while the debouncer's lock is held, so it may call back into the debouncer.
*/
package debounce
