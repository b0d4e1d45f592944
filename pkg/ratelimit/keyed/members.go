package keyed

import (
	"github.com/vnykmshr/tempo/pkg/ratelimit/debounce"
	"github.com/vnykmshr/tempo/pkg/ratelimit/throttle"
)

type debounceMember[T any] struct {
	debounce.Debouncer[T]
}

// Call never reports a synchronous execution, even for a zero delay.
func (m debounceMember[T]) Call(arg T) bool {
	m.Debouncer.Call(arg)
	return false
}

// Debounced adapts a Debouncer to a Member.
func Debounced[T any](d debounce.Debouncer[T]) Member[T] {
	return debounceMember[T]{d}
}

// Debounce returns a Factory that gives every key its own Debouncer
// calling f with that key.
func Debounce[K comparable, T any](f func(K, T), config debounce.Config) Factory[K, T] {
	return func(key K) (Member[T], error) {
		d, err := debounce.NewWithConfig(Bind(f, key), config)
		if err != nil {
			return nil, err
		}
		return Debounced(d), nil
	}
}

// Throttle returns a Factory that gives every key its own Throttler
// calling f with that key.
func Throttle[K comparable, T any](f func(K, T), config throttle.Config) Factory[K, T] {
	return func(key K) (Member[T], error) {
		return throttle.NewWithConfig(Bind(f, key), config)
	}
}

// Bind fixes the key argument of f.
func Bind[K comparable, T any](f func(K, T), key K) func(T) {
	if f == nil {
		return nil
	}
	return func(arg T) { f(key, arg) }
}
