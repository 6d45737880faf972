package griddus

import "log/slog"

// listener is a single subscription. The active flag makes unsubscription
// idempotent and lets a dispatch snapshot skip listeners removed mid-raise.
type listener[T any] struct {
	fn     func(T)
	active bool
}

// Event is a synchronous publish/subscribe channel for values of type T.
// The zero value is ready to use.
//
// Dispatch order is subscription order. Raise operates on a snapshot of the
// listener list, so subscribing or unsubscribing from within a handler takes
// effect on the next raise, never the one in progress.
type Event[T any] struct {
	listeners []*listener[T]
}

// Subscribe registers fn and returns a function that removes the
// subscription. Calling the returned function more than once is a no-op that
// logs a diagnostic.
func (e *Event[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	l := &listener[T]{fn: fn, active: true}
	e.listeners = append(e.listeners, l)
	return func() {
		if !l.active {
			slog.Warn("event: unsubscribe called more than once")
			return
		}
		l.active = false
		for i, candidate := range e.listeners {
			if candidate == l {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				break
			}
		}
	}
}

// Raise invokes every current subscriber with item, synchronously, in
// subscription order.
func (e *Event[T]) Raise(item T) {
	if len(e.listeners) == 0 {
		return
	}
	snapshot := make([]*listener[T], len(e.listeners))
	copy(snapshot, e.listeners)
	for _, l := range snapshot {
		if l.active {
			l.fn(item)
		}
	}
}

// ListenerCount returns the number of active subscriptions.
func (e *Event[T]) ListenerCount() int {
	return len(e.listeners)
}

// Collect subscribes to e for the duration of run and returns every value
// raised while run executed. The temporary subscription is removed however
// run exits, including by panic.
func Collect[T any](e *Event[T], run func()) []T {
	var collected []T
	unsubscribe := e.Subscribe(func(item T) {
		collected = append(collected, item)
	})
	defer unsubscribe()
	run()
	return collected
}
