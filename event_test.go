package griddus

import "testing"

// TestSubscribersRunInOrder verifies synchronous dispatch in subscription order
func TestSubscribersRunInOrder(t *testing.T) {
	var e Event[int]
	var order []int

	e.Subscribe(func(n int) { order = append(order, n*10) })
	e.Subscribe(func(n int) { order = append(order, n*10+1) })
	e.Raise(1)
	e.Raise(2)

	want := []int{10, 11, 20, 21}
	if len(order) != len(want) {
		t.Fatalf("Expected %d deliveries, got %d", len(want), len(order))
	}
	for i, n := range want {
		if order[i] != n {
			t.Errorf("Delivery %d: expected %d, got %d", i, n, order[i])
		}
	}
}

// TestUnsubscribeStopsDelivery verifies the unsubscribe capability
func TestUnsubscribeStopsDelivery(t *testing.T) {
	var e Event[string]
	count := 0

	unsubscribe := e.Subscribe(func(string) { count++ })
	e.Raise("one")
	unsubscribe()
	e.Raise("two")

	if count != 1 {
		t.Errorf("Expected 1 delivery, got %d", count)
	}
	if e.ListenerCount() != 0 {
		t.Errorf("Expected 0 listeners, got %d", e.ListenerCount())
	}
}

// TestDoubleUnsubscribeIsNoOp verifies calling unsubscribe twice does not fail
func TestDoubleUnsubscribeIsNoOp(t *testing.T) {
	var e Event[string]
	e.Subscribe(func(string) {})
	unsubscribe := e.Subscribe(func(string) {})

	unsubscribe()
	unsubscribe() // logs a diagnostic, must not remove the other listener

	if e.ListenerCount() != 1 {
		t.Errorf("Expected 1 listener, got %d", e.ListenerCount())
	}
}

// TestDispatchSnapshotsListeners verifies listeners changed during a raise do
// not affect the in-progress dispatch
func TestDispatchSnapshotsListeners(t *testing.T) {
	var e Event[int]
	var got []string

	var unsubB func()
	e.Subscribe(func(int) {
		got = append(got, "a")
		unsubB()                                          // b is removed mid-dispatch
		e.Subscribe(func(int) { got = append(got, "c") }) // c added mid-dispatch
	})
	unsubB = e.Subscribe(func(int) { got = append(got, "b") })

	e.Raise(1)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("Expected only 'a' on first raise, got %v", got)
	}

	got = nil
	e.Raise(2)
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("Expected 'a','c' on second raise, got %v", got)
	}
}

// TestSelfUnsubscribeDuringDispatch verifies a one-shot listener pattern
func TestSelfUnsubscribeDuringDispatch(t *testing.T) {
	var e Event[int]
	count := 0

	var unsubscribe func()
	unsubscribe = e.Subscribe(func(int) {
		count++
		unsubscribe()
	})

	e.Raise(1)
	e.Raise(2)
	if count != 1 {
		t.Errorf("Expected one-shot listener to fire once, got %d", count)
	}
}

// TestCollectGathersAndReleases verifies scoped collection of raised values
func TestCollectGathersAndReleases(t *testing.T) {
	var e Event[int]

	got := Collect(&e, func() {
		e.Raise(1)
		e.Raise(2)
		e.Raise(3)
	})

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("Expected [1 2 3], got %v", got)
	}
	if e.ListenerCount() != 0 {
		t.Errorf("Expected collection subscription released, have %d listeners", e.ListenerCount())
	}
}

// TestCollectReleasesOnPanic verifies unsubscription when the handler panics
func TestCollectReleasesOnPanic(t *testing.T) {
	var e Event[int]

	func() {
		defer func() { recover() }()
		Collect(&e, func() { panic("boom") })
	}()

	if e.ListenerCount() != 0 {
		t.Errorf("Expected subscription released after panic, have %d listeners", e.ListenerCount())
	}
}
