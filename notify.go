package griddus

// Notifier is the capability for items that announce their own internal
// mutations. A collection subscribes to an item implementing Notifier at
// insertion time and translates each notification into a ChangeUpdate record
// at the item's current index, so callers never have to report item mutations
// to the collection by hand.
//
// An item either implements this capability or it does not; no item is
// retrofitted after construction.
type Notifier interface {
	// NotifyOnChange registers fn to be called whenever the item's internal
	// state changes, and returns a function that cancels the registration.
	NotifyOnChange(fn func()) (cancel func())
}

// ChangeSignal is a ready-made Notifier for embedding in item types:
//
//	type Trade struct {
//		griddus.ChangeSignal
//		Price float64
//	}
//
// After mutating the item, call MarkChanged to announce the mutation.
// The zero value is ready to use.
type ChangeSignal struct {
	changed Event[struct{}]
}

// NotifyOnChange implements Notifier.
func (s *ChangeSignal) NotifyOnChange(fn func()) (cancel func()) {
	return s.changed.Subscribe(func(struct{}) { fn() })
}

// MarkChanged announces an internal mutation to all registered callbacks.
func (s *ChangeSignal) MarkChanged() {
	s.changed.Raise(struct{}{})
}
