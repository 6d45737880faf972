// Package griddus maintains derived, live views over a mutable, identity-keyed
// collection and tells observers exactly how each view changed.
//
// Mutations enter at a Collection. Each view subscribes to the change stream of
// exactly one upstream source, maintains its own derived sequence, and
// republishes a rewritten change stream to its own subscribers. Pipelines are
// built by chaining, typically:
//
//	collection → FilteredView → SortedView → WindowView
//
// Any view can also serve as a terminal source and be read directly.
//
// Everything here is single-threaded and synchronous. A mutation method runs to
// completion, raising zero or more change records depth-first through the
// pipeline, before it returns. Callers that share a pipeline across goroutines
// must serialize access themselves, and a change handler must not mutate the
// collection that triggered it.
package griddus

// Source is one stage in a pipeline: a readable sequence of identity-keyed
// items plus the change stream describing its mutations.
//
// A consumer can either call Items once to seed itself and then apply deltas,
// or subscribe before the first mutation. On a Reset record it must discard
// cached per-item state and re-pull Items.
type Source[T any] interface {
	// Items returns the current contents in order. The returned slice is a
	// copy and remains valid after further mutations.
	Items() []T

	// Len returns the current number of items.
	Len() int

	// ID returns the stable identifier for an item. Identity, not equality,
	// is the unit of change tracking across all views.
	ID(item T) string

	// Changes is the stream of change records describing mutations to this
	// source's sequence.
	Changes() *Event[Change[T]]
}
