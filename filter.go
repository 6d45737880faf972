package griddus

import "log/slog"

// FilteredView maintains the subsequence of upstream items passing a
// predicate, in upstream relative order.
//
// The view keeps a per-item "currently passes" cache keyed by identifier,
// with an entry for every identifier the upstream source knows. The visible
// sequence is exactly the identifiers whose cached value is true.
//
// Structural upstream changes cost O(n); the simplicity is deliberate.
type FilteredView[T any] struct {
	upstream  Source[T]
	predicate func(T) bool // nil means everything passes
	visible   []T
	passes    map[string]bool
	changes   Event[Change[T]]
	cancel    func()
}

// NewFilteredView creates a filtered view over upstream. A nil predicate
// passes every item.
func NewFilteredView[T any](upstream Source[T], predicate func(T) bool) *FilteredView[T] {
	v := &FilteredView[T]{
		upstream:  upstream,
		predicate: predicate,
	}
	v.rebuild()
	v.cancel = upstream.Changes().Subscribe(v.onUpstreamChange)
	return v
}

// Close detaches the view from its upstream change stream.
func (v *FilteredView[T]) Close() {
	v.cancel()
}

// Changes is the view's change stream.
func (v *FilteredView[T]) Changes() *Event[Change[T]] {
	return &v.changes
}

// Items returns a copy of the passing subsequence in upstream order.
func (v *FilteredView[T]) Items() []T {
	items := make([]T, len(v.visible))
	copy(items, v.visible)
	return items
}

// Len returns the number of passing items.
func (v *FilteredView[T]) Len() int {
	return len(v.visible)
}

// ID returns the identifier for an item.
func (v *FilteredView[T]) ID(item T) string {
	return v.upstream.ID(item)
}

// SetPredicate replaces the predicate, recomputing the pass flag for every
// upstream item. If at least one flag changed the visible sequence is rebuilt
// and a Reset then a Scroll are raised; re-applying an equivalent predicate
// raises nothing.
func (v *FilteredView[T]) SetPredicate(predicate func(T) bool) {
	v.predicate = predicate
	items := v.upstream.Items()
	passes := make(map[string]bool, len(items))
	changed := false
	for _, item := range items {
		id := v.upstream.ID(item)
		p := predicate == nil || predicate(item)
		if p != v.passes[id] {
			changed = true
		}
		passes[id] = p
	}
	if !changed {
		return
	}
	v.passes = passes
	v.visible = v.visible[:0]
	for _, item := range items {
		if passes[v.upstream.ID(item)] {
			v.visible = append(v.visible, item)
		}
	}
	v.changes.Raise(NewReset[T]())
	v.changes.Raise(NewScroll[T]())
}

// rebuild recomputes the cache and visible sequence from the upstream's full
// current contents.
func (v *FilteredView[T]) rebuild() {
	items := v.upstream.Items()
	v.passes = make(map[string]bool, len(items))
	v.visible = nil
	for _, item := range items {
		id := v.upstream.ID(item)
		p := v.passItem(item)
		v.passes[id] = p
		if p {
			v.visible = append(v.visible, item)
		}
	}
}

func (v *FilteredView[T]) passItem(item T) bool {
	return v.predicate == nil || v.predicate(item)
}

func (v *FilteredView[T]) onUpstreamChange(ch Change[T]) {
	switch ch.Type {
	case ChangeInsert:
		p := v.passItem(ch.Item)
		v.passes[ch.ID] = p
		if p {
			v.visible = append(v.visible, ch.Item)
			v.changes.Raise(NewInsert(ch.Item, ch.ID, len(v.visible)-1, ch.NewlyAdded))
		}

	case ChangeRemove:
		wasVisible := v.passes[ch.ID]
		delete(v.passes, ch.ID)
		if wasVisible {
			index := v.indexOf(ch.ID)
			if index < 0 {
				invariantf("filter: visible item %q not in sequence", ch.ID)
			}
			v.visible = append(v.visible[:index], v.visible[index+1:]...)
			v.changes.Raise(NewRemove(ch.Item, ch.ID, index))
		}

	case ChangeUpdate:
		was, known := v.passes[ch.ID]
		if !known {
			invariantf("filter: update for unknown item %q", ch.ID)
		}
		now := v.passItem(ch.Item)
		v.passes[ch.ID] = now
		switch {
		case was && now:
			index := v.indexOf(ch.ID)
			if index < 0 {
				invariantf("filter: visible item %q not in sequence", ch.ID)
			}
			v.visible[index] = ch.Item
			v.changes.Raise(NewUpdate(ch.Item, ch.ID, index))
		case !was && now:
			// Newly passing: appended, relocated rather than newly added.
			v.visible = append(v.visible, ch.Item)
			v.changes.Raise(NewInsert(ch.Item, ch.ID, len(v.visible)-1, false))
		case was && !now:
			index := v.indexOf(ch.ID)
			if index < 0 {
				invariantf("filter: visible item %q not in sequence", ch.ID)
			}
			v.visible = append(v.visible[:index], v.visible[index+1:]...)
			v.changes.Raise(NewRemove(ch.Item, ch.ID, index))
		}

	case ChangeMove, ChangeReplace:
		// Known limitation: reordering cannot be translated through a filter
		// without re-deriving every pass position, so the record is dropped.
		slog.Error("filter: unsupported upstream change dropped", "type", ch.Type.String(), "id", ch.ID)

	case ChangeReset:
		v.rebuild()
		v.changes.Raise(NewReset[T]())

	case ChangeScroll:
		v.changes.Raise(NewScroll[T]())
	}
}

// indexOf scans for the visible index of id, or -1.
func (v *FilteredView[T]) indexOf(id string) int {
	for i, item := range v.visible {
		if v.upstream.ID(item) == id {
			return i
		}
	}
	return -1
}
