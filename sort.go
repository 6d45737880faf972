package griddus

import (
	"log/slog"
	"slices"
)

// SortDirection is the active ordering direction of a sorted view.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// String returns the direction's name.
func (d SortDirection) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// SortColumn is the ordering capability a sorted view sorts by: a stable key
// identifying the ordering, a default direction, and a deterministic
// comparison.
//
// CompareItems is always asked in the ascending sense and only for items that
// both have a sort value; items without one order last regardless of
// direction, and ties keep their pre-existing order.
type SortColumn[T any] interface {
	// SortKey identifies the ordering. Reselecting the same key on a sorted
	// view toggles its direction.
	SortKey() string

	// DefaultDirection is the direction adopted when this key is first
	// selected.
	DefaultDirection() SortDirection

	// HasSortValue reports whether the item has a value under this ordering.
	HasSortValue(item T) bool

	// CompareItems returns a negative number if a orders before b, zero if
	// they tie, positive otherwise.
	CompareItems(a, b T) int
}

// SortedView maintains a fully materialized sequence of the upstream items,
// totally ordered by the current sort column at every observable instant.
// With no column selected the view mirrors upstream order.
type SortedView[T any] struct {
	upstream  Source[T]
	column    SortColumn[T] // nil means upstream order
	direction SortDirection
	items     []T
	changes   Event[Change[T]]
	cancel    func()
}

// NewSortedView creates a sorted view over upstream with no sort column
// selected.
func NewSortedView[T any](upstream Source[T]) *SortedView[T] {
	v := &SortedView[T]{
		upstream:  upstream,
		direction: Ascending,
		items:     upstream.Items(),
	}
	v.cancel = upstream.Changes().Subscribe(v.onUpstreamChange)
	return v
}

// Close detaches the view from its upstream change stream.
func (v *SortedView[T]) Close() {
	v.cancel()
}

// Changes is the view's change stream.
func (v *SortedView[T]) Changes() *Event[Change[T]] {
	return &v.changes
}

// Items returns a copy of the sorted sequence.
func (v *SortedView[T]) Items() []T {
	items := make([]T, len(v.items))
	copy(items, v.items)
	return items
}

// Len returns the number of items.
func (v *SortedView[T]) Len() int {
	return len(v.items)
}

// ID returns the identifier for an item.
func (v *SortedView[T]) ID(item T) string {
	return v.upstream.ID(item)
}

// Column returns the active sort column, or nil when the view mirrors
// upstream order.
func (v *SortedView[T]) Column() SortColumn[T] {
	return v.column
}

// Direction returns the active sort direction.
func (v *SortedView[T]) Direction() SortDirection {
	return v.direction
}

// SetSortColumn selects the ordering. Reselecting the current column's key
// toggles direction; a new column adopts its default direction; nil reverts
// to upstream order, ascending. The sequence is fully re-sorted and a Reset
// is raised in every case.
func (v *SortedView[T]) SetSortColumn(column SortColumn[T]) {
	switch {
	case column == nil:
		v.column = nil
		v.direction = Ascending
	case v.column != nil && v.column.SortKey() == column.SortKey():
		v.column = column
		if v.direction == Ascending {
			v.direction = Descending
		} else {
			v.direction = Ascending
		}
	default:
		v.column = column
		v.direction = column.DefaultDirection()
	}
	v.resort()
	v.changes.Raise(NewReset[T]())
}

// compare orders a against b under the active column and direction. Missing
// sort values order last regardless of direction. With no column selected
// everything ties, which preserves upstream order.
func (v *SortedView[T]) compare(a, b T) int {
	if v.column == nil {
		return 0
	}
	aMissing := !v.column.HasSortValue(a)
	bMissing := !v.column.HasSortValue(b)
	switch {
	case aMissing && bMissing:
		return 0
	case aMissing:
		return 1
	case bMissing:
		return -1
	}
	c := v.column.CompareItems(a, b)
	if v.direction == Descending {
		c = -c
	}
	return c
}

// resort rebuilds the sequence from upstream's current contents. The sort is
// stable, so ties keep upstream relative order.
func (v *SortedView[T]) resort() {
	v.items = v.upstream.Items()
	slices.SortStableFunc(v.items, v.compare)
}

// insertionIndex finds the index at which item preserves sort order, by
// binary search. Equal items insert after existing ones, keeping ties stable
// by arrival order. O(log n); the caller's splice is O(n).
func (v *SortedView[T]) insertionIndex(item T) int {
	return v.insertionIndexExcluding(item, -1)
}

// insertionIndexExcluding searches with the element at exclude (or none, for
// -1) treated as absent. For an updated item still sitting mis-ordered at its
// old position this is what makes the search sound: probing the item itself
// would compare it equal and could steer the search back to the old position.
// The returned index is in post-removal coordinates, so it is directly the
// target of a splice-move.
func (v *SortedView[T]) insertionIndexExcluding(item T, exclude int) int {
	lo, hi := 0, len(v.items)
	if exclude >= 0 {
		hi--
	}
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		probe := mid
		if exclude >= 0 && probe >= exclude {
			probe++
		}
		if v.compare(item, v.items[probe]) < 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

func (v *SortedView[T]) onUpstreamChange(ch Change[T]) {
	switch ch.Type {
	case ChangeInsert:
		index := v.insertionIndex(ch.Item)
		v.items = append(v.items[:index], append([]T{ch.Item}, v.items[index:]...)...)
		v.changes.Raise(NewInsert(ch.Item, ch.ID, index, ch.NewlyAdded))

	case ChangeRemove:
		index := v.indexOf(ch.ID)
		if index < 0 {
			invariantf("sort: remove for unknown item %q", ch.ID)
		}
		v.items = append(v.items[:index], v.items[index+1:]...)
		v.changes.Raise(NewRemove(ch.Item, ch.ID, index))

	case ChangeUpdate:
		v.onUpstreamUpdate(ch)

	case ChangeMove, ChangeReplace:
		// Known limitation: upstream reordering is not translated through a
		// sorted view; the maintained order is already independent of it.
		slog.Error("sort: unsupported upstream change dropped", "type", ch.Type.String(), "id", ch.ID)

	case ChangeReset:
		v.resort()
		v.changes.Raise(NewReset[T]())

	case ChangeScroll:
		v.changes.Raise(NewScroll[T]())
	}
}

// onUpstreamUpdate re-evaluates an updated item's sorted position. If its
// neighbors still order correctly around it the item stays put and a single
// Update is raised; otherwise it splices to its new position and a Move is
// raised. The neighbor check also keeps an item comparing equal to itself
// from churning.
func (v *SortedView[T]) onUpstreamUpdate(ch Change[T]) {
	oldIndex := v.indexOf(ch.ID)
	if oldIndex < 0 {
		invariantf("sort: update for unknown item %q", ch.ID)
	}
	v.items[oldIndex] = ch.Item

	last := len(v.items) - 1
	orderedBefore := oldIndex == 0 || v.compare(v.items[oldIndex-1], ch.Item) <= 0
	orderedAfter := oldIndex == last || v.compare(ch.Item, v.items[oldIndex+1]) <= 0
	if orderedBefore && orderedAfter {
		v.changes.Raise(NewUpdate(ch.Item, ch.ID, oldIndex))
		return
	}

	// Search against the rest of the sequence. The result is already in
	// post-removal coordinates, which absorbs the index shift a removal
	// before the target would otherwise cause.
	newIndex := v.insertionIndexExcluding(ch.Item, oldIndex)
	if newIndex == oldIndex {
		v.changes.Raise(NewUpdate(ch.Item, ch.ID, oldIndex))
		return
	}
	v.items = append(v.items[:oldIndex], v.items[oldIndex+1:]...)
	v.items = append(v.items[:newIndex], append([]T{ch.Item}, v.items[newIndex:]...)...)
	v.changes.Raise(NewMove(ch.Item, ch.ID, oldIndex, newIndex))
}

// indexOf scans for the sorted index of id, or -1.
func (v *SortedView[T]) indexOf(id string) int {
	for i, item := range v.items {
		if v.upstream.ID(item) == id {
			return i
		}
	}
	return -1
}
