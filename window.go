package griddus

import (
	"fmt"
	"log/slog"
)

// windowResetFraction is the scroll distance, as a fraction of the window
// size, at or beyond which SetOffset raises Reset+Scroll instead of per-row
// diffs. At that point a rebuild is cheaper for the consumer than applying
// the diffs one by one. A heuristic, not an invariant.
const windowResetFraction = 0.5

// WindowView maintains a bounded contiguous slice of the upstream sequence
// with scroll semantics. The visible sequence is always derived from the
// upstream at read time as the slice [offset, offset+size) clamped to
// upstream bounds, never a cached copy that could desynchronize.
type WindowView[T any] struct {
	upstream Source[T]
	offset   int
	size     int
	changes  Event[Change[T]]
	cancel   func()
}

// NewWindowView creates a window of the given item capacity over upstream,
// initially at offset zero. A negative size fails with ErrNegativeSize.
func NewWindowView[T any](upstream Source[T], size int) (*WindowView[T], error) {
	if size < 0 {
		return nil, fmt.Errorf("window size %d: %w", size, ErrNegativeSize)
	}
	v := &WindowView[T]{
		upstream: upstream,
		size:     size,
	}
	v.cancel = upstream.Changes().Subscribe(v.onUpstreamChange)
	return v, nil
}

// Close detaches the view from its upstream change stream.
func (v *WindowView[T]) Close() {
	v.cancel()
}

// Changes is the view's change stream.
func (v *WindowView[T]) Changes() *Event[Change[T]] {
	return &v.changes
}

// Offset returns the upstream index of the first visible item.
func (v *WindowView[T]) Offset() int {
	return v.offset
}

// Size returns the window's item capacity. The visible sequence is shorter
// when the upstream runs out of items.
func (v *WindowView[T]) Size() int {
	return v.size
}

// Total returns the upstream sequence length, for scroll-position chrome.
func (v *WindowView[T]) Total() int {
	return v.upstream.Len()
}

// Items returns the upstream slice [offset, offset+size) clamped to upstream
// bounds.
func (v *WindowView[T]) Items() []T {
	items := v.upstream.Items()
	lo := min(v.offset, len(items))
	hi := min(v.offset+v.size, len(items))
	return items[lo:hi]
}

// Len returns the visible item count.
func (v *WindowView[T]) Len() int {
	total := v.upstream.Len()
	return min(v.offset+v.size, total) - min(v.offset, total)
}

// ID returns the identifier for an item.
func (v *WindowView[T]) ID(item T) string {
	return v.upstream.ID(item)
}

// SetOffset scrolls the window to a new upstream offset. A negative offset
// fails with ErrNegativeOffset, leaving state intact.
//
// A shift of at least windowResetFraction of the window size raises
// Reset+Scroll. A smaller shift raises one Replace per row slid into/out of
// view, in scroll direction (a plain Insert or Remove at the boundary when
// the upstream is too short to fill the slot), then a single Scroll.
func (v *WindowView[T]) SetOffset(offset int) error {
	if offset < 0 {
		return fmt.Errorf("window offset %d: %w", offset, ErrNegativeOffset)
	}
	if offset == v.offset {
		return nil
	}
	delta := offset - v.offset
	distance := delta
	if distance < 0 {
		distance = -distance
	}
	if float64(distance) >= windowResetFraction*float64(v.size) {
		v.offset = offset
		v.changes.Raise(NewReset[T]())
		v.changes.Raise(NewScroll[T]())
		return nil
	}

	items := v.upstream.Items()
	total := len(items)
	if delta > 0 {
		// Scrolling down: a row leaves the top, a row enters the bottom.
		for step := 0; step < delta; step++ {
			leaving := v.offset            // upstream index of the top row
			entering := v.offset + v.size  // upstream index of the row below
			v.offset++
			hasLeaving := leaving < total
			hasEntering := entering < total
			switch {
			case hasLeaving && hasEntering:
				v.changes.Raise(NewReplace(
					items[leaving], v.upstream.ID(items[leaving]), 0,
					items[entering], v.upstream.ID(items[entering]), v.size-1,
					false))
			case hasLeaving:
				v.changes.Raise(NewRemove(items[leaving], v.upstream.ID(items[leaving]), 0))
			}
		}
	} else {
		// Scrolling up: a row enters the top, a row leaves the bottom.
		for step := 0; step < -delta; step++ {
			v.offset--
			entering := v.offset           // new top row
			leaving := v.offset + v.size   // row pushed out below
			hasEntering := entering < total
			hasLeaving := leaving < total
			switch {
			case hasEntering && hasLeaving:
				v.changes.Raise(NewReplace(
					items[leaving], v.upstream.ID(items[leaving]), v.size-1,
					items[entering], v.upstream.ID(items[entering]), 0,
					false))
			case hasEntering:
				v.changes.Raise(NewInsert(items[entering], v.upstream.ID(items[entering]), 0, false))
			}
		}
	}
	v.changes.Raise(NewScroll[T]())
	return nil
}

// SetSize changes the window's capacity. A negative size fails with
// ErrNegativeSize, leaving state intact. Growing raises an Insert for each
// newly exposed upstream row, clamped to upstream bounds; shrinking raises a
// Remove for each newly hidden row, each reported at the new boundary as the
// rows above it peel away. A single Scroll follows either way.
func (v *WindowView[T]) SetSize(size int) error {
	if size < 0 {
		return fmt.Errorf("window size %d: %w", size, ErrNegativeSize)
	}
	if size == v.size {
		return nil
	}
	items := v.upstream.Items()
	total := len(items)
	if size > v.size {
		for i := v.size; i < size; i++ {
			upstreamIndex := v.offset + i
			if upstreamIndex >= total {
				break
			}
			v.changes.Raise(NewInsert(items[upstreamIndex], v.upstream.ID(items[upstreamIndex]), i, false))
		}
		v.size = size
	} else {
		oldHi := min(v.offset+v.size, total)
		v.size = size
		boundary := min(v.offset+size, total) - min(v.offset, total)
		for upstreamIndex := min(v.offset+size, total); upstreamIndex < oldHi; upstreamIndex++ {
			v.changes.Raise(NewRemove(items[upstreamIndex], v.upstream.ID(items[upstreamIndex]), boundary))
		}
	}
	v.changes.Raise(NewScroll[T]())
	return nil
}

func (v *WindowView[T]) onUpstreamChange(ch Change[T]) {
	lo, hi := v.offset, v.offset+v.size
	switch ch.Type {
	case ChangeInsert:
		if ch.Index >= lo && ch.Index < hi {
			v.changes.Raise(NewInsert(ch.Item, ch.ID, ch.Index-lo, ch.NewlyAdded))
		} else {
			// Content unchanged, but the scrollable extent shifted.
			v.changes.Raise(NewScroll[T]())
		}

	case ChangeRemove:
		switch {
		case ch.Index >= lo && ch.Index < hi:
			v.changes.Raise(NewRemove(ch.Item, ch.ID, ch.Index-lo))
		case ch.Index < lo:
			// Slide down silently so the window keeps tracking the same
			// absolute items.
			v.offset--
			v.changes.Raise(NewScroll[T]())
		default:
			v.changes.Raise(NewScroll[T]())
		}

	case ChangeUpdate:
		if ch.Index >= lo && ch.Index < hi {
			v.changes.Raise(NewUpdate(ch.Item, ch.ID, ch.Index-lo))
		}

	case ChangeMove:
		v.onUpstreamMove(ch)

	case ChangeReplace:
		slog.Error("window: unsupported upstream change dropped", "type", ch.Type.String(), "id", ch.ID)

	case ChangeReset, ChangeScroll:
		v.changes.Raise(ch)
	}
}

// onUpstreamMove classifies the move's endpoints against the window. Both
// inside is a plain windowed Move; both outside on the same side is silent;
// anything else shifts the window's absolute position set by exactly one
// item, expressed as a Replace of the leaving row by the entering row.
// Upstream has already applied the move when this runs.
func (v *WindowView[T]) onUpstreamMove(ch Change[T]) {
	lo, hi := v.offset, v.offset+v.size
	oldInside := ch.OldIndex >= lo && ch.OldIndex < hi
	newInside := ch.NewIndex >= lo && ch.NewIndex < hi

	switch {
	case oldInside && newInside:
		v.changes.Raise(NewMove(ch.Item, ch.ID, ch.OldIndex-lo, ch.NewIndex-lo))
		return
	case !oldInside && !newInside &&
		((ch.OldIndex < lo && ch.NewIndex < lo) || (ch.OldIndex >= hi && ch.NewIndex >= hi)):
		return
	}

	items := v.upstream.Items()
	total := len(items)

	var leavingItem T
	var leavingIndex int
	switch {
	case oldInside:
		leavingItem, leavingIndex = ch.Item, ch.OldIndex-lo
	case ch.OldIndex < lo:
		// The former top row slid out above the window.
		if lo-1 >= total {
			v.degenerateReset()
			return
		}
		leavingItem, leavingIndex = items[lo-1], 0
	default:
		// The former bottom row now sits just past the window.
		if hi >= total {
			v.degenerateReset()
			return
		}
		leavingItem, leavingIndex = items[hi], v.size-1
	}

	var enteringItem T
	var enteringIndex int
	switch {
	case newInside:
		enteringItem, enteringIndex = ch.Item, ch.NewIndex-lo
	case ch.NewIndex >= hi:
		if hi-1 >= total {
			v.degenerateReset()
			return
		}
		enteringItem, enteringIndex = items[hi-1], v.size-1
	default:
		if lo >= total {
			v.degenerateReset()
			return
		}
		enteringItem, enteringIndex = items[lo], 0
	}

	v.changes.Raise(NewReplace(
		leavingItem, v.upstream.ID(leavingItem), leavingIndex,
		enteringItem, v.upstream.ID(enteringItem), enteringIndex,
		false))
}

// degenerateReset covers a partially filled window where a boundary row
// needed for a Replace does not exist upstream.
func (v *WindowView[T]) degenerateReset() {
	v.changes.Raise(NewReset[T]())
	v.changes.Raise(NewScroll[T]())
}
