package griddus

// ChangeType tags a Change record with the kind of mutation it describes.
type ChangeType int

const (
	// ChangeInsert reports an item added to the sequence at Index. The
	// NewlyAdded flag distinguishes a genuinely new item from one relocated
	// into view (for example by a filter predicate change).
	ChangeInsert ChangeType = iota

	// ChangeRemove reports the item removed from Index.
	ChangeRemove

	// ChangeUpdate reports that the item at Index changed value; identity and
	// position are preserved.
	ChangeUpdate

	// ChangeMove reports the item relocated from OldIndex to NewIndex.
	ChangeMove

	// ChangeReplace reports one row's identity swapped for another's: the
	// item identified by OldID left the sequence at OldIndex and Item entered
	// at Index. Window views use this to express "slide by one".
	ChangeReplace

	// ChangeReset carries no payload: the consumer must discard incremental
	// state and re-pull the source's full contents.
	ChangeReset

	// ChangeScroll carries no payload: positional bookkeeping changed outside
	// the observable window without changing visible content.
	ChangeScroll
)

// String returns the change type's name.
func (t ChangeType) String() string {
	switch t {
	case ChangeInsert:
		return "insert"
	case ChangeRemove:
		return "remove"
	case ChangeUpdate:
		return "update"
	case ChangeMove:
		return "move"
	case ChangeReplace:
		return "replace"
	case ChangeReset:
		return "reset"
	case ChangeScroll:
		return "scroll"
	}
	return "unknown"
}

// Change is an immutable description of a single mutation to a source's
// sequence. Fields not meaningful to a variant hold -1 (indices) or zero
// values. Construct records with the per-variant factory functions.
type Change[T any] struct {
	Type ChangeType

	// Item and ID identify the subject of the record. For ChangeReplace they
	// describe the entering item.
	Item T
	ID   string

	// Index is the position the record applies at: the insertion index, the
	// removal index, the updated item's index, or the entering index of a
	// replace.
	Index int

	// OldIndex and NewIndex are the endpoints of a ChangeMove.
	OldIndex int
	NewIndex int

	// OldItem, OldID and OldIndex describe the leaving side of a
	// ChangeReplace.
	OldItem T
	OldID   string

	// NewlyAdded is true when an inserted item is new to the pipeline rather
	// than relocated into view.
	NewlyAdded bool
}

// NewInsert builds a record for an item entering the sequence at index.
func NewInsert[T any](item T, id string, index int, newlyAdded bool) Change[T] {
	return Change[T]{
		Type:       ChangeInsert,
		Item:       item,
		ID:         id,
		Index:      index,
		OldIndex:   -1,
		NewIndex:   -1,
		NewlyAdded: newlyAdded,
	}
}

// NewRemove builds a record for an item leaving the sequence from index.
func NewRemove[T any](item T, id string, index int) Change[T] {
	return Change[T]{
		Type:     ChangeRemove,
		Item:     item,
		ID:       id,
		Index:    index,
		OldIndex: -1,
		NewIndex: -1,
	}
}

// NewUpdate builds a record for an in-place value change at index.
func NewUpdate[T any](item T, id string, index int) Change[T] {
	return Change[T]{
		Type:     ChangeUpdate,
		Item:     item,
		ID:       id,
		Index:    index,
		OldIndex: -1,
		NewIndex: -1,
	}
}

// NewMove builds a record for an item relocating from oldIndex to newIndex.
func NewMove[T any](item T, id string, oldIndex, newIndex int) Change[T] {
	return Change[T]{
		Type:     ChangeMove,
		Item:     item,
		ID:       id,
		Index:    -1,
		OldIndex: oldIndex,
		NewIndex: newIndex,
	}
}

// NewReplace builds a record for one row's identity swapped for another's:
// oldItem left from oldIndex and newItem entered at newIndex.
func NewReplace[T any](oldItem T, oldID string, oldIndex int, newItem T, newID string, newIndex int, newlyAdded bool) Change[T] {
	return Change[T]{
		Type:       ChangeReplace,
		Item:       newItem,
		ID:         newID,
		Index:      newIndex,
		OldItem:    oldItem,
		OldID:      oldID,
		OldIndex:   oldIndex,
		NewIndex:   -1,
		NewlyAdded: newlyAdded,
	}
}

// NewReset builds a discard-and-re-pull record.
func NewReset[T any]() Change[T] {
	return Change[T]{Type: ChangeReset, Index: -1, OldIndex: -1, NewIndex: -1}
}

// NewScroll builds a positional-bookkeeping record.
func NewScroll[T any]() Change[T] {
	return Change[T]{Type: ChangeScroll, Index: -1, OldIndex: -1, NewIndex: -1}
}
