package griddus

import "fmt"

// Collection is the root mutable source of a pipeline. It owns an ordered
// sequence of items and the identifier-to-item mapping, and is the only
// mutation entry point; views never write back upstream.
//
// Identifiers are derived by the accessor supplied at construction and must
// be unique within the collection and stable for an item's lifetime.
type Collection[T any] struct {
	idOf    func(T) string
	items   []T
	byID    map[string]T
	cancels map[string]func() // Notifier cancellations, by item id
	changes Event[Change[T]]
}

// NewCollection creates an empty collection whose item identifiers are
// derived by idOf.
func NewCollection[T any](idOf func(T) string) *Collection[T] {
	return &Collection[T]{
		idOf:    idOf,
		byID:    make(map[string]T),
		cancels: make(map[string]func()),
	}
}

// NewCollectionOf creates a collection seeded with items. It fails if the
// initial sequence contains a duplicate identifier.
func NewCollectionOf[T any](idOf func(T) string, items []T) (*Collection[T], error) {
	c := NewCollection(idOf)
	if err := c.AddRange(items); err != nil {
		return nil, err
	}
	return c, nil
}

// Changes is the collection's change stream.
func (c *Collection[T]) Changes() *Event[Change[T]] {
	return &c.changes
}

// Items returns a copy of the current contents in insertion order.
func (c *Collection[T]) Items() []T {
	items := make([]T, len(c.items))
	copy(items, c.items)
	return items
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	return len(c.items)
}

// ID returns the identifier for an item.
func (c *Collection[T]) ID(item T) string {
	return c.idOf(item)
}

// Get returns the item registered under id.
func (c *Collection[T]) Get(id string) (T, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Add appends item and raises an Insert record at the new last index. It
// fails with ErrDuplicateID, leaving state unchanged, if the item's
// identifier is already registered.
//
// If the item implements Notifier the collection subscribes to it and raises
// an Update record at the item's current index whenever it announces an
// internal change.
func (c *Collection[T]) Add(item T) error {
	id := c.idOf(item)
	if _, exists := c.byID[id]; exists {
		return fmt.Errorf("add %q: %w", id, ErrDuplicateID)
	}
	c.items = append(c.items, item)
	c.byID[id] = item
	c.watchItem(id, item)
	c.changes.Raise(NewInsert(item, id, len(c.items)-1, true))
	return nil
}

// AddRange appends items as one bulk load, raising a single Reset followed by
// a Scroll rather than per-item Inserts; downstream must not assume
// fine-grained diffs for bulk loads. A duplicate identifier anywhere in the
// batch (against the collection or within the batch itself) rejects the whole
// batch and leaves state unchanged.
func (c *Collection[T]) AddRange(items []T) error {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := c.idOf(item)
		if _, exists := c.byID[id]; exists {
			return fmt.Errorf("addRange %q: %w", id, ErrDuplicateID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("addRange %q: %w", id, ErrDuplicateID)
		}
		seen[id] = struct{}{}
	}
	for _, item := range items {
		id := c.idOf(item)
		c.items = append(c.items, item)
		c.byID[id] = item
		c.watchItem(id, item)
	}
	c.changes.Raise(NewReset[T]())
	c.changes.Raise(NewScroll[T]())
	return nil
}

// RemoveAt removes the item at index and raises a Remove record. This is the
// only way an item leaves the collection.
func (c *Collection[T]) RemoveAt(index int) (T, error) {
	var zero T
	if index < 0 || index >= len(c.items) {
		return zero, fmt.Errorf("removeAt %d of %d: %w", index, len(c.items), ErrIndexOutOfRange)
	}
	item := c.items[index]
	id := c.idOf(item)
	c.unwatchItem(id)
	delete(c.byID, id)
	c.items = append(c.items[:index], c.items[index+1:]...)
	c.changes.Raise(NewRemove(item, id, index))
	return item, nil
}

// Move relocates the item at oldIndex to newIndex and raises a Move record.
func (c *Collection[T]) Move(oldIndex, newIndex int) error {
	if oldIndex < 0 || oldIndex >= len(c.items) {
		return fmt.Errorf("move from %d of %d: %w", oldIndex, len(c.items), ErrIndexOutOfRange)
	}
	if newIndex < 0 || newIndex >= len(c.items) {
		return fmt.Errorf("move to %d of %d: %w", newIndex, len(c.items), ErrIndexOutOfRange)
	}
	if oldIndex == newIndex {
		return nil
	}
	item := c.items[oldIndex]
	c.items = append(c.items[:oldIndex], c.items[oldIndex+1:]...)
	c.items = append(c.items[:newIndex], append([]T{item}, c.items[newIndex:]...)...)
	c.changes.Raise(NewMove(item, c.idOf(item), oldIndex, newIndex))
	return nil
}

// Clear empties the collection and raises a Reset record.
func (c *Collection[T]) Clear() {
	for id := range c.cancels {
		c.unwatchItem(id)
	}
	c.items = nil
	c.byID = make(map[string]T)
	c.changes.Raise(NewReset[T]())
}

// Reset raises a Reset record without mutating state, forcing downstream
// views to rebuild.
func (c *Collection[T]) Reset() {
	c.changes.Raise(NewReset[T]())
}

// watchItem subscribes to the item's change notifications if it exposes the
// Notifier capability. The item's index is resolved at notification time, by
// identity, since it may have moved since insertion.
func (c *Collection[T]) watchItem(id string, item T) {
	notifier, ok := any(item).(Notifier)
	if !ok {
		return
	}
	c.cancels[id] = notifier.NotifyOnChange(func() {
		current, ok := c.byID[id]
		if !ok {
			return
		}
		index := c.indexOf(id)
		if index < 0 {
			invariantf("collection: item %q registered but not in sequence", id)
		}
		c.changes.Raise(NewUpdate(current, id, index))
	})
}

// unwatchItem cancels the item's Notifier subscription, if any.
func (c *Collection[T]) unwatchItem(id string) {
	if cancel, ok := c.cancels[id]; ok {
		cancel()
		delete(c.cancels, id)
	}
}

// indexOf scans for the current index of id, or -1.
func (c *Collection[T]) indexOf(id string) int {
	for i, item := range c.items {
		if c.idOf(item) == id {
			return i
		}
	}
	return -1
}
