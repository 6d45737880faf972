package griddus

import "strings"

// testItem is the item type used across the pipeline tests: a stable id, a
// mutable numeric value, and self-announced changes via ChangeSignal.
type testItem struct {
	ChangeSignal
	id      string
	value   float64
	missing bool // item has no sort value under valueColumn
}

func newItem(id string, value float64) *testItem {
	return &testItem{id: id, value: value}
}

func testID(it *testItem) string {
	return it.id
}

// newTestCollection builds a collection and adds the items one by one, so
// each arrives as a fine-grained Insert.
func newTestCollection(items ...*testItem) *Collection[*testItem] {
	c := NewCollection(testID)
	for _, it := range items {
		if err := c.Add(it); err != nil {
			panic(err)
		}
	}
	return c
}

// ids renders a sequence as a comma-joined id list for compact assertions.
func ids(items []*testItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.id
	}
	return strings.Join(parts, ",")
}

// changeTypes renders collected change records as a comma-joined type list.
func changeTypes(changes []Change[*testItem]) string {
	parts := make([]string, len(changes))
	for i, ch := range changes {
		parts[i] = ch.Type.String()
	}
	return strings.Join(parts, ",")
}

// valueColumn sorts testItems by value under a configurable key and default
// direction.
type valueColumn struct {
	key string
	def SortDirection
}

func (c valueColumn) SortKey() string                 { return c.key }
func (c valueColumn) DefaultDirection() SortDirection { return c.def }

func (c valueColumn) HasSortValue(it *testItem) bool { return !it.missing }

func (c valueColumn) CompareItems(a, b *testItem) int {
	switch {
	case a.value < b.value:
		return -1
	case a.value > b.value:
		return 1
	}
	return 0
}
