// Package grid binds a collection-view pipeline to a tabular consumer. A
// Table subscribes to a terminal view, keeps a local row model keyed by item
// identifier, and translates change records into row operations a renderer
// can apply incrementally. Columns define how items project to cells and
// double as the pipeline's sort capability.
package grid

import (
	"strconv"
	"strings"

	griddus "github.com/drewnoakes/biggus-griddus"
)

// Column projects an item to one cell of a row.
type Column[T any] interface {
	// Key identifies the column, and is the sort key when the column is
	// sortable.
	Key() string

	// Title is the header text.
	Title() string

	// CellText renders the item's cell under this column.
	CellText(item T) string
}

// TextColumn renders and sorts by a string projection. Empty strings count
// as having no sort value, so they order last.
type TextColumn[T any] struct {
	key   string
	title string
	value func(T) string
}

// NewTextColumn creates a text column.
func NewTextColumn[T any](key, title string, value func(T) string) *TextColumn[T] {
	return &TextColumn[T]{key: key, title: title, value: value}
}

func (c *TextColumn[T]) Key() string   { return c.key }
func (c *TextColumn[T]) Title() string { return c.title }

func (c *TextColumn[T]) CellText(item T) string { return c.value(item) }

// SortKey implements griddus.SortColumn.
func (c *TextColumn[T]) SortKey() string { return c.key }

// DefaultDirection implements griddus.SortColumn.
func (c *TextColumn[T]) DefaultDirection() griddus.SortDirection { return griddus.Ascending }

// HasSortValue implements griddus.SortColumn.
func (c *TextColumn[T]) HasSortValue(item T) bool { return c.value(item) != "" }

// CompareItems implements griddus.SortColumn.
func (c *TextColumn[T]) CompareItems(a, b T) int {
	return strings.Compare(c.value(a), c.value(b))
}

// NumberColumn renders and sorts by a numeric projection. The projection's
// ok result marks items with no value under this column; they render empty
// and order last. Numeric columns default to descending, the usual blotter
// convention of largest first.
type NumberColumn[T any] struct {
	key      string
	title    string
	decimals int
	value    func(T) (float64, bool)
}

// NewNumberColumn creates a numeric column rendering with the given number
// of decimal places.
func NewNumberColumn[T any](key, title string, decimals int, value func(T) (float64, bool)) *NumberColumn[T] {
	return &NumberColumn[T]{key: key, title: title, decimals: decimals, value: value}
}

func (c *NumberColumn[T]) Key() string   { return c.key }
func (c *NumberColumn[T]) Title() string { return c.title }

func (c *NumberColumn[T]) CellText(item T) string {
	v, ok := c.value(item)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', c.decimals, 64)
}

// SortKey implements griddus.SortColumn.
func (c *NumberColumn[T]) SortKey() string { return c.key }

// DefaultDirection implements griddus.SortColumn.
func (c *NumberColumn[T]) DefaultDirection() griddus.SortDirection { return griddus.Descending }

// HasSortValue implements griddus.SortColumn.
func (c *NumberColumn[T]) HasSortValue(item T) bool {
	_, ok := c.value(item)
	return ok
}

// CompareItems implements griddus.SortColumn.
func (c *NumberColumn[T]) CompareItems(a, b T) int {
	av, _ := c.value(a)
	bv, _ := c.value(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}
