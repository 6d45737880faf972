package grid

import (
	griddus "github.com/drewnoakes/biggus-griddus"
)

// RowOpType tags a RowOp with the kind of row mutation a renderer must
// apply.
type RowOpType int

const (
	RowAdd RowOpType = iota
	RowRemove
	RowUpdate
	RowMove
	RowReplace
	RowsReset
	RowScroll
)

// String returns the op type's name, which is also its wire name.
func (t RowOpType) String() string {
	switch t {
	case RowAdd:
		return "addRow"
	case RowRemove:
		return "removeRow"
	case RowUpdate:
		return "updateRow"
	case RowMove:
		return "moveRow"
	case RowReplace:
		return "replaceRow"
	case RowsReset:
		return "resetRows"
	case RowScroll:
		return "scroll"
	}
	return "unknown"
}

// Row is one rendered row: the item's identifier plus one cell per column.
type Row struct {
	ID    string
	Cells []string
}

// ScrollState is the scroll-position chrome of a windowed source.
type ScrollState struct {
	Offset     int
	WindowSize int
	Total      int
}

// RowOp is one incremental mutation of the rendered table.
type RowOp struct {
	Type RowOpType

	// Row is the row being added, updated, or (for a replace) entering.
	// For a remove it is the row that left.
	Row Row

	// Index is where the op applies. For RowReplace it is the entering
	// index; OldID and OldIndex describe the vacated row. For RowMove,
	// OldIndex and NewIndex are the endpoints.
	Index    int
	OldID    string
	OldIndex int
	NewIndex int

	// Rows is the full row model, carried by RowsReset so a consumer can
	// rebuild without a second round trip.
	Rows []Row

	// Scroll accompanies RowsReset and RowScroll.
	Scroll ScrollState
}

// windowed is the optional capability of a terminal source that can report
// scroll chrome.
type windowed interface {
	Offset() int
	Size() int
	Total() int
}

// Table maintains a rendered row model over a terminal view and republishes
// its change records as row operations. It keeps the identifier-to-row side
// mapping a consumer needs to apply identifier-carrying records in O(1).
type Table[T any] struct {
	source  griddus.Source[T]
	columns []Column[T]
	rows    []Row
	index   map[string]int // item id -> row index
	ops     griddus.Event[RowOp]
	cancel  func()
}

// NewTable creates a table over source, seeded from its current contents.
func NewTable[T any](source griddus.Source[T], columns ...Column[T]) *Table[T] {
	t := &Table[T]{
		source:  source,
		columns: columns,
	}
	t.rebuild()
	t.cancel = source.Changes().Subscribe(t.onChange)
	return t
}

// Close detaches the table from its source.
func (t *Table[T]) Close() {
	t.cancel()
}

// Ops is the stream of row operations.
func (t *Table[T]) Ops() *griddus.Event[RowOp] {
	return &t.ops
}

// Columns returns the column definitions.
func (t *Table[T]) Columns() []Column[T] {
	return t.columns
}

// Rows returns a copy of the current row model.
func (t *Table[T]) Rows() []Row {
	rows := make([]Row, len(t.rows))
	copy(rows, t.rows)
	return rows
}

// Snapshot returns a RowsReset op carrying the full current model, for
// priming a consumer that just attached.
func (t *Table[T]) Snapshot() RowOp {
	return RowOp{Type: RowsReset, Rows: t.Rows(), Scroll: t.scrollState()}
}

// SortColumn returns the column registered under key as a sort capability,
// or nil if there is no such column or it is not sortable.
func (t *Table[T]) SortColumn(key string) griddus.SortColumn[T] {
	for _, col := range t.columns {
		if col.Key() != key {
			continue
		}
		if sc, ok := col.(griddus.SortColumn[T]); ok {
			return sc
		}
		return nil
	}
	return nil
}

func (t *Table[T]) renderRow(item T) Row {
	cells := make([]string, len(t.columns))
	for i, col := range t.columns {
		cells[i] = col.CellText(item)
	}
	return Row{ID: t.source.ID(item), Cells: cells}
}

func (t *Table[T]) rebuild() {
	items := t.source.Items()
	t.rows = make([]Row, len(items))
	t.index = make(map[string]int, len(items))
	for i, item := range items {
		t.rows[i] = t.renderRow(item)
		t.index[t.rows[i].ID] = i
	}
}

// reindex refreshes the side mapping for rows at or after from.
func (t *Table[T]) reindex(from int) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(t.rows); i++ {
		t.index[t.rows[i].ID] = i
	}
}

func (t *Table[T]) scrollState() ScrollState {
	if w, ok := t.source.(windowed); ok {
		return ScrollState{Offset: w.Offset(), WindowSize: w.Size(), Total: w.Total()}
	}
	return ScrollState{Total: t.source.Len()}
}

func (t *Table[T]) onChange(ch griddus.Change[T]) {
	switch ch.Type {
	case griddus.ChangeInsert:
		row := t.renderRow(ch.Item)
		at := ch.Index
		if at > len(t.rows) {
			at = len(t.rows)
		}
		t.rows = append(t.rows[:at], append([]Row{row}, t.rows[at:]...)...)
		t.reindex(at)
		t.ops.Raise(RowOp{Type: RowAdd, Row: row, Index: at, OldIndex: -1, NewIndex: -1})

	case griddus.ChangeRemove:
		at, ok := t.index[ch.ID]
		if !ok {
			return
		}
		row := t.rows[at]
		t.rows = append(t.rows[:at], t.rows[at+1:]...)
		delete(t.index, ch.ID)
		t.reindex(at)
		t.ops.Raise(RowOp{Type: RowRemove, Row: row, Index: at, OldIndex: -1, NewIndex: -1})

	case griddus.ChangeUpdate:
		at, ok := t.index[ch.ID]
		if !ok {
			return
		}
		row := t.renderRow(ch.Item)
		t.rows[at] = row
		t.ops.Raise(RowOp{Type: RowUpdate, Row: row, Index: at, OldIndex: -1, NewIndex: -1})

	case griddus.ChangeMove:
		from, ok := t.index[ch.ID]
		if !ok {
			return
		}
		to := ch.NewIndex
		if to >= len(t.rows) {
			to = len(t.rows) - 1
		}
		row := t.rows[from]
		t.rows = append(t.rows[:from], t.rows[from+1:]...)
		t.rows = append(t.rows[:to], append([]Row{row}, t.rows[to:]...)...)
		if from < to {
			t.reindex(from)
		} else {
			t.reindex(to)
		}
		t.ops.Raise(RowOp{Type: RowMove, Row: row, Index: -1, OldIndex: from, NewIndex: to})

	case griddus.ChangeReplace:
		from, ok := t.index[ch.OldID]
		if !ok {
			return
		}
		t.rows = append(t.rows[:from], t.rows[from+1:]...)
		delete(t.index, ch.OldID)
		row := t.renderRow(ch.Item)
		at := ch.Index
		if at > len(t.rows) {
			at = len(t.rows)
		}
		t.rows = append(t.rows[:at], append([]Row{row}, t.rows[at:]...)...)
		if from < at {
			t.reindex(from)
		} else {
			t.reindex(at)
		}
		t.ops.Raise(RowOp{Type: RowReplace, Row: row, Index: at, OldID: ch.OldID, OldIndex: from, NewIndex: -1})

	case griddus.ChangeReset:
		t.rebuild()
		t.ops.Raise(RowOp{Type: RowsReset, Rows: t.Rows(), Scroll: t.scrollState()})

	case griddus.ChangeScroll:
		t.ops.Raise(RowOp{Type: RowScroll, Scroll: t.scrollState()})
	}
}
