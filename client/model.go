// Package client is the Go consumer library: it maintains a local row
// model by applying the server's row operations in order, and exposes the
// control requests a grid front end needs.
package client

import (
	"fmt"

	"github.com/drewnoakes/biggus-griddus/protocol"
)

// Model is the consumer-side row state. Apply ops in arrival order; the
// model then tracks the server's rendered window exactly.
type Model struct {
	rows   []protocol.RowData
	scroll protocol.ScrollData
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{}
}

// Rows returns a copy of the current rows.
func (m *Model) Rows() []protocol.RowData {
	rows := make([]protocol.RowData, len(m.rows))
	copy(rows, m.rows)
	return rows
}

// Scroll returns the last seen scroll chrome.
func (m *Model) Scroll() protocol.ScrollData {
	return m.scroll
}

// Apply applies one row operation. An op whose indexes do not fit the
// current model is rejected; the caller should request a refresh.
func (m *Model) Apply(op protocol.RowOpData) error {
	switch op.Op {
	case "addRow":
		if op.Row == nil || op.Index == nil {
			return fmt.Errorf("addRow missing row or index")
		}
		at := *op.Index
		if at < 0 || at > len(m.rows) {
			return fmt.Errorf("addRow index %d outside 0..%d", at, len(m.rows))
		}
		m.rows = append(m.rows[:at], append([]protocol.RowData{*op.Row}, m.rows[at:]...)...)

	case "removeRow":
		if op.Index == nil {
			return fmt.Errorf("removeRow missing index")
		}
		at := *op.Index
		if at < 0 || at >= len(m.rows) {
			return fmt.Errorf("removeRow index %d outside 0..%d", at, len(m.rows)-1)
		}
		m.rows = append(m.rows[:at], m.rows[at+1:]...)

	case "updateRow":
		if op.Row == nil || op.Index == nil {
			return fmt.Errorf("updateRow missing row or index")
		}
		at := *op.Index
		if at < 0 || at >= len(m.rows) {
			return fmt.Errorf("updateRow index %d outside 0..%d", at, len(m.rows)-1)
		}
		m.rows[at] = *op.Row

	case "moveRow":
		if op.OldIndex == nil || op.NewIndex == nil {
			return fmt.Errorf("moveRow missing endpoints")
		}
		from, to := *op.OldIndex, *op.NewIndex
		if from < 0 || from >= len(m.rows) || to < 0 || to >= len(m.rows) {
			return fmt.Errorf("moveRow %d->%d outside 0..%d", from, to, len(m.rows)-1)
		}
		row := m.rows[from]
		m.rows = append(m.rows[:from], m.rows[from+1:]...)
		m.rows = append(m.rows[:to], append([]protocol.RowData{row}, m.rows[to:]...)...)

	case "replaceRow":
		if op.Row == nil || op.Index == nil || op.OldIndex == nil {
			return fmt.Errorf("replaceRow missing fields")
		}
		from, to := *op.OldIndex, *op.Index
		if from < 0 || from >= len(m.rows) {
			return fmt.Errorf("replaceRow old index %d outside 0..%d", from, len(m.rows)-1)
		}
		m.rows = append(m.rows[:from], m.rows[from+1:]...)
		if to < 0 || to > len(m.rows) {
			return fmt.Errorf("replaceRow index %d outside 0..%d", to, len(m.rows))
		}
		m.rows = append(m.rows[:to], append([]protocol.RowData{*op.Row}, m.rows[to:]...)...)

	case "resetRows":
		m.rows = append(m.rows[:0:0], op.Rows...)
		if op.Scroll != nil {
			m.scroll = *op.Scroll
		}

	case "scroll":
		if op.Scroll == nil {
			return fmt.Errorf("scroll missing chrome")
		}
		m.scroll = *op.Scroll

	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
	return nil
}
