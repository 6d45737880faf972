// Package protocol implements the websocket wire format: a typed message
// envelope carrying client control requests one way and row operations the
// other.
package protocol

import (
	"encoding/json"

	"github.com/drewnoakes/biggus-griddus/grid"
)

// MessageType identifies the type of protocol message.
type MessageType string

const (
	// Client -> server control messages
	MsgSetSort   MessageType = "setSort"
	MsgSetFilter MessageType = "setFilter"
	MsgSetOffset MessageType = "setOffset"
	MsgSetSize   MessageType = "setSize"
	MsgRefresh   MessageType = "refresh"

	// Server -> client messages
	MsgHello MessageType = "hello"
	MsgRows  MessageType = "rows"
	MsgError MessageType = "error"
)

// Message is the base protocol message structure.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SetSortMessage asks the server to sort by the named column. Resending the
// same key toggles direction; an empty key restores source ordering.
type SetSortMessage struct {
	Key string `json:"key"`
}

// SetFilterMessage installs a filter expression over the row items. An empty
// expression clears the filter.
type SetFilterMessage struct {
	Expr string `json:"expr"`
}

// SetOffsetMessage scrolls the window to the given offset.
type SetOffsetMessage struct {
	Offset int `json:"offset"`
}

// SetSizeMessage resizes the window.
type SetSizeMessage struct {
	Size int `json:"size"`
}

// ColumnInfo describes one column to a freshly connected client.
type ColumnInfo struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Sortable bool   `json:"sortable"`
}

// HelloMessage is the first message a client receives.
type HelloMessage struct {
	Connection string       `json:"connection"`
	Columns    []ColumnInfo `json:"columns"`
}

// RowData is one rendered row on the wire.
type RowData struct {
	ID    string   `json:"id"`
	Cells []string `json:"cells"`
}

// ScrollData is the scroll-position chrome on the wire.
type ScrollData struct {
	Offset int `json:"offset"`
	Size   int `json:"size"`
	Total  int `json:"total"`
}

// RowOpData is one row operation on the wire. Fields beyond Op are
// populated per op kind; indexes that do not apply are omitted.
type RowOpData struct {
	Op       string      `json:"op"`
	Row      *RowData    `json:"row,omitempty"`
	Index    *int        `json:"index,omitempty"`
	OldID    string      `json:"oldId,omitempty"`
	OldIndex *int        `json:"oldIndex,omitempty"`
	NewIndex *int        `json:"newIndex,omitempty"`
	Rows     []RowData   `json:"rows,omitempty"`
	Scroll   *ScrollData `json:"scroll,omitempty"`
}

// RowsMessage carries a batch of row operations, in application order.
type RowsMessage struct {
	Ops []RowOpData `json:"ops"`
}

// ErrorMessage reports a rejected request.
type ErrorMessage struct {
	Code        string `json:"code"`        // One-word error code (e.g. "bad-filter", "bad-offset")
	Description string `json:"description"` // Human-readable error description
}

// EncodeRowOp converts a row operation to its wire form.
func EncodeRowOp(op grid.RowOp) RowOpData {
	data := RowOpData{Op: op.Type.String()}

	switch op.Type {
	case grid.RowAdd, grid.RowUpdate:
		data.Row = encodeRow(op.Row)
		data.Index = intPtr(op.Index)
	case grid.RowRemove:
		data.Index = intPtr(op.Index)
	case grid.RowMove:
		data.OldIndex = intPtr(op.OldIndex)
		data.NewIndex = intPtr(op.NewIndex)
	case grid.RowReplace:
		data.Row = encodeRow(op.Row)
		data.Index = intPtr(op.Index)
		data.OldID = op.OldID
		data.OldIndex = intPtr(op.OldIndex)
	case grid.RowsReset:
		data.Rows = make([]RowData, len(op.Rows))
		for i, row := range op.Rows {
			data.Rows[i] = RowData{ID: row.ID, Cells: row.Cells}
		}
		data.Scroll = encodeScroll(op.Scroll)
	case grid.RowScroll:
		data.Scroll = encodeScroll(op.Scroll)
	}

	return data
}

func encodeRow(row grid.Row) *RowData {
	return &RowData{ID: row.ID, Cells: row.Cells}
}

func encodeScroll(s grid.ScrollState) *ScrollData {
	return &ScrollData{Offset: s.Offset, Size: s.WindowSize, Total: s.Total}
}

func intPtr(v int) *int {
	return &v
}

// ParseMessage parses a raw JSON message into a typed envelope.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// NewMessage creates a new message with the given type and payload.
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	return &Message{
		Type: msgType,
		Data: raw,
	}, nil
}

// Encode serializes a message to JSON.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
