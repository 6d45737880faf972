package protocol

import (
	"sync"

	"github.com/drewnoakes/biggus-griddus/grid"
)

// RowOpBatcher accumulates row operations between flushes. Repeated updates
// to the same row collapse into the latest one, and a reset discards
// everything queued before it, so a slow connection receives the state it
// needs rather than the full history.
type RowOpBatcher struct {
	pending []RowOpData
	updates map[string]int // row id -> index of its pending updateRow
	mu      sync.Mutex
}

// NewRowOpBatcher creates an empty batcher.
func NewRowOpBatcher() *RowOpBatcher {
	return &RowOpBatcher{
		updates: make(map[string]int),
	}
}

// Queue adds a row operation to the pending batch.
func (b *RowOpBatcher) Queue(op grid.RowOp) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := EncodeRowOp(op)

	switch op.Type {
	case grid.RowUpdate:
		// Collapse into a pending update for the same row. Only valid
		// while no structural op has been queued since; structural ops
		// clear the map below.
		if at, ok := b.updates[op.Row.ID]; ok {
			b.pending[at] = data
			return
		}
		b.pending = append(b.pending, data)
		b.updates[op.Row.ID] = len(b.pending) - 1

	case grid.RowsReset:
		// Everything queued before a reset is dead weight.
		b.pending = b.pending[:0]
		clear(b.updates)
		b.pending = append(b.pending, data)

	case grid.RowScroll:
		// Scroll is a trailer; successive scrolls supersede each other.
		if n := len(b.pending); n > 0 && b.pending[n-1].Op == data.Op {
			b.pending[n-1] = data
			return
		}
		b.pending = append(b.pending, data)

	default:
		// Structural ops shift row positions, so earlier updates can no
		// longer be collapsed into safely.
		clear(b.updates)
		b.pending = append(b.pending, data)
	}
}

// IsEmpty returns true if no operations are pending.
func (b *RowOpBatcher) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending) == 0
}

// Flush returns the pending batch as a rows message and clears it. Returns
// nil if nothing is pending.
func (b *RowOpBatcher) Flush() *Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}

	ops := b.pending
	b.pending = nil
	clear(b.updates)

	msg, _ := NewMessage(MsgRows, RowsMessage{Ops: ops})
	return msg
}

// FlushJSON returns the pending batch encoded as JSON, or nil if nothing is
// pending.
func (b *RowOpBatcher) FlushJSON() ([]byte, error) {
	msg := b.Flush()
	if msg == nil {
		return nil, nil
	}
	return msg.Encode()
}
