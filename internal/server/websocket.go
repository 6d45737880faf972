// Package server hosts the demo blotter: one shared trade collection, and a
// per-connection filter, sort, and window chain feeding row operations over
// a websocket.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	griddus "github.com/drewnoakes/biggus-griddus"
	"github.com/drewnoakes/biggus-griddus/grid"
	"github.com/drewnoakes/biggus-griddus/internal/feed"
	"github.com/drewnoakes/biggus-griddus/protocol"
	"github.com/drewnoakes/biggus-griddus/internal/script"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Demo server; no origin policy
	},
}

// sendBuffer is the per-connection outgoing queue depth. A consumer that
// falls this far behind gets dropped rather than stalling the pipeline.
const sendBuffer = 64

// client is one websocket connection and its private view chain over the
// shared trade collection. All fields except conn and send are owned by the
// service goroutine.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	filtered *griddus.FilteredView[*feed.Trade]
	sorted   *griddus.SortedView[*feed.Trade]
	window   *griddus.WindowView[*feed.Trade]
	table    *grid.Table[*feed.Trade]
	filter   *script.Filter
	batcher  *protocol.RowOpBatcher
	unsub    func()
}

// HandleWebSocket upgrades the request and attaches a view chain for the
// connection.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.config.Log(0, "WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		batcher: protocol.NewRowOpBatcher(),
	}

	s.config.Log(1, "WebSocket connected: conn=%s remote=%s", c.id, r.RemoteAddr)

	go c.writePump()

	s.Do(func() { s.attach(c) })
	go s.readPump(c)
}

// attach builds the connection's view chain. Runs on the service goroutine.
func (s *Server) attach(c *client) {
	c.filtered = griddus.NewFilteredView[*feed.Trade](s.trades, nil)
	c.sorted = griddus.NewSortedView[*feed.Trade](c.filtered)

	window, err := griddus.NewWindowView[*feed.Trade](c.sorted, s.config.Window.Size)
	if err != nil {
		s.config.Log(0, "conn=%s window setup failed: %v", c.id, err)
		c.conn.Close()
		return
	}
	c.window = window

	c.table = grid.NewTable[*feed.Trade](c.window, feed.Columns()...)
	c.unsub = c.table.Ops().Subscribe(func(op grid.RowOp) {
		c.batcher.Queue(op)
	})

	s.clients[c.id] = c

	c.sendHello()
	c.batcher.Queue(c.table.Snapshot())
}

// detach tears the chain down in pipeline order. Runs on the service
// goroutine.
func (s *Server) detach(c *client) {
	if _, ok := s.clients[c.id]; !ok {
		return
	}
	delete(s.clients, c.id)

	c.unsub()
	c.table.Close()
	c.window.Close()
	c.sorted.Close()
	c.filtered.Close()
	if c.filter != nil {
		c.filter.Close()
		c.filter = nil
	}
	close(c.send)
}

// readPump reads control messages until the connection drops.
func (s *Server) readPump(c *client) {
	defer func() {
		s.config.Log(1, "WebSocket disconnected: conn=%s", c.id)
		s.Do(func() { s.detach(c) })
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.config.Log(0, "WebSocket error: conn=%s %v", c.id, err)
			}
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			s.config.Log(1, "conn=%s unparseable message: %v", c.id, err)
			continue
		}

		s.config.Log(2, "[IN] %s: from=%s", msg.Type, c.id)
		s.Do(func() { s.handleMessage(c, msg) })
	}
}

// handleMessage dispatches one control message. Runs on the service
// goroutine.
func (s *Server) handleMessage(c *client, msg *protocol.Message) {
	if _, ok := s.clients[c.id]; !ok {
		return
	}

	switch msg.Type {
	case protocol.MsgSetSort:
		var req protocol.SetSortMessage
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError("bad-request", err.Error())
			return
		}
		s.handleSetSort(c, req.Key)

	case protocol.MsgSetFilter:
		var req protocol.SetFilterMessage
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError("bad-request", err.Error())
			return
		}
		s.handleSetFilter(c, req.Expr)

	case protocol.MsgSetOffset:
		var req protocol.SetOffsetMessage
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError("bad-request", err.Error())
			return
		}
		if err := c.window.SetOffset(req.Offset); err != nil {
			c.sendError("bad-offset", err.Error())
		}

	case protocol.MsgSetSize:
		var req protocol.SetSizeMessage
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError("bad-request", err.Error())
			return
		}
		if err := c.window.SetSize(req.Size); err != nil {
			c.sendError("bad-size", err.Error())
		}

	case protocol.MsgRefresh:
		c.batcher.Queue(c.table.Snapshot())

	default:
		c.sendError("bad-request", "unknown message type "+string(msg.Type))
	}
}

func (s *Server) handleSetSort(c *client, key string) {
	if key == "" {
		c.sorted.SetSortColumn(nil)
		return
	}
	col := c.table.SortColumn(key)
	if col == nil {
		c.sendError("bad-sort", "no sortable column "+key)
		return
	}
	c.sorted.SetSortColumn(col)
}

func (s *Server) handleSetFilter(c *client, expr string) {
	if !s.config.Filter.Enabled {
		c.sendError("filter-disabled", "filter expressions are disabled")
		return
	}

	if expr == "" {
		c.filtered.SetPredicate(nil)
		if c.filter != nil {
			c.filter.Close()
			c.filter = nil
		}
		return
	}

	filter, err := script.CompileFilter("trade", expr)
	if err != nil {
		c.sendError("bad-filter", err.Error())
		return
	}

	c.filtered.SetPredicate(script.Predicate[*feed.Trade](filter))
	if c.filter != nil {
		c.filter.Close()
	}
	c.filter = filter
	s.config.Log(2, "conn=%s filter: %s", c.id, expr)
}

// flush drains the client's batcher onto its send queue. Runs on the
// service goroutine.
func (s *Server) flush(c *client) {
	data, err := c.batcher.FlushJSON()
	if err != nil {
		s.config.Log(0, "conn=%s encode failed: %v", c.id, err)
		return
	}
	if data == nil {
		return
	}
	c.trySend(s, data)
}

// flushAll drains every client after a batch of work. Runs on the service
// goroutine.
func (s *Server) flushAll() {
	for _, c := range s.clients {
		s.flush(c)
	}
}

func (c *client) trySend(s *Server, data []byte) {
	select {
	case c.send <- data:
	default:
		// Slow consumer: closing the socket lets readPump tear the
		// connection down through the usual path.
		s.config.Log(1, "conn=%s send queue full, dropping connection", c.id)
		c.conn.Close()
	}
}

func (c *client) sendHello() {
	cols := feed.Columns()
	info := make([]protocol.ColumnInfo, len(cols))
	for i, col := range cols {
		info[i] = protocol.ColumnInfo{
			Key:      col.Key(),
			Title:    col.Title(),
			Sortable: true,
		}
	}

	msg, err := protocol.NewMessage(protocol.MsgHello, protocol.HelloMessage{
		Connection: c.id,
		Columns:    info,
	})
	if err != nil {
		return
	}
	if data, err := msg.Encode(); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (c *client) sendError(code, description string) {
	msg, err := protocol.NewMessage(protocol.MsgError, protocol.ErrorMessage{
		Code:        code,
		Description: description,
	})
	if err != nil {
		return
	}
	if data, err := msg.Encode(); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}
}

// writePump writes queued messages until the send channel closes.
func (c *client) writePump() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
