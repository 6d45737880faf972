package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/drewnoakes/biggus-griddus/protocol"
)

// Client connects to a grid server and keeps a Model synchronized with the
// server's rendered window.
type Client struct {
	conn    *websocket.Conn
	model   *Model
	columns []protocol.ColumnInfo
	connID  string

	// OnRows, if set, fires after each applied batch. OnError fires for
	// server-rejected requests. Both run on the read goroutine.
	OnRows  func(*Model)
	OnError func(code, description string)

	mu      sync.RWMutex
	writeMu sync.Mutex
	done    chan struct{}
}

// Dial connects to the grid server at url (a ws:// or wss:// endpoint) and
// waits for the server's hello.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing grid server: %w", err)
	}

	c := &Client{
		conn:  conn,
		model: NewModel(),
		done:  make(chan struct{}),
	}

	// The hello always arrives first.
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading hello: %w", err)
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil || msg.Type != protocol.MsgHello {
		conn.Close()
		return nil, fmt.Errorf("expected hello, got %v (%v)", msg, err)
	}
	var hello protocol.HelloMessage
	if err := json.Unmarshal(msg.Data, &hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("decoding hello: %w", err)
	}
	c.columns = hello.Columns
	c.connID = hello.Connection

	go c.readLoop()
	return c, nil
}

// Close disconnects from the server.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// Columns returns the column set announced by the server.
func (c *Client) Columns() []protocol.ColumnInfo {
	return c.columns
}

// ConnectionID returns the server-assigned connection identifier.
func (c *Client) ConnectionID() string {
	return c.connID
}

// Rows returns the current row model contents.
func (c *Client) Rows() []protocol.RowData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model.Rows()
}

// Scroll returns the current scroll chrome.
func (c *Client) Scroll() protocol.ScrollData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model.Scroll()
}

// SetSort requests sorting by the given column key. An empty key restores
// source order; repeating a key toggles direction.
func (c *Client) SetSort(key string) error {
	return c.send(protocol.MsgSetSort, protocol.SetSortMessage{Key: key})
}

// SetFilter installs a Lua filter expression; empty clears it.
func (c *Client) SetFilter(expr string) error {
	return c.send(protocol.MsgSetFilter, protocol.SetFilterMessage{Expr: expr})
}

// SetOffset scrolls the window.
func (c *Client) SetOffset(offset int) error {
	return c.send(protocol.MsgSetOffset, protocol.SetOffsetMessage{Offset: offset})
}

// SetSize resizes the window.
func (c *Client) SetSize(size int) error {
	return c.send(protocol.MsgSetSize, protocol.SetSizeMessage{Size: size})
}

// Refresh asks the server for a full snapshot.
func (c *Client) Refresh() error {
	return c.send(protocol.MsgRefresh, nil)
}

func (c *Client) send(msgType protocol.MessageType, payload interface{}) error {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.conn.Close()
			}
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}

		switch msg.Type {
		case protocol.MsgRows:
			var rows protocol.RowsMessage
			if err := json.Unmarshal(msg.Data, &rows); err != nil {
				continue
			}
			c.applyBatch(rows)

		case protocol.MsgError:
			var e protocol.ErrorMessage
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				continue
			}
			if c.OnError != nil {
				c.OnError(e.Code, e.Description)
			}
		}
	}
}

func (c *Client) applyBatch(rows protocol.RowsMessage) {
	c.mu.Lock()
	var failed bool
	for _, op := range rows.Ops {
		if err := c.model.Apply(op); err != nil {
			failed = true
			break
		}
	}
	c.mu.Unlock()

	if failed {
		// Model diverged; a snapshot rebuilds it.
		c.Refresh()
		return
	}

	if c.OnRows != nil {
		c.OnRows(c.model)
	}
}
