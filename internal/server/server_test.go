package server

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/drewnoakes/biggus-griddus/internal/config"
	"github.com/drewnoakes/biggus-griddus/internal/feed"
	"github.com/drewnoakes/biggus-griddus/protocol"
)

func newTestServer(t *testing.T, tradeCount int) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Window.Size = 5

	s := New(cfg)
	trades := make([]*feed.Trade, tradeCount)
	for i := range trades {
		trades[i] = &feed.Trade{
			ID:       fmt.Sprintf("t%d", i+1),
			Symbol:   "ACME",
			Side:     "buy",
			Price:    float64(10 * (i + 1)),
			Quantity: 100,
		}
	}
	if err := s.trades.AddRange(trades); err != nil {
		t.Fatalf("seeding trades: %v", err)
	}
	return s
}

func newTestClient() *client {
	return &client{
		id:      "test-conn",
		send:    make(chan []byte, sendBuffer),
		batcher: protocol.NewRowOpBatcher(),
	}
}

// recvMessage pops the next queued outgoing message.
func recvMessage(t *testing.T, c *client) *protocol.Message {
	t.Helper()
	select {
	case data := <-c.send:
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			t.Fatalf("parsing outgoing message: %v", err)
		}
		return msg
	default:
		t.Fatal("no outgoing message queued")
		return nil
	}
}

func recvRows(t *testing.T, c *client) protocol.RowsMessage {
	t.Helper()
	msg := recvMessage(t, c)
	if msg.Type != protocol.MsgRows {
		t.Fatalf("expected rows message, got %s", msg.Type)
	}
	var rows protocol.RowsMessage
	if err := json.Unmarshal(msg.Data, &rows); err != nil {
		t.Fatalf("decoding rows payload: %v", err)
	}
	return rows
}

func TestAttachSendsHelloAndSnapshot(t *testing.T) {
	s := newTestServer(t, 8)
	c := newTestClient()

	s.attach(c)
	s.flush(c)

	hello := recvMessage(t, c)
	if hello.Type != protocol.MsgHello {
		t.Fatalf("expected hello first, got %s", hello.Type)
	}
	var h protocol.HelloMessage
	if err := json.Unmarshal(hello.Data, &h); err != nil {
		t.Fatalf("decoding hello: %v", err)
	}
	if h.Connection != "test-conn" || len(h.Columns) != 6 {
		t.Errorf("unexpected hello: %+v", h)
	}

	rows := recvRows(t, c)
	if len(rows.Ops) != 1 || rows.Ops[0].Op != "resetRows" {
		t.Fatalf("expected a single resetRows op, got %+v", rows.Ops)
	}
	if len(rows.Ops[0].Rows) != 5 {
		t.Errorf("expected window-sized snapshot of 5 rows, got %d", len(rows.Ops[0].Rows))
	}
	if rows.Ops[0].Scroll.Total != 8 {
		t.Errorf("expected total 8, got %d", rows.Ops[0].Scroll.Total)
	}
}

func TestSetSortReordersRows(t *testing.T) {
	s := newTestServer(t, 3)
	c := newTestClient()
	s.attach(c)
	s.flush(c)
	recvMessage(t, c) // hello
	recvRows(t, c)    // snapshot

	msg, _ := protocol.NewMessage(protocol.MsgSetSort, protocol.SetSortMessage{Key: "price"})
	s.handleMessage(c, msg)
	s.flush(c)

	rows := recvRows(t, c)
	if rows.Ops[0].Op != "resetRows" {
		t.Fatalf("expected resetRows after sort, got %s", rows.Ops[0].Op)
	}
	// Price columns default to descending.
	got := make([]string, len(rows.Ops[0].Rows))
	for i, row := range rows.Ops[0].Rows {
		got[i] = row.ID
	}
	if strings.Join(got, ",") != "t3,t2,t1" {
		t.Errorf("expected t3,t2,t1 descending by price, got %v", got)
	}
}

func TestSetSortUnknownColumn(t *testing.T) {
	s := newTestServer(t, 1)
	c := newTestClient()
	s.attach(c)
	drain(c)

	msg, _ := protocol.NewMessage(protocol.MsgSetSort, protocol.SetSortMessage{Key: "nope"})
	s.handleMessage(c, msg)

	errMsg := recvMessage(t, c)
	if errMsg.Type != protocol.MsgError {
		t.Fatalf("expected error message, got %s", errMsg.Type)
	}
	var e protocol.ErrorMessage
	json.Unmarshal(errMsg.Data, &e)
	if e.Code != "bad-sort" {
		t.Errorf("expected code bad-sort, got %q", e.Code)
	}
}

func TestSetFilterNarrowsRows(t *testing.T) {
	s := newTestServer(t, 4)
	c := newTestClient()
	s.attach(c)
	s.flush(c)
	drain(c)

	msg, _ := protocol.NewMessage(protocol.MsgSetFilter, protocol.SetFilterMessage{Expr: "trade.price >= 30"})
	s.handleMessage(c, msg)
	s.flush(c)

	rows := recvRows(t, c)
	if rows.Ops[0].Op != "resetRows" {
		t.Fatalf("expected resetRows after filter, got %s", rows.Ops[0].Op)
	}
	if got := len(rows.Ops[0].Rows); got != 2 {
		t.Errorf("expected 2 rows passing, got %d", got)
	}
	if rows.Ops[0].Scroll.Total != 2 {
		t.Errorf("expected filtered total 2, got %d", rows.Ops[0].Scroll.Total)
	}
}

func TestSetFilterBadExpression(t *testing.T) {
	s := newTestServer(t, 1)
	c := newTestClient()
	s.attach(c)
	drain(c)

	msg, _ := protocol.NewMessage(protocol.MsgSetFilter, protocol.SetFilterMessage{Expr: "trade.price >"})
	s.handleMessage(c, msg)

	errMsg := recvMessage(t, c)
	var e protocol.ErrorMessage
	json.Unmarshal(errMsg.Data, &e)
	if e.Code != "bad-filter" {
		t.Errorf("expected code bad-filter, got %q", e.Code)
	}
}

func TestSetFilterDisabled(t *testing.T) {
	s := newTestServer(t, 1)
	s.config.Filter.Enabled = false
	c := newTestClient()
	s.attach(c)
	drain(c)

	msg, _ := protocol.NewMessage(protocol.MsgSetFilter, protocol.SetFilterMessage{Expr: "true"})
	s.handleMessage(c, msg)

	errMsg := recvMessage(t, c)
	var e protocol.ErrorMessage
	json.Unmarshal(errMsg.Data, &e)
	if e.Code != "filter-disabled" {
		t.Errorf("expected code filter-disabled, got %q", e.Code)
	}
}

func TestSetOffsetRejectsNegative(t *testing.T) {
	s := newTestServer(t, 3)
	c := newTestClient()
	s.attach(c)
	drain(c)

	msg, _ := protocol.NewMessage(protocol.MsgSetOffset, protocol.SetOffsetMessage{Offset: -1})
	s.handleMessage(c, msg)

	errMsg := recvMessage(t, c)
	var e protocol.ErrorMessage
	json.Unmarshal(errMsg.Data, &e)
	if e.Code != "bad-offset" {
		t.Errorf("expected code bad-offset, got %q", e.Code)
	}
}

func TestCollectionChangesReachClient(t *testing.T) {
	s := newTestServer(t, 2)
	c := newTestClient()
	s.attach(c)
	s.flush(c)
	drain(c)

	if err := s.trades.Add(&feed.Trade{ID: "t9", Symbol: "GLBX", Side: "sell", Price: 5, Quantity: 100}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	s.flush(c)

	rows := recvRows(t, c)
	if len(rows.Ops) != 1 || rows.Ops[0].Op != "addRow" {
		t.Fatalf("expected a single addRow, got %+v", rows.Ops)
	}
	if rows.Ops[0].Row.ID != "t9" {
		t.Errorf("expected added row t9, got %q", rows.Ops[0].Row.ID)
	}
}

func TestDetachReleasesPipeline(t *testing.T) {
	s := newTestServer(t, 2)
	c := newTestClient()
	s.attach(c)

	if s.trades.Changes().ListenerCount() != 1 {
		t.Fatalf("expected 1 collection listener after attach, got %d", s.trades.Changes().ListenerCount())
	}

	s.detach(c)

	if len(s.clients) != 0 {
		t.Errorf("expected no clients after detach, got %d", len(s.clients))
	}
	if s.trades.Changes().ListenerCount() != 0 {
		t.Errorf("expected collection listeners released, got %d", s.trades.Changes().ListenerCount())
	}
	if _, open := <-c.send; open {
		// Hello may still be queued; drain until closed.
		for range c.send {
		}
	}

	// A message arriving after detach is ignored.
	msg, _ := protocol.NewMessage(protocol.MsgRefresh, nil)
	s.handleMessage(c, msg)
}

func drain(c *client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

// TestWebSocketRoundTrip drives the real endpoint over a live socket.
func TestWebSocketRoundTrip(t *testing.T) {
	s := newTestServer(t, 6)
	s.svc = NewChanSvc()
	defer s.svc.Close()

	httpSrv := httptest.NewServer(s.routes())
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	readTyped := func(want protocol.MessageType) *protocol.Message {
		t.Helper()
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if msg.Type != want {
			t.Fatalf("expected %s, got %s", want, msg.Type)
		}
		return msg
	}

	readTyped(protocol.MsgHello)

	msg := readTyped(protocol.MsgRows)
	var rows protocol.RowsMessage
	if err := json.Unmarshal(msg.Data, &rows); err != nil {
		t.Fatalf("decoding rows: %v", err)
	}
	if rows.Ops[0].Op != "resetRows" || len(rows.Ops[0].Rows) != 5 {
		t.Fatalf("unexpected snapshot: %+v", rows.Ops[0])
	}

	req, _ := protocol.NewMessage(protocol.MsgSetOffset, protocol.SetOffsetMessage{Offset: 1})
	data, _ := req.Encode()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	msg = readTyped(protocol.MsgRows)
	if err := json.Unmarshal(msg.Data, &rows); err != nil {
		t.Fatalf("decoding rows: %v", err)
	}
	last := rows.Ops[len(rows.Ops)-1]
	if last.Op != "scroll" || last.Scroll.Offset != 1 {
		t.Errorf("expected trailing scroll to offset 1, got %+v", last)
	}
}
