// Package feed generates the demo trade blotter: a synthetic stream of
// trades over a configurable instrument universe, mutated on a timer.
package feed

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	griddus "github.com/drewnoakes/biggus-griddus"
	"github.com/drewnoakes/biggus-griddus/grid"
)

// Trade is one row of the blotter. Mutators signal the owning collection
// through the embedded change signal.
type Trade struct {
	griddus.ChangeSignal

	ID        string
	Symbol    string
	Side      string // "buy" or "sell"
	Price     float64
	Quantity  int
	UpdatedAt time.Time
}

// SetPrice updates the trade's price and timestamp.
func (t *Trade) SetPrice(price float64, at time.Time) {
	t.Price = price
	t.UpdatedAt = at
	t.MarkChanged()
}

// SetQuantity updates the trade's quantity and timestamp.
func (t *Trade) SetQuantity(quantity int, at time.Time) {
	t.Quantity = quantity
	t.UpdatedAt = at
	t.MarkChanged()
}

// ToLua projects the trade into a table for filter expressions, exposed as
// the "trade" variable.
func (t *Trade) ToLua(L *lua.LState) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("id", lua.LString(t.ID))
	tbl.RawSetString("symbol", lua.LString(t.Symbol))
	tbl.RawSetString("side", lua.LString(t.Side))
	tbl.RawSetString("price", lua.LNumber(t.Price))
	tbl.RawSetString("quantity", lua.LNumber(t.Quantity))
	tbl.RawSetString("notional", lua.LNumber(t.Price*float64(t.Quantity)))
	return tbl
}

// TradeID is the identifier selector for trade collections.
func TradeID(t *Trade) string {
	return t.ID
}

// Columns returns the blotter's column set.
func Columns() []grid.Column[*Trade] {
	return []grid.Column[*Trade]{
		grid.NewTextColumn("symbol", "Symbol", func(t *Trade) string { return t.Symbol }),
		grid.NewTextColumn("side", "Side", func(t *Trade) string { return t.Side }),
		grid.NewNumberColumn("price", "Price", 2, func(t *Trade) (float64, bool) {
			return t.Price, t.Price != 0
		}),
		grid.NewNumberColumn("quantity", "Qty", 0, func(t *Trade) (float64, bool) {
			return float64(t.Quantity), t.Quantity != 0
		}),
		grid.NewNumberColumn("notional", "Notional", 2, func(t *Trade) (float64, bool) {
			return t.Price * float64(t.Quantity), t.Price != 0 && t.Quantity != 0
		}),
		grid.NewTextColumn("updated", "Updated", func(t *Trade) string {
			if t.UpdatedAt.IsZero() {
				return ""
			}
			return t.UpdatedAt.Format("15:04:05")
		}),
	}
}
