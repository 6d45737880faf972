// Package script compiles client-supplied Lua expressions into row
// predicates. Each filter owns a dedicated Lua state, so filters are cheap
// to discard and never share interpreter state between connections.
package script

import (
	"fmt"
	"log/slog"
	"regexp"

	lua "github.com/yuin/gopher-lua"
)

// Convertible is implemented by row items that can project themselves into a
// Lua table for filter evaluation.
type Convertible interface {
	ToLua(L *lua.LState) *lua.LTable
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Filter is a compiled Lua filter expression. Not safe for concurrent use;
// callers evaluate it from a single goroutine.
type Filter struct {
	state  *lua.LState
	fn     *lua.LFunction
	expr   string
	logged bool
}

// CompileFilter compiles expr into a predicate over items exposed as the
// Lua variable name. For example name "trade" with expr
// "trade.price > 10 and trade.side == 'buy'".
func CompileFilter(name, expr string) (*Filter, error) {
	if !identifierRe.MatchString(name) {
		return nil, fmt.Errorf("invalid item name %q", name)
	}
	if expr == "" {
		return nil, fmt.Errorf("empty filter expression")
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// Base library only; no io/os escape hatches for client expressions.
	lua.OpenBase(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	source := fmt.Sprintf("local %s = ...\nreturn %s", name, expr)
	fn, err := L.LoadString(source)
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("compiling filter: %w", err)
	}

	return &Filter{state: L, fn: fn, expr: expr}, nil
}

// Expr returns the source expression.
func (f *Filter) Expr() string {
	return f.expr
}

// Eval applies the filter to item. Evaluation errors fail closed: the item
// is excluded and the first error is logged.
func (f *Filter) Eval(item Convertible) bool {
	L := f.state
	top := L.GetTop()
	defer L.SetTop(top)

	L.Push(f.fn)
	L.Push(item.ToLua(L))
	if err := L.PCall(1, 1, nil); err != nil {
		if !f.logged {
			slog.Error("filter evaluation failed, excluding rows", "expr", f.expr, "err", err)
			f.logged = true
		}
		return false
	}

	return lua.LVAsBool(L.Get(-1))
}

// Close releases the filter's Lua state.
func (f *Filter) Close() {
	f.state.Close()
}

// Predicate adapts a filter to the func(T) bool shape a filtered view
// accepts. A nil filter yields a nil predicate, which passes everything.
func Predicate[T Convertible](f *Filter) func(T) bool {
	if f == nil {
		return nil
	}
	return func(item T) bool {
		return f.Eval(item)
	}
}
