package feed

import (
	"fmt"
	"math/rand"
	"time"

	griddus "github.com/drewnoakes/biggus-griddus"
	"github.com/drewnoakes/biggus-griddus/internal/config"
)

// Scheduler serializes work onto the goroutine that owns the collection.
type Scheduler interface {
	Do(fn func())
}

// Feeder mutates a trade collection on a timer: mostly price updates, a
// steady trickle of new trades, and retirement of old ones once the blotter
// exceeds its configured size. All mutations run through the scheduler, so
// the feeder never touches the collection concurrently with connections.
type Feeder struct {
	config  *config.Config
	trades  *griddus.Collection[*Trade]
	sched   Scheduler
	rng     *rand.Rand
	symbols []string
	prices  map[string]float64 // per-symbol random walk state
	nextID  int
	done    chan struct{}
}

// NewFeeder creates a feeder over trades using the given instrument
// universe.
func NewFeeder(cfg *config.Config, trades *griddus.Collection[*Trade], sched Scheduler, symbols []string) *Feeder {
	return &Feeder{
		config:  cfg,
		trades:  trades,
		sched:   sched,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		symbols: symbols,
		prices:  make(map[string]float64),
		done:    make(chan struct{}),
	}
}

// Start seeds the blotter and begins the mutation loop.
func (f *Feeder) Start() {
	f.sched.Do(func() {
		seed := f.config.Feed.MaxTrades / 4
		if seed < 1 {
			seed = 1
		}
		trades := make([]*Trade, seed)
		for i := range trades {
			trades[i] = f.makeTrade()
		}
		if err := f.trades.AddRange(trades); err != nil {
			f.config.Log(1, "Feeder: seeding failed: %v", err)
		}
		f.config.Log(1, "Feeder: seeded %d trades across %d symbols", seed, len(f.symbols))
	})

	go f.run()
}

// Stop halts the mutation loop.
func (f *Feeder) Stop() {
	close(f.done)
}

// SetSymbols swaps the instrument universe. Existing trades keep their
// symbols; new trades draw from the new universe.
func (f *Feeder) SetSymbols(symbols []string) {
	f.sched.Do(func() {
		f.symbols = symbols
		f.config.Log(1, "Feeder: instrument universe now %d symbols", len(symbols))
	})
}

func (f *Feeder) run() {
	ticker := time.NewTicker(f.config.Feed.Interval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.sched.Do(f.tick)
		}
	}
}

// tick applies one mutation. Runs on the scheduler goroutine.
func (f *Feeder) tick() {
	n := f.trades.Len()
	p := f.rng.Float64()

	switch {
	case n == 0 || p < 0.25:
		trade := f.makeTrade()
		if err := f.trades.Add(trade); err != nil {
			f.config.Log(1, "Feeder: add failed: %v", err)
			return
		}
		f.config.Log(4, "Feeder: added %s %s %s", trade.ID, trade.Side, trade.Symbol)
		f.retireExcess()

	case p < 0.92:
		items := f.trades.Items()
		trade := items[f.rng.Intn(len(items))]
		trade.SetPrice(f.walkPrice(trade.Symbol), time.Now())
		f.config.Log(4, "Feeder: repriced %s to %.2f", trade.ID, trade.Price)

	default:
		if removed, err := f.trades.RemoveAt(f.rng.Intn(n)); err == nil {
			f.config.Log(4, "Feeder: removed %s", removed.ID)
		}
	}
}

// retireExcess trims the oldest trades once the blotter exceeds its cap.
func (f *Feeder) retireExcess() {
	for f.trades.Len() > f.config.Feed.MaxTrades {
		if _, err := f.trades.RemoveAt(0); err != nil {
			return
		}
	}
}

func (f *Feeder) makeTrade() *Trade {
	f.nextID++
	symbol := f.symbols[f.rng.Intn(len(f.symbols))]
	side := "buy"
	if f.rng.Intn(2) == 1 {
		side = "sell"
	}
	return &Trade{
		ID:        fmt.Sprintf("t%d", f.nextID),
		Symbol:    symbol,
		Side:      side,
		Price:     f.walkPrice(symbol),
		Quantity:  100 * (1 + f.rng.Intn(50)),
		UpdatedAt: time.Now(),
	}
}

// walkPrice advances the symbol's random walk and returns the new price.
func (f *Feeder) walkPrice(symbol string) float64 {
	price, ok := f.prices[symbol]
	if !ok {
		price = 5 + f.rng.Float64()*495
	}
	price *= 1 + (f.rng.Float64()-0.5)*0.02
	if price < 0.01 {
		price = 0.01
	}
	f.prices[symbol] = price
	return price
}
