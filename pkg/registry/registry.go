package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/quantfeed/matchbook/pkg/core"
	"github.com/quantfeed/matchbook/pkg/logging"
)

// Instrument describes a tradable symbol known to the engine.
type Instrument struct {
	Symbol    string
	Name      string
	BasePrice fpdecimal.Decimal
}

// InstrumentRegistry owns one order book per instrument in a fixed
// universe decided at construction. Symbols are never added or removed
// afterwards, so the books map is read-only after New and only the
// active-symbol pointer needs lock protection.
type InstrumentRegistry struct {
	mu      sync.RWMutex
	active  string
	books   map[string]*core.OrderBook
	meta    map[string]Instrument
	symbols []string

	nextOrderID atomic.Uint64
}

// NewInstrumentRegistry builds books for every instrument in the
// universe. The first instrument becomes the active symbol. The
// universe must not be empty.
func NewInstrumentRegistry(instruments []Instrument, tradeLogCapacity int) *InstrumentRegistry {
	if len(instruments) == 0 {
		panic("registry: empty instrument universe")
	}

	r := &InstrumentRegistry{
		books:   make(map[string]*core.OrderBook, len(instruments)),
		meta:    make(map[string]Instrument, len(instruments)),
		symbols: make([]string, 0, len(instruments)),
	}
	for _, inst := range instruments {
		r.books[inst.Symbol] = core.NewOrderBook(inst.Symbol, tradeLogCapacity)
		r.meta[inst.Symbol] = inst
		r.symbols = append(r.symbols, inst.Symbol)
	}
	r.active = instruments[0].Symbol
	return r
}

// NextOrderID hands out engine-wide monotonic order IDs.
func (r *InstrumentRegistry) NextOrderID() uint64 {
	return r.nextOrderID.Add(1)
}

// Symbols returns the fixed universe in construction order.
func (r *InstrumentRegistry) Symbols() []string {
	out := make([]string, len(r.symbols))
	copy(out, r.symbols)
	return out
}

// Instrument returns the metadata for a symbol.
func (r *InstrumentRegistry) Instrument(symbol string) (Instrument, error) {
	inst, ok := r.meta[symbol]
	if !ok {
		return Instrument{}, core.ErrUnknownInstrument
	}
	return inst, nil
}

// Book returns the order book for a symbol.
func (r *InstrumentRegistry) Book(symbol string) (*core.OrderBook, error) {
	book, ok := r.books[symbol]
	if !ok {
		return nil, core.ErrUnknownInstrument
	}
	return book, nil
}

// Active returns the currently selected symbol.
func (r *InstrumentRegistry) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// SwitchActive changes the selected symbol. Books for inactive symbols
// keep their state and keep accepting orders; switching only changes
// which book the market data surface presents by default.
func (r *InstrumentRegistry) SwitchActive(ctx context.Context, symbol string) error {
	logger := logging.FromContext(ctx).With().Str("symbol", symbol).Logger()

	if _, ok := r.books[symbol]; !ok {
		logger.Error().Msg("Cannot switch to unknown instrument")
		return core.ErrUnknownInstrument
	}

	r.mu.Lock()
	prev := r.active
	r.active = symbol
	r.mu.Unlock()

	logger.Info().Str("previous", prev).Msg("Switched active instrument")
	return nil
}

// Submit creates a limit order with a fresh ID and routes it to the
// symbol's book. It returns the assigned order ID along with any trades
// produced by matching.
func (r *InstrumentRegistry) Submit(ctx context.Context, symbol string, side core.Side, quantity, price fpdecimal.Decimal) (uint64, []core.Trade, error) {
	book, ok := r.books[symbol]
	if !ok {
		return 0, nil, core.ErrUnknownInstrument
	}

	id := r.NextOrderID()
	order, err := core.NewLimitOrder(id, side, symbol, quantity, price, time.Now())
	if err != nil {
		return 0, nil, err
	}

	trades, err := book.Submit(ctx, order)
	if err != nil {
		return 0, nil, err
	}
	return id, trades, nil
}

// Cancel removes a resting order from the symbol's book.
func (r *InstrumentRegistry) Cancel(ctx context.Context, symbol string, orderID uint64) error {
	book, ok := r.books[symbol]
	if !ok {
		return core.ErrUnknownInstrument
	}
	return book.Cancel(ctx, orderID)
}

// Snapshot returns a consistent view of the symbol's book.
func (r *InstrumentRegistry) Snapshot(symbol string, depth int) (core.Snapshot, error) {
	book, ok := r.books[symbol]
	if !ok {
		return core.Snapshot{}, core.ErrUnknownInstrument
	}
	return book.Snapshot(depth), nil
}

// ActiveSnapshot returns a snapshot of the active symbol's book.
func (r *InstrumentRegistry) ActiveSnapshot(depth int) core.Snapshot {
	book := r.books[r.Active()]
	return book.Snapshot(depth)
}
