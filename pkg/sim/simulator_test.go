package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/matchbook/pkg/core"
)

// fakeSubmitter records submitted orders without running a real book.
type fakeSubmitter struct {
	mu     sync.Mutex
	active string
	orders []submittedOrder
}

type submittedOrder struct {
	symbol   string
	side     core.Side
	quantity fpdecimal.Decimal
	price    fpdecimal.Decimal
}

func (f *fakeSubmitter) Active() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeSubmitter) Submit(_ context.Context, symbol string, side core.Side, quantity, price fpdecimal.Decimal) (uint64, []core.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, submittedOrder{symbol: symbol, side: side, quantity: quantity, price: price})
	return uint64(len(f.orders)), nil, nil
}

func (f *fakeSubmitter) submitted() []submittedOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]submittedOrder, len(f.orders))
	copy(out, f.orders)
	return out
}

func testConfig() *Config {
	return &Config{
		OrderRate:           200,
		WarmupOrders:        50,
		PriceUpdateInterval: 15 * time.Second,
		NoisePercent:        0.01,
		SpreadPercent:       0.001,
		VariationPercent:    0.002,
		MinQuantity:         50,
		MaxQuantity:         550,
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.WarmupOrders)
	assert.Equal(t, 15*time.Second, cfg.PriceUpdateInterval)
	assert.Equal(t, 50, cfg.MinQuantity)
	assert.Equal(t, 550, cfg.MaxQuantity)
}

func TestDefaultInstruments(t *testing.T) {
	instruments := DefaultInstruments()
	require.Len(t, instruments, 7)

	bySymbol := make(map[string]InstrumentParams)
	for _, inst := range instruments {
		bySymbol[inst.Symbol] = inst
	}
	assert.Equal(t, 175.0, bySymbol["AAPL"].BasePrice)
	assert.Equal(t, 450.0, bySymbol["NVDA"].BasePrice)
	assert.Greater(t, bySymbol["NVDA"].DriftAmplitude, bySymbol["AAPL"].DriftAmplitude,
		"NVDA should be the most volatile instrument")
}

func TestGenerateOrderBounds(t *testing.T) {
	sub := &fakeSubmitter{active: "AAPL"}
	s := NewMarketSimulator(testConfig(), sub, DefaultInstruments(), zerolog.Nop())

	reference, ok := s.ReferencePrice("AAPL")
	require.True(t, ok)

	for i := 0; i < 1000; i++ {
		side, quantity, price := s.generateOrder("AAPL")

		qty := fpdecimal.FromInt(50)
		maxQty := fpdecimal.FromInt(550)
		assert.True(t, quantity.GreaterThanOrEqual(qty), "quantity below minimum: %s", quantity)
		assert.True(t, quantity.LessThanOrEqual(maxQty), "quantity above maximum: %s", quantity)

		// Prices stay within spread/2 + variation/2 of the reference.
		bound := reference * (testConfig().SpreadPercent/2 + testConfig().VariationPercent/2)
		low := fpdecimal.FromFloat(reference - bound - 0.01)
		high := fpdecimal.FromFloat(reference + bound + 0.01)
		assert.True(t, price.GreaterThanOrEqual(low), "price too low for %s: %s", side, price)
		assert.True(t, price.LessThanOrEqual(high), "price too high for %s: %s", side, price)
	}
}

func TestGenerateOrderSidesAroundReference(t *testing.T) {
	sub := &fakeSubmitter{active: "MSFT"}
	cfg := testConfig()
	cfg.VariationPercent = 0 // isolate the spread placement
	s := NewMarketSimulator(cfg, sub, DefaultInstruments(), zerolog.Nop())

	reference, ok := s.ReferencePrice("MSFT")
	require.True(t, ok)
	ref := fpdecimal.FromFloat(reference)

	for i := 0; i < 200; i++ {
		side, _, price := s.generateOrder("MSFT")
		if side == core.Buy {
			assert.True(t, price.LessThan(ref), "buy should price below reference")
		} else {
			assert.True(t, price.GreaterThan(ref), "sell should price above reference")
		}
	}
}

func TestUpdatePricesDrift(t *testing.T) {
	sub := &fakeSubmitter{active: "AAPL"}
	s := NewMarketSimulator(testConfig(), sub, DefaultInstruments(), zerolog.Nop())

	s.updatePrices(time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC))

	for _, inst := range DefaultInstruments() {
		price, ok := s.ReferencePrice(inst.Symbol)
		require.True(t, ok)

		// Drift plus noise keeps the price inside the amplitude band.
		maxMove := inst.BasePrice * (inst.DriftAmplitude + testConfig().NoisePercent)
		assert.InDelta(t, inst.BasePrice, price, maxMove+1e-9,
			"%s drifted outside its band", inst.Symbol)
	}
}

func TestUpdatePricesCoversWholeUniverse(t *testing.T) {
	sub := &fakeSubmitter{active: "AAPL"}
	s := NewMarketSimulator(testConfig(), sub, DefaultInstruments(), zerolog.Nop())

	s.updatePrices(time.Date(2026, 1, 1, 10, 20, 0, 0, time.UTC))

	moved := 0
	for _, inst := range DefaultInstruments() {
		price, _ := s.ReferencePrice(inst.Symbol)
		if price != inst.BasePrice {
			moved++
		}
	}
	assert.Equal(t, len(DefaultInstruments()), moved, "inactive symbols must drift too")
}

func TestStartSeedsWarmupOrders(t *testing.T) {
	sub := &fakeSubmitter{active: "TSLA"}
	cfg := testConfig()
	s := NewMarketSimulator(cfg, sub, DefaultInstruments(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))

	orders := sub.submitted()
	assert.GreaterOrEqual(t, len(orders), cfg.WarmupOrders)
	for _, o := range orders {
		assert.Equal(t, "TSLA", o.symbol, "all generated orders target the active symbol")
	}
}
