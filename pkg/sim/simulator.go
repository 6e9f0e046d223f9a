package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/quantfeed/matchbook/pkg/core"
)

// OrderSubmitter places generated orders into the engine. The registry
// satisfies this interface.
type OrderSubmitter interface {
	Active() string
	Submit(ctx context.Context, symbol string, side core.Side, quantity, price fpdecimal.Decimal) (uint64, []core.Trade, error)
}

// MarketSimulator generates synthetic order flow around a drifting
// reference price. Only the active symbol receives orders; reference
// prices for the whole universe keep drifting so a switched-to book
// picks up where its price process left off.
type MarketSimulator struct {
	cfg       *Config
	submitter OrderSubmitter
	logger    zerolog.Logger

	params map[string]InstrumentParams

	refMu     sync.RWMutex
	refPrices map[string]float64

	rngMu sync.Mutex
	rng   *rand.Rand

	limiter *rate.Limiter
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewMarketSimulator creates a simulator for the given universe.
// Reference prices start at each instrument's base price.
func NewMarketSimulator(cfg *Config, submitter OrderSubmitter, instruments []InstrumentParams, logger zerolog.Logger) *MarketSimulator {
	params := make(map[string]InstrumentParams, len(instruments))
	refPrices := make(map[string]float64, len(instruments))
	for _, inst := range instruments {
		params[inst.Symbol] = inst
		refPrices[inst.Symbol] = inst.BasePrice
	}

	return &MarketSimulator{
		cfg:       cfg,
		submitter: submitter,
		logger:    logger.With().Str("component", "MarketSimulator").Logger(),
		params:    params,
		refPrices: refPrices,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		limiter:   rate.NewLimiter(rate.Limit(cfg.OrderRate), 1),
		stopCh:    make(chan struct{}),
	}
}

// Start seeds the active book and begins the price and order loops.
func (s *MarketSimulator) Start(ctx context.Context) error {
	s.logger.Info().
		Float64("order_rate", s.cfg.OrderRate).
		Dur("price_update_interval", s.cfg.PriceUpdateInterval).
		Msg("Starting market simulator")

	s.seedBook(ctx)

	s.wg.Add(2)
	go s.priceLoop(ctx)
	go s.orderLoop(ctx)

	return nil
}

// Stop shuts down the simulator, waiting for the loops to exit or
// the context to expire.
func (s *MarketSimulator) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping market simulator")
	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Market simulator stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for simulator to stop: %w", ctx.Err())
	}
}

// ReferencePrice returns the current reference price for a symbol,
// or false if the symbol is not part of the universe.
func (s *MarketSimulator) ReferencePrice(symbol string) (float64, bool) {
	s.refMu.RLock()
	defer s.refMu.RUnlock()
	price, ok := s.refPrices[symbol]
	return price, ok
}

// seedBook submits warm-up orders so the book opens with liquidity
// on both sides instead of an empty ladder.
func (s *MarketSimulator) seedBook(ctx context.Context) {
	symbol := s.submitter.Active()
	for i := 0; i < s.cfg.WarmupOrders; i++ {
		side, quantity, price := s.generateOrder(symbol)
		if _, _, err := s.submitter.Submit(ctx, symbol, side, quantity, price); err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to seed order")
		}
	}
	s.logger.Info().Str("symbol", symbol).Int("orders", s.cfg.WarmupOrders).Msg("Seeded order book")
}

// priceLoop drifts the reference price of every instrument on a fixed
// interval. Inactive symbols drift too.
func (s *MarketSimulator) priceLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PriceUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.updatePrices(time.Now())
		}
	}
}

// orderLoop submits orders to the active book at the configured rate.
func (s *MarketSimulator) orderLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		symbol := s.submitter.Active()
		side, quantity, price := s.generateOrder(symbol)

		_, trades, err := s.submitter.Submit(ctx, symbol, side, quantity, price)
		if err != nil {
			s.logger.Error().Err(err).
				Str("symbol", symbol).
				Stringer("side", side).
				Msg("Failed to submit generated order")
			continue
		}

		if len(trades) > 0 {
			s.logger.Debug().
				Str("symbol", symbol).
				Int("trades", len(trades)).
				Msg("Generated order crossed")
		}
	}
}

// updatePrices recomputes each reference price as a sinusoid around
// the base price plus a small random variation. The cycle repeats
// hourly, with per-symbol amplitude and frequency.
func (s *MarketSimulator) updatePrices(now time.Time) {
	timeBase := float64(now.Minute()) / 60

	s.refMu.Lock()
	defer s.refMu.Unlock()

	for symbol, inst := range s.params {
		multiplier := 1 + math.Sin(timeBase*math.Pi*inst.DriftFrequency)*inst.DriftAmplitude
		noise := (s.randFloat() - 0.5) * s.cfg.NoisePercent
		s.refPrices[symbol] = inst.BasePrice * (multiplier + noise)
	}

	s.logger.Debug().Msg("Updated reference prices")
}

// generateOrder draws a side, quantity and price around the symbol's
// reference price. Buys land just below it and sells just above, so
// generated flow crosses often enough to print trades.
func (s *MarketSimulator) generateOrder(symbol string) (core.Side, fpdecimal.Decimal, fpdecimal.Decimal) {
	s.refMu.RLock()
	reference := s.refPrices[symbol]
	s.refMu.RUnlock()

	side := core.Sell
	if s.randFloat() < 0.5 {
		side = core.Buy
	}

	spread := reference * s.cfg.SpreadPercent
	variation := (s.randFloat() - 0.5) * reference * s.cfg.VariationPercent

	var price float64
	if side == core.Buy {
		price = reference - spread/2 + variation
	} else {
		price = reference + spread/2 + variation
	}
	price = math.Round(price*100) / 100

	quantity := s.cfg.MinQuantity + s.randIntN(s.cfg.MaxQuantity-s.cfg.MinQuantity+1)

	return side, fpdecimal.FromInt(quantity), fpdecimal.FromFloat(price)
}

func (s *MarketSimulator) randFloat() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

func (s *MarketSimulator) randIntN(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}
