package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/quantfeed/matchbook/pkg/db/queue"
	"github.com/quantfeed/matchbook/pkg/messaging"
	"github.com/quantfeed/matchbook/pkg/otel"
)

// OrderBook pairs the bid and ask sides for one instrument and owns the
// matching algorithm and the recent-trade log. All mutation and reads go
// through the book mutex: matching touches both sides atomically, so a
// concurrent reader must never observe a transiently crossed book.
type OrderBook struct {
	mu sync.Mutex

	symbol  string
	bids    *BookSide
	asks    *BookSide
	resting map[uint64]*Order
	trades  *tradeRing

	tradeSeq uint64
	metrics  BookMetrics
	frozen   bool
}

// NewOrderBook creates an empty book for the given symbol.
func NewOrderBook(symbol string, tradeLogCapacity int) *OrderBook {
	return &OrderBook{
		symbol:  symbol,
		bids:    NewBookSide(Buy),
		asks:    NewBookSide(Sell),
		resting: make(map[uint64]*Order),
		trades:  newTradeRing(tradeLogCapacity),
		metrics: BookMetrics{Volume: fpdecimal.Zero, LastPrice: fpdecimal.Zero},
	}
}

// Symbol returns the instrument this book trades.
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// Submit matches the order against the opposing side under price-time
// priority, draining crossing levels until no cross remains, then rests
// any residual quantity on the order's own side. Returned trades are
// priced at the resting order's price.
func (ob *OrderBook) Submit(ctx context.Context, order *Order) ([]Trade, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanSubmitOrder,
		attribute.Int64(otel.AttributeOrderID, int64(order.ID())),
		attribute.String(otel.AttributeOrderSide, order.Side().String()),
		attribute.String(otel.AttributeSymbol, ob.symbol),
		attribute.String(otel.AttributeOrderQuantity, order.Quantity().String()),
		attribute.String(otel.AttributeOrderPrice, order.Price().String()),
	)
	defer span.End()

	ob.mu.Lock()
	defer ob.mu.Unlock()

	if ob.frozen {
		span.SetStatus(codes.Error, "book frozen")
		return nil, ErrBookFrozen
	}

	if order.Quantity().LessThanOrEqual(fpdecimal.Zero) {
		span.SetStatus(codes.Error, "invalid quantity")
		return nil, ErrInvalidQuantity
	}
	if order.Price().LessThanOrEqual(fpdecimal.Zero) {
		span.SetStatus(codes.Error, "invalid price")
		return nil, ErrInvalidPrice
	}

	trades, err := ob.match(order)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return trades, err
	}

	ob.metrics.TotalOrders++
	for _, t := range trades {
		ob.trades.Append(t)
		ob.metrics.TotalTrades++
		ob.metrics.Volume = ob.metrics.Volume.Add(t.Quantity)
		ob.metrics.LastPrice = t.Price
	}

	if err := ob.checkInvariants(); err != nil {
		ob.frozen = true
		span.SetStatus(codes.Error, err.Error())
		return trades, err
	}

	if len(trades) > 0 {
		otel.GetOrderBookMetrics().RecordTrades(ctx, ob.symbol, int64(len(trades)))
		publishTrades(ctx, ob.symbol, trades)
	}

	otel.AddAttributes(span,
		attribute.String(otel.AttributeRemainingQuantity, order.Quantity().String()),
		attribute.Int(otel.AttributeTradeCount, len(trades)),
	)
	span.SetStatus(codes.Ok, "order processed")

	return trades, nil
}

// match drains crossing levels. Caller holds the lock.
func (ob *OrderBook) match(order *Order) ([]Trade, error) {
	opposing, own := ob.asks, ob.bids
	if order.Side() == Sell {
		opposing, own = ob.bids, ob.asks
	}

	var trades []Trade

	for order.Quantity().GreaterThan(fpdecimal.Zero) {
		// Re-check the best level each pass: a drained level changes
		// the top of book mid-match.
		best := opposing.BestLevel()
		if best == nil || !crosses(order, best.Price()) {
			break
		}

		_, fills := best.MatchAgainst(order.Quantity())
		for _, fill := range fills {
			order.DecreaseQuantity(fill.Quantity)
			if fill.Order.IsFilled() {
				delete(ob.resting, fill.Order.ID())
			}
			trades = append(trades, ob.newTrade(order, fill))
		}

		opposing.RemoveIfEmpty(best.Price())
	}

	if order.Quantity().GreaterThan(fpdecimal.Zero) {
		if err := own.Insert(order); err != nil {
			return trades, err
		}
		ob.resting[order.ID()] = order
	}

	return trades, nil
}

// Cancel removes a resting order from the book. The level is deleted
// when the cancellation drains it.
func (ob *OrderBook) Cancel(ctx context.Context, orderID uint64) error {
	_, span := otel.StartOrderSpan(ctx, otel.SpanCancelOrder,
		attribute.Int64(otel.AttributeOrderID, int64(orderID)),
		attribute.String(otel.AttributeSymbol, ob.symbol),
	)
	defer span.End()

	ob.mu.Lock()
	defer ob.mu.Unlock()

	if ob.frozen {
		span.SetStatus(codes.Error, "book frozen")
		return ErrBookFrozen
	}

	order, ok := ob.resting[orderID]
	if !ok {
		span.SetStatus(codes.Error, "order not resting")
		return ErrNonexistentOrder
	}

	side := ob.bids
	if order.Side() == Sell {
		side = ob.asks
	}

	level := side.Level(order.Price())
	if level == nil || !level.Remove(order) {
		ob.frozen = true
		span.SetStatus(codes.Error, "resting order missing from its level")
		return fmt.Errorf("%w: resting order %d missing from %s level %s",
			ErrInvariantViolated, orderID, order.Side(), order.Price())
	}

	side.RemoveIfEmpty(order.Price())
	delete(ob.resting, orderID)
	span.SetStatus(codes.Ok, "order cancelled")
	return nil
}

// BestBid returns the highest bid level, or nil.
func (ob *OrderBook) BestBid() *LevelSummary {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return summarize(ob.bids.BestLevel())
}

// BestAsk returns the lowest ask level, or nil.
func (ob *OrderBook) BestAsk() *LevelSummary {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return summarize(ob.asks.BestLevel())
}

// Snapshot copies the top depth levels per side plus the most recent
// trades. It serializes behind the same lock as Submit, so the view is
// always of a quiescent book.
func (ob *OrderBook) Snapshot(depth int) Snapshot {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return Snapshot{
		Symbol:  ob.symbol,
		Bids:    ob.bids.TopN(depth),
		Asks:    ob.asks.TopN(depth),
		Trades:  ob.trades.Recent(depth),
		Metrics: ob.metrics,
	}
}

// Frozen reports whether the book refused further mutation after an
// invariant violation.
func (ob *OrderBook) Frozen() bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.frozen
}

func (ob *OrderBook) newTrade(taker *Order, fill Fill) Trade {
	ob.tradeSeq++

	buyID, sellID := taker.ID(), fill.Order.ID()
	if taker.Side() == Sell {
		buyID, sellID = fill.Order.ID(), taker.ID()
	}

	return Trade{
		ID:          ob.tradeSeq,
		Symbol:      ob.symbol,
		Price:       fill.Order.Price(),
		Quantity:    fill.Quantity,
		BuyOrderID:  buyID,
		SellOrderID: sellID,
		Timestamp:   time.Now(),
	}
}

// checkInvariants validates the quiescent book: no cross between the
// best bid and best ask, and consistent aggregates at the top levels.
func (ob *OrderBook) checkInvariants() error {
	bestBid := ob.bids.BestLevel()
	bestAsk := ob.asks.BestLevel()

	if bestBid != nil && bestAsk != nil && bestBid.Price().GreaterThanOrEqual(bestAsk.Price()) {
		return fmt.Errorf("%w: crossed book bid=%s ask=%s",
			ErrInvariantViolated, bestBid.Price(), bestAsk.Price())
	}

	for _, level := range []*PriceLevel{bestBid, bestAsk} {
		if level == nil {
			continue
		}
		if level.IsEmpty() {
			return fmt.Errorf("%w: empty level retained at %s", ErrInvariantViolated, level.Price())
		}
		if !level.checkAggregate() {
			return fmt.Errorf("%w: aggregate mismatch at %s", ErrInvariantViolated, level.Price())
		}
	}

	return nil
}

func crosses(taker *Order, restingPrice fpdecimal.Decimal) bool {
	if taker.Side() == Buy {
		return taker.Price().GreaterThanOrEqual(restingPrice)
	}
	return taker.Price().LessThanOrEqual(restingPrice)
}

func summarize(level *PriceLevel) *LevelSummary {
	if level == nil {
		return nil
	}
	return &LevelSummary{
		Price:    level.Price(),
		Quantity: level.TotalQty(),
		Orders:   level.OrderCount(),
	}
}

// publishTrades hands the batch to the message queue.
func publishTrades(ctx context.Context, symbol string, trades []Trade) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanPublishTrades,
		attribute.String(otel.AttributeSymbol, symbol),
		attribute.Int(otel.AttributeTradeCount, len(trades)),
	)
	defer span.End()

	msg := &messaging.TradeBatchMessage{Symbol: symbol}
	msg.Trades = make([]messaging.Trade, 0, len(trades))
	for _, t := range trades {
		msg.Trades = append(msg.Trades, messaging.Trade{
			TradeID:     t.ID,
			Price:       t.Price.String(),
			Quantity:    t.Quantity.String(),
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Timestamp:   t.Timestamp.UnixMilli(),
		})
	}

	if err := queue.SendMessage(ctx, msg); err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("failed to publish trades: %v", err))
		return
	}

	span.SetStatus(codes.Ok, "trades published")
}
