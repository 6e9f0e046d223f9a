package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	orderBookMetrics     *OrderBookMetrics
	orderBookMetricsOnce sync.Once
	meter                = otel.GetMeterProvider().Meter(instrumentationName)
)

// OrderBookMetrics holds metrics for order book operations
type OrderBookMetrics struct {
	tradesTotal metric.Int64Counter
	ordersTotal metric.Int64Counter
}

// GetOrderBookMetrics returns the OrderBookMetrics singleton
func GetOrderBookMetrics() *OrderBookMetrics {
	orderBookMetricsOnce.Do(func() {
		tradesTotal, err := meter.Int64Counter(
			"orderbook.trades.total",
			metric.WithDescription("Total number of trades emitted"),
			metric.WithUnit("{trade}"),
		)
		if err != nil {
			orderBookMetrics = &OrderBookMetrics{}
			return
		}

		ordersTotal, err := meter.Int64Counter(
			"orderbook.orders.total",
			metric.WithDescription("Total number of orders submitted"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			orderBookMetrics = &OrderBookMetrics{tradesTotal: tradesTotal}
			return
		}

		orderBookMetrics = &OrderBookMetrics{
			tradesTotal: tradesTotal,
			ordersTotal: ordersTotal,
		}
	})

	return orderBookMetrics
}

// RecordTrades increments the trade counter for one instrument
func (m *OrderBookMetrics) RecordTrades(ctx context.Context, symbol string, count int64) {
	if m.tradesTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("book.symbol", symbol),
	}
	m.tradesTotal.Add(ctx, count, metric.WithAttributes(attrs...))
}

// RecordOrders increments the submitted-order counter for one instrument
func (m *OrderBookMetrics) RecordOrders(ctx context.Context, symbol string, count int64) {
	if m.ordersTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("book.symbol", symbol),
	}
	m.ordersTotal.Add(ctx, count, metric.WithAttributes(attrs...))
}
