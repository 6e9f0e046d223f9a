package core

import (
	"encoding/json"
	"time"

	"github.com/nikolaydubina/fpdecimal"
)

// Trade records one match between an incoming order and a resting order.
// The price is always the resting order's price. Immutable once created.
type Trade struct {
	ID          uint64
	Symbol      string
	Price       fpdecimal.Decimal
	Quantity    fpdecimal.Decimal
	BuyOrderID  uint64
	SellOrderID uint64
	Timestamp   time.Time
}

// MarshalJSON implements Marshaler interface
func (t Trade) MarshalJSON() ([]byte, error) {
	customStruct := struct {
		ID          uint64 `json:"id"`
		Symbol      string `json:"symbol"`
		Price       string `json:"price"`
		Quantity    string `json:"quantity"`
		BuyOrderID  uint64 `json:"buyOrderId"`
		SellOrderID uint64 `json:"sellOrderId"`
		Timestamp   int64  `json:"timestamp"`
	}{
		ID:          t.ID,
		Symbol:      t.Symbol,
		Price:       t.Price.String(),
		Quantity:    t.Quantity.String(),
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Timestamp:   t.Timestamp.UnixMilli(),
	}
	return json.Marshal(customStruct)
}

// BookMetrics are the running per-book counters exposed in snapshots.
type BookMetrics struct {
	TotalOrders uint64
	TotalTrades uint64
	Volume      fpdecimal.Decimal
	LastPrice   fpdecimal.Decimal
}

// Snapshot is a consistent view of book depth and recent trades.
type Snapshot struct {
	Symbol  string
	Bids    []LevelSummary
	Asks    []LevelSummary
	Trades  []Trade
	Metrics BookMetrics
}

// MarshalJSON implements json.Marshaler interface for Snapshot
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type levelJSON struct {
		Price    string `json:"price"`
		Quantity string `json:"quantity"`
		Orders   int    `json:"orderCount"`
	}

	levels := func(in []LevelSummary) []levelJSON {
		out := make([]levelJSON, len(in))
		for i, l := range in {
			out[i] = levelJSON{
				Price:    l.Price.String(),
				Quantity: l.Quantity.String(),
				Orders:   l.Orders,
			}
		}
		return out
	}

	return json.Marshal(struct {
		Symbol string      `json:"symbol"`
		Bids   []levelJSON `json:"bids"`
		Asks   []levelJSON `json:"asks"`
		Trades []Trade     `json:"trades"`
		Metrics struct {
			TotalOrders uint64 `json:"totalOrders"`
			TotalTrades uint64 `json:"totalTrades"`
			Volume      string `json:"volume"`
			LastPrice   string `json:"lastPrice"`
		} `json:"metrics"`
	}{
		Symbol: s.Symbol,
		Bids:   levels(s.Bids),
		Asks:   levels(s.Asks),
		Trades: s.Trades,
		Metrics: struct {
			TotalOrders uint64 `json:"totalOrders"`
			TotalTrades uint64 `json:"totalTrades"`
			Volume      string `json:"volume"`
			LastPrice   string `json:"lastPrice"`
		}{
			TotalOrders: s.Metrics.TotalOrders,
			TotalTrades: s.Metrics.TotalTrades,
			Volume:      s.Metrics.Volume.String(),
			LastPrice:   s.Metrics.LastPrice.String(),
		},
	})
}
