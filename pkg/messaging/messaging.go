package messaging

import "context"

// MessageSender defines an interface for sending messages.
// This keeps the core package decoupled from specific implementations
// like Kafka in the queue package.
type MessageSender interface {
	SendTradeMessage(ctx context.Context, msg *TradeBatchMessage) error
	Close() error
}

// TradeBatchMessage carries the trades emitted by one submit call
// for downstream consumers.
type TradeBatchMessage struct {
	Symbol string  `json:"symbol"`
	Trades []Trade `json:"trades"`
}

// Trade represents a single trade execution
type Trade struct {
	TradeID     uint64 `json:"tradeId"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	BuyOrderID  uint64 `json:"buyOrderId"`
	SellOrderID uint64 `json:"sellOrderId"`
	Timestamp   int64  `json:"timestamp"`
}
