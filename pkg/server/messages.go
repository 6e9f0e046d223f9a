package server

import (
	"encoding/json"
	"time"
)

// Message types pushed to websocket clients.
const (
	TypeSnapshot = "orderbook_snapshot"
	TypeUpdate   = "orderbook_update"
	TypeTrades   = "new_trades"
	TypeError    = "error"
)

// Client message types.
const (
	TypeSwitchStock = "switch_stock"
)

// Message is the envelope for every frame pushed to clients.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ClientMessage is the envelope for frames received from clients.
type ClientMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol,omitempty"`
}

// ErrorData carries a human-readable error back to the client.
type ErrorData struct {
	Error string `json:"error"`
}

// newMessage wraps already-serialized payload data in an envelope.
func newMessage(msgType string, data []byte) ([]byte, error) {
	return json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// newErrorMessage builds an error frame.
func newErrorMessage(text string) []byte {
	data, _ := json.Marshal(ErrorData{Error: text})
	msg, _ := newMessage(TypeError, data)
	return msg
}
