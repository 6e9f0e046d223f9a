package messaging

import (
	"context"
	"sync"
)

// MockMessageSender records sent batches for testing.
type MockMessageSender struct {
	mu   sync.Mutex
	sent []*TradeBatchMessage
}

// NewMockMessageSender creates a new MockMessageSender.
func NewMockMessageSender() *MockMessageSender {
	return &MockMessageSender{}
}

// SendTradeMessage records the batch.
func (m *MockMessageSender) SendTradeMessage(_ context.Context, msg *TradeBatchMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns the batches recorded so far.
func (m *MockMessageSender) Sent() []*TradeBatchMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*TradeBatchMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// Close does nothing.
func (m *MockMessageSender) Close() error {
	return nil
}

// Ensure MockMessageSender implements MessageSender
var _ MessageSender = (*MockMessageSender)(nil)
