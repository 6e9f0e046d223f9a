package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantfeed/matchbook/pkg/messaging"
)

var (
	senderPool   chan messaging.MessageSender
	poolInitOnce sync.Once
	poolDisabled bool
	maxPoolSize  = 32
)

// Disable turns the queue into a no-op. Used when no broker is
// configured, so matching proceeds without a Kafka dependency.
func Disable() {
	poolDisabled = true
}

// initSenderPool initializes the sender pool
func initSenderPool() {
	poolInitOnce.Do(func() {
		senderPool = make(chan messaging.MessageSender, maxPoolSize)
		for i := 0; i < maxPoolSize; i++ {
			sender, err := NewQueueMessageSender()
			if err != nil {
				fmt.Printf("Error creating sender: %v\n", err)
				continue
			}
			senderPool <- sender
		}
	})
}

// GetSender gets a sender from the pool
func GetSender() messaging.MessageSender {
	initSenderPool()

	select {
	case sender := <-senderPool:
		return sender
	default:
		return nil
	}
}

// ReturnSender returns a sender to the pool
func ReturnSender(sender messaging.MessageSender) {
	if sender == nil {
		return
	}

	select {
	case senderPool <- sender:
	default:
		_ = sender.Close()
	}
}

// SendMessage sends a trade batch using a pooled sender.
func SendMessage(ctx context.Context, msg *messaging.TradeBatchMessage) error {
	if poolDisabled {
		return nil
	}

	sender := GetSender()
	if sender == nil {
		return fmt.Errorf("failed to get message sender from pool")
	}

	if err := sender.SendTradeMessage(ctx, msg); err != nil {
		// Do not return a sender with a broken connection to the pool.
		_ = sender.Close()
		return err
	}

	ReturnSender(sender)
	return nil
}
