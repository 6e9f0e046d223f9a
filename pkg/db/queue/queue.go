package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"github.com/quantfeed/matchbook/pkg/messaging"
)

var (
	configMu   sync.RWMutex
	brokerList = "localhost:9092"
	topic      = "matchbook-trades"
)

// SetBrokerList overrides the Kafka broker address before the sender
// pool is initialized.
func SetBrokerList(addr string) {
	configMu.Lock()
	defer configMu.Unlock()
	brokerList = addr
}

// SetTopic overrides the Kafka topic before the sender pool is
// initialized.
func SetTopic(t string) {
	configMu.Lock()
	defer configMu.Unlock()
	topic = t
}

func brokerConfig() (string, string) {
	configMu.RLock()
	defer configMu.RUnlock()
	return brokerList, topic
}

// QueueMessageSender implements the MessageSender interface for sending
// trade batches to Kafka through a long-lived sarama producer.
type QueueMessageSender struct {
	producer sarama.SyncProducer
	topic    string
}

// NewQueueMessageSender creates a sender with its own producer connection.
func NewQueueMessageSender() (*QueueMessageSender, error) {
	broker, t := brokerConfig()

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer([]string{broker}, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &QueueMessageSender{producer: producer, topic: t}, nil
}

// newQueueMessageSenderWithProducer is used by tests to inject a mock.
func newQueueMessageSenderWithProducer(producer sarama.SyncProducer, topic string) *QueueMessageSender {
	return &QueueMessageSender{producer: producer, topic: topic}
}

// SendTradeMessage sends the trade batch to the Kafka queue.
func (q *QueueMessageSender) SendTradeMessage(_ context.Context, msg *messaging.TradeBatchMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal trade batch: %w", err)
	}

	pmsg := &sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(msg.Symbol),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := q.producer.SendMessage(pmsg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close shuts down the underlying producer.
func (q *QueueMessageSender) Close() error {
	return q.producer.Close()
}

var _ messaging.MessageSender = (*QueueMessageSender)(nil)
