package queue

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/quantfeed/matchbook/pkg/messaging"
)

// QueueMessageConsumer reads trade batches back off the Kafka topic.
// It exists for development visibility into the queue, not for the
// matching path.
type QueueMessageConsumer struct {
	consumer  sarama.Consumer
	partition sarama.PartitionConsumer
	topic     string
	done      chan struct{}
}

// NewQueueMessageConsumer connects a partition consumer to the
// configured topic.
func NewQueueMessageConsumer() (*QueueMessageConsumer, error) {
	broker, t := brokerConfig()

	consumer, err := sarama.NewConsumer([]string{broker}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	partition, err := consumer.ConsumePartition(t, 0, sarama.OffsetNewest)
	if err != nil {
		_ = consumer.Close()
		return nil, fmt.Errorf("failed to consume partition: %w", err)
	}

	return &QueueMessageConsumer{
		consumer:  consumer,
		partition: partition,
		topic:     t,
		done:      make(chan struct{}),
	}, nil
}

// ConsumeTradeMessages delivers each decoded batch to handler until the
// consumer is closed.
func (c *QueueMessageConsumer) ConsumeTradeMessages(handler func(*messaging.TradeBatchMessage) error) error {
	for {
		select {
		case <-c.done:
			return nil
		case err := <-c.partition.Errors():
			return err
		case raw := <-c.partition.Messages():
			if raw == nil {
				return nil
			}
			var msg messaging.TradeBatchMessage
			if err := json.Unmarshal(raw.Value, &msg); err != nil {
				return fmt.Errorf("failed to decode trade batch: %w", err)
			}
			if err := handler(&msg); err != nil {
				return err
			}
		}
	}
}

// Close stops consumption and releases the connection.
func (c *QueueMessageConsumer) Close() error {
	close(c.done)
	_ = c.partition.Close()
	return c.consumer.Close()
}
