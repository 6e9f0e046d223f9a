package kafka

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/quantfeed/matchbook/pkg/db/queue"
	"github.com/quantfeed/matchbook/pkg/messaging"
)

// SetupConsumer initializes and starts the Kafka consumer that pretty
// prints published trade batches. It is a development aid; matching
// never depends on it.
func SetupConsumer(ctx context.Context, logger zerolog.Logger) (*queue.QueueMessageConsumer, error) {
	kafkaConsumer, err := queue.NewQueueMessageConsumer()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create Kafka consumer - continuing without Kafka support")
		return nil, err
	}

	go func() {
		logger.Info().Msg("Starting Kafka consumer")
		err := kafkaConsumer.ConsumeTradeMessages(func(msg *messaging.TradeBatchMessage) error {
			logger.Info().
				Str("symbol", msg.Symbol).
				Int("trades", len(msg.Trades)).
				Interface("batch", msg.Trades).
				Msg("Received trade batch")
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	return kafkaConsumer, nil
}
