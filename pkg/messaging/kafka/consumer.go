package kafka

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/erain9/tickmatch/pkg/db/queue"
	"github.com/erain9/tickmatch/pkg/messaging"
)

// SetupConsumer initializes and starts the queue consumer for exec
// reports, logging each one as it arrives
func SetupConsumer(ctx context.Context, logger zerolog.Logger) (*queue.QueueMessageConsumer, error) {
	consumer, err := queue.NewQueueMessageConsumer()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create queue consumer - continuing without report consumption")
		return nil, err
	}

	go func() {
		logger.Info().Msg("Starting exec report consumer")
		err := consumer.ConsumeExecMessages(func(msg *messaging.ExecMessage) error {
			logger.Info().
				Uint64("order_id", msg.OrderID).
				Str("status", msg.Status).
				Int64("executed_volume", msg.ExecutedVolume).
				Int64("remaining_volume", msg.RemainingVolume).
				Bool("stored", msg.Stored).
				Interface("trades", msg.Trades).
				Msg("Received exec report")
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("Exec report consumer error")
		}
	}()

	return consumer, nil
}
