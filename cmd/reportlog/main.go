package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"github.com/erain9/tickmatch/config"
	"github.com/erain9/tickmatch/pkg/logging"
	"github.com/erain9/tickmatch/pkg/messaging/kafka"
)

// reportlog tails the exec report topic and logs every report. Useful
// for watching a running engine without attaching a real downstream
// consumer.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Setup(logging.Config{
		Level:  cfg.Server.LogLevel,
		Pretty: cfg.Server.LogFormat == "pretty",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer, err := kafka.SetupConsumer(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start exec report consumer")
	}
	defer consumer.Close()

	log.Info().Str("broker", cfg.Kafka.BrokerAddr).Str("topic", cfg.Kafka.Topic).Msg("Tailing exec reports")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan
	log.Info().Msg("Received interrupt signal, stopping")
}
