package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"github.com/erain9/tickmatch/pkg/db/queue"
	"github.com/erain9/tickmatch/pkg/feedsim"
	"github.com/erain9/tickmatch/pkg/logging"
	"github.com/erain9/tickmatch/pkg/messaging"
	"github.com/erain9/tickmatch/pkg/messaging/kafka"
	"github.com/erain9/tickmatch/pkg/otel"
	"github.com/erain9/tickmatch/pkg/server"
)

func main() {
	logging.Setup(logging.Config{Level: "info", Pretty: true})

	cfg, err := feedsim.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Info().Msg("Received interrupt signal, stopping")
		cancel()
	}()

	// Telemetry export is opt-in via the standard OTLP endpoint variable
	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	otelCleanup, err := otel.Init(otel.Config{
		Endpoint:         otlpEndpoint,
		CollectorEnabled: otlpEndpoint != "",
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry")
	}
	defer otelCleanup()

	if otlpEndpoint != "" {
		if err := otel.StartRuntimeMetrics(); err != nil {
			log.Warn().Err(err).Msg("Failed to start runtime metrics")
		}
	}

	if cfg.PublishReports {
		brokerAddr := os.Getenv("KAFKA_BROKER_ADDR")
		if brokerAddr == "" {
			brokerAddr = "localhost:9092"
		}
		sender, err := kafka.NewKafkaSender(brokerAddr, "tickmatch-exec-reports")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Kafka sender")
		}
		defer sender.Close()
		queue.SetSender(sender)
	} else {
		// Without a broker, sink exec reports locally
		queue.SetSender(messaging.NewMockSender())
	}

	manager := server.NewEngineManager()
	defer manager.Close()

	runner := feedsim.NewRunner(cfg, manager)
	result, err := runner.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Simulation failed")
	}

	if err := runner.PrintSummary(ctx, result); err != nil {
		log.Error().Err(err).Msg("Failed to print summary")
	}

	if result.Errors > 0 {
		os.Exit(1)
	}
}
