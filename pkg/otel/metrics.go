package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var engineMetrics *EngineMetrics

// EngineMetrics holds metrics for matching engine operations
type EngineMetrics struct {
	// Counts orders submitted to the engine by side
	matchesTotal metric.Int64Counter
	// Counts individual trades produced by matching
	tradesTotal metric.Int64Counter
	// Match latency distribution in milliseconds
	matchLatency metric.Float64Histogram
}

// GetEngineMetrics returns the EngineMetrics singleton
func GetEngineMetrics() *EngineMetrics {
	if engineMetrics == nil {
		meter := otel.GetMeterProvider().Meter(instrumentationName)

		matchesTotal, err := meter.Int64Counter(
			"engine.matches.total",
			metric.WithDescription("Total number of orders processed by the engine"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			return &EngineMetrics{}
		}

		tradesTotal, err := meter.Int64Counter(
			"engine.trades.total",
			metric.WithDescription("Total number of trades produced"),
			metric.WithUnit("{trade}"),
		)
		if err != nil {
			return &EngineMetrics{}
		}

		matchLatency, err := meter.Float64Histogram(
			"engine.match.latency",
			metric.WithDescription("Latency of a single match call"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return &EngineMetrics{}
		}

		engineMetrics = &EngineMetrics{
			matchesTotal: matchesTotal,
			tradesTotal:  tradesTotal,
			matchLatency: matchLatency,
		}
	}

	return engineMetrics
}

// RecordMatch records the outcome of one engine match call
func (m *EngineMetrics) RecordMatch(ctx context.Context, side string, tradeCount int, elapsed time.Duration) {
	if m.matchesTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("order.side", side),
	}
	m.matchesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.tradesTotal.Add(ctx, int64(tradeCount), metric.WithAttributes(attrs...))
	m.matchLatency.Record(ctx, float64(elapsed.Microseconds())/1000.0, metric.WithAttributes(attrs...))
}
