package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// Span names
	SpanMatchOrder    = "match_order"
	SpanCancelOrder   = "cancel_order"
	SpanPublishReport = "publish_report"

	// Attribute keys
	AttributeOrderID         = "order.id"
	AttributeOrderSide       = "order.side"
	AttributeOrderPrice      = "order.price"
	AttributeOrderVolume     = "order.volume"
	AttributeOrderStatus     = "order.status"
	AttributeExecutedVolume  = "order.executed_volume"
	AttributeRemainingVolume = "order.remaining_volume"
	AttributeTradeCount      = "trade.count"
	AttributeBookName        = "book.name"
)

var noopTracer = noop.NewTracerProvider().Tracer("")

// StartOrderSpan starts a new span for order processing. When telemetry
// is disabled a no-op span is returned, so callers can always defer
// span.End().
func StartOrderSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := GetEngineTracer()
	if tracer == nil {
		tracer = noopTracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// AddAttributes adds attributes to a span
func AddAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}
