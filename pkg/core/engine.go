package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/erain9/tickmatch/pkg/db/queue"
	"github.com/erain9/tickmatch/pkg/otel"
)

// Engine executes price-time-priority matching passes against one book.
// One Engine serves one book, and calls must be serialized: a matching
// pass establishes priority order before mutating volumes, so a
// concurrent insert or remove would invalidate the snapshot.
type Engine struct {
	book *OrderBook
}

// NewEngine creates a matching engine bound to a book
func NewEngine(book *OrderBook) *Engine {
	return &Engine{
		book: book,
	}
}

// Book returns the order book this engine matches against
func (e *Engine) Book() *OrderBook {
	return e.book
}

// Match executes one matching pass for a validated incoming order. It
// fills the order against price-eligible resting orders in priority
// order, inserts any unfilled remainder into the book, and returns the
// trades generated together with the order's final status. Match runs to
// completion once started; the ctx is used for tracing and publication
// only.
func (e *Engine) Match(ctx context.Context, incoming *Order) (*ExecReport, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanMatchOrder,
		attribute.Int64(otel.AttributeOrderID, int64(incoming.ID())),
		attribute.String(otel.AttributeOrderSide, incoming.Side().String()),
		attribute.Int64(otel.AttributeOrderPrice, incoming.Price()),
		attribute.Int64(otel.AttributeOrderVolume, incoming.TotalVolume()),
	)
	defer span.End()

	if incoming.VolumeRemaining() <= 0 {
		span.SetStatus(codes.Error, "no remaining volume")
		return nil, ErrInvalidVolume
	}

	if e.book.Contains(incoming.ID()) {
		span.SetStatus(codes.Error, "order already exists")
		return nil, ErrDuplicateID
	}

	start := time.Now()
	report := newExecReport(incoming)

	// Priority order is fixed here, before any volume mutation
	resting := e.book.BestOpposite(incoming.Side(), incoming.Price())

	for _, maker := range resting {
		if incoming.VolumeRemaining() == 0 {
			break
		}

		// The traded quantity is the minimum of both sides' remaining
		// volumes; decrementing by anything else breaks conservation.
		fillVolume := minVolume(incoming.VolumeRemaining(), maker.VolumeRemaining())
		incoming.fill(fillVolume)
		maker.fill(fillVolume)

		report.appendTrade(newTrade(incoming, maker, fillVolume))

		if maker.VolumeRemaining() == 0 {
			if _, err := e.book.Remove(maker.ID()); err != nil {
				span.SetStatus(codes.Error, "failed to excise filled order")
				return nil, fmt.Errorf("excising filled order %d: %w", maker.ID(), err)
			}
		} else if err := e.book.Update(maker); err != nil {
			span.SetStatus(codes.Error, "failed to update resting order")
			return nil, fmt.Errorf("updating resting order %d: %w", maker.ID(), err)
		}
	}

	if incoming.VolumeRemaining() > 0 {
		if err := e.book.Insert(incoming); err != nil {
			span.SetStatus(codes.Error, "failed to rest remainder")
			return nil, fmt.Errorf("resting order %d: %w", incoming.ID(), err)
		}
		report.Stored = true
	}

	report.finish()

	otel.GetEngineMetrics().RecordMatch(ctx, incoming.Side().String(), len(report.Trades), time.Since(start))
	otel.AddAttributes(span,
		attribute.Int64(otel.AttributeExecutedVolume, report.Processed),
		attribute.Int64(otel.AttributeRemainingVolume, report.Left),
		attribute.String(otel.AttributeOrderStatus, report.Status.String()),
		attribute.Int(otel.AttributeTradeCount, len(report.Trades)),
	)
	span.SetStatus(codes.Ok, "order matched")

	publishExecReport(ctx, report)
	return report, nil
}

// minVolume returns the minimum of two volumes
func minVolume(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// publishExecReport sends the result of a matching pass to the report
// queue. Publication failures are logged, not surfaced: the book state
// is already final and reporting is a downstream concern.
func publishExecReport(ctx context.Context, report *ExecReport) {
	if report == nil {
		return
	}

	ctx, span := otel.StartOrderSpan(ctx, otel.SpanPublishReport,
		attribute.Int64(otel.AttributeOrderID, int64(report.Order.ID())),
		attribute.Int(otel.AttributeTradeCount, len(report.Trades)),
	)
	defer span.End()

	msg := report.ToMessagingExecMessage()
	if msg == nil {
		span.SetStatus(codes.Error, "failed to convert report to message")
		return
	}

	if err := queue.SendMessage(ctx, msg); err != nil {
		log.Error().Err(err).Uint64("order_id", report.Order.ID()).Msg("Failed to publish exec report")
		span.SetStatus(codes.Error, "failed to publish exec report")
		return
	}

	span.SetStatus(codes.Ok, "exec report published")
}
