package core

import (
	"context"
	"os"
	"testing"

	"github.com/erain9/tickmatch/pkg/db/queue"
	"github.com/erain9/tickmatch/pkg/messaging"
)

var testSender *messaging.MockSender

func TestMain(m *testing.M) {
	// Sink exec reports in memory so no test needs a broker
	testSender = messaging.NewMockSender()
	queue.SetSender(testSender)

	os.Exit(m.Run())
}

func newTestEngine() *Engine {
	return NewEngine(NewOrderBook(newMockBackend()))
}

func TestMatchPartialFill(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	sell, _ := NewLimitOrder(1, Sell, 33, 1000)
	report, err := engine.Match(ctx, sell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Stored || len(report.Trades) != 0 {
		t.Errorf("sell into empty book should rest untouched, got stored=%v trades=%d", report.Stored, len(report.Trades))
	}

	buy, _ := NewLimitOrder(2, Buy, 33, 400)
	report, err = engine.Match(ctx, buy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(report.Trades))
	}
	trade := report.Trades[0]
	if trade.BuyOrderID != 2 || trade.SellOrderID != 1 {
		t.Errorf("expected trade between buy 2 and sell 1, got buy=%d sell=%d", trade.BuyOrderID, trade.SellOrderID)
	}
	if trade.Price != 33 || trade.Volume != 400 {
		t.Errorf("expected 400 @ 33, got %d @ %d", trade.Volume, trade.Price)
	}

	if report.Status != StatusFilled {
		t.Errorf("expected buy order FILLED, got %s", report.Status)
	}
	if report.Stored {
		t.Error("fully filled incoming order must not be stored")
	}
	if sell.Status() != StatusPartiallyFilled {
		t.Errorf("expected sell order PARTIALLY_FILLED, got %s", sell.Status())
	}
	if sell.VolumeRemaining() != 600 {
		t.Errorf("expected sell remaining 600, got %d", sell.VolumeRemaining())
	}
	if !engine.Book().Contains(1) {
		t.Error("partially filled sell must remain in the book")
	}
}

func TestMatchFullFillRemovesMaker(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	sell, _ := NewLimitOrder(1, Sell, 10, 100)
	_, _ = engine.Match(ctx, sell)

	buy, _ := NewLimitOrder(2, Buy, 10, 100)
	report, err := engine.Match(ctx, buy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Status != StatusFilled {
		t.Errorf("expected FILLED, got %s", report.Status)
	}
	if engine.Book().Contains(1) {
		t.Error("fully filled maker must be excised from the book")
	}
	if engine.Book().Contains(2) {
		t.Error("fully filled taker must not be inserted")
	}
	if sell.Status() != StatusFilled {
		t.Errorf("expected maker FILLED, got %s", sell.Status())
	}
}

func TestMatchNoCrossRests(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	sell, _ := NewLimitOrder(1, Sell, 10, 100)
	_, _ = engine.Match(ctx, sell)

	// Buy below the best ask cannot trade and rests
	buy, _ := NewLimitOrder(2, Buy, 5, 100)
	report, err := engine.Match(ctx, buy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Trades) != 0 {
		t.Errorf("expected no trades, got %d", len(report.Trades))
	}
	if !report.Stored {
		t.Error("unmatched order must rest in the book")
	}
	if report.Status != StatusRested {
		t.Errorf("expected RESTED, got %s", report.Status)
	}
	if !engine.Book().Contains(1) || !engine.Book().Contains(2) {
		t.Error("both orders should rest on their sides")
	}
}

func TestMatchPriceTimePriority(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	// Asks arrive at 10, 10, 12; the second at 10 is later in time
	first, _ := NewLimitOrder(1, Sell, 10, 30)
	second, _ := NewLimitOrder(2, Sell, 10, 30)
	worse, _ := NewLimitOrder(3, Sell, 12, 30)
	for _, o := range []*Order{first, second, worse} {
		if _, err := engine.Match(ctx, o); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	buy, _ := NewLimitOrder(4, Buy, 12, 70)
	report, err := engine.Match(ctx, buy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(report.Trades))
	}

	// Fill order: best price first, then arrival order within a level
	wantSellers := []uint64{1, 2, 3}
	wantVolumes := []int64{30, 30, 10}
	wantPrices := []int64{10, 10, 12}
	for i, trade := range report.Trades {
		if trade.SellOrderID != wantSellers[i] {
			t.Errorf("trade %d: expected seller %d, got %d", i, wantSellers[i], trade.SellOrderID)
		}
		if trade.Volume != wantVolumes[i] {
			t.Errorf("trade %d: expected volume %d, got %d", i, wantVolumes[i], trade.Volume)
		}
		if trade.Price != wantPrices[i] {
			t.Errorf("trade %d: expected price %d, got %d", i, wantPrices[i], trade.Price)
		}
	}

	if worse.VolumeRemaining() != 20 {
		t.Errorf("expected last maker to keep 20, got %d", worse.VolumeRemaining())
	}
}

func TestMatchMultiLevelSweep(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	levelOne, _ := NewLimitOrder(1, Sell, 10, 50)
	levelTwo, _ := NewLimitOrder(2, Sell, 11, 50)
	_, _ = engine.Match(ctx, levelOne)
	_, _ = engine.Match(ctx, levelTwo)

	buy, _ := NewLimitOrder(3, Buy, 11, 80)
	report, err := engine.Match(ctx, buy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(report.Trades))
	}

	// Each fill executes at the resting order's price
	if report.Trades[0].Price != 10 || report.Trades[0].Volume != 50 {
		t.Errorf("expected first trade 50 @ 10, got %d @ %d", report.Trades[0].Volume, report.Trades[0].Price)
	}
	if report.Trades[1].Price != 11 || report.Trades[1].Volume != 30 {
		t.Errorf("expected second trade 30 @ 11, got %d @ %d", report.Trades[1].Volume, report.Trades[1].Price)
	}

	if report.Status != StatusFilled {
		t.Errorf("expected FILLED, got %s", report.Status)
	}
	if engine.Book().Contains(1) {
		t.Error("swept maker must be excised")
	}
	if levelTwo.VolumeRemaining() != 20 {
		t.Errorf("expected second maker to keep 20, got %d", levelTwo.VolumeRemaining())
	}
}

func TestMatchDuplicateID(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	order, _ := NewLimitOrder(1, Sell, 10, 100)
	if _, err := engine.Match(ctx, order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup, _ := NewLimitOrder(1, Buy, 5, 50)
	if _, err := engine.Match(ctx, dup); err != ErrDuplicateID {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestMatchRejectsSpentOrder(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	order, _ := NewLimitOrder(1, Sell, 10, 100)
	order.fill(100)

	if _, err := engine.Match(ctx, order); err != ErrInvalidVolume {
		t.Errorf("expected ErrInvalidVolume, got %v", err)
	}
}

func TestMatchVolumeConservation(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	orders := []*Order{}
	specs := []struct {
		id     uint64
		side   Side
		price  int64
		volume int64
	}{
		{1, Sell, 10, 75},
		{2, Sell, 11, 25},
		{3, Buy, 11, 60},
		{4, Buy, 12, 90},
		{5, Sell, 9, 200},
	}

	for _, s := range specs {
		order, _ := NewLimitOrder(s.id, s.side, s.price, s.volume)
		orders = append(orders, order)
		if _, err := engine.Match(ctx, order); err != nil {
			t.Fatalf("order %d: unexpected error: %v", s.id, err)
		}
	}

	var buyFilled, sellFilled int64
	for _, order := range orders {
		if order.VolumeFilled()+order.VolumeRemaining() != order.TotalVolume() {
			t.Errorf("order %d: conservation violated", order.ID())
		}
		if order.Side() == Buy {
			buyFilled += order.VolumeFilled()
		} else {
			sellFilled += order.VolumeFilled()
		}
	}

	// Every unit bought was sold by exactly one counterparty
	if buyFilled != sellFilled {
		t.Errorf("filled volume asymmetry: buys %d, sells %d", buyFilled, sellFilled)
	}
}

func TestMatchPublishesExecReport(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()
	testSender.Reset()

	sell, _ := NewLimitOrder(1, Sell, 33, 1000)
	_, _ = engine.Match(ctx, sell)

	buy, _ := NewLimitOrder(2, Buy, 33, 400)
	_, _ = engine.Match(ctx, buy)

	messages := testSender.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected 2 published reports, got %d", len(messages))
	}

	last := messages[1]
	if last.OrderID != 2 {
		t.Errorf("expected report for order 2, got %d", last.OrderID)
	}
	if last.Status != StatusFilled.String() {
		t.Errorf("expected status FILLED, got %s", last.Status)
	}
	if last.ExecutedVolume != 400 || last.RemainingVolume != 0 {
		t.Errorf("expected 400 executed / 0 remaining, got %d / %d", last.ExecutedVolume, last.RemainingVolume)
	}
	if len(last.Trades) != 1 || last.Trades[0].SellOrderID != 1 {
		t.Errorf("expected one trade against order 1, got %+v", last.Trades)
	}
}
