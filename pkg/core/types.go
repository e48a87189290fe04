package core

import (
	"encoding/json"

	"github.com/erain9/tickmatch/pkg/messaging"
)

// Trade is an immutable record of one matched quantity between exactly
// two orders, priced at the resting order's limit. Trades are never
// merged or split after creation.
type Trade struct {
	BuyOrderID  uint64
	SellOrderID uint64
	Price       int64
	Volume      int64
}

// newTrade builds the trade record for one fill between the incoming
// order and a resting counterparty
func newTrade(incoming, resting *Order, volume int64) Trade {
	t := Trade{
		Price:  resting.Price(),
		Volume: volume,
	}

	if incoming.Side() == Buy {
		t.BuyOrderID = incoming.ID()
		t.SellOrderID = resting.ID()
	} else {
		t.BuyOrderID = resting.ID()
		t.SellOrderID = incoming.ID()
	}
	return t
}

// MarshalJSON implements Marshaler interface
func (t Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		BuyOrderID  uint64 `json:"buyOrderId"`
		SellOrderID uint64 `json:"sellOrderId"`
		Price       int64  `json:"price"`
		Volume      int64  `json:"volume"`
	}{
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Price:       t.Price,
		Volume:      t.Volume,
	})
}

// ExecReport contains the outcome of one matching pass
type ExecReport struct {
	// Initial order processed
	Order *Order
	// Original quantity of the order
	Volume int64
	// Trades executed during the pass, in execution order
	Trades []Trade
	// Quantity matched during the whole lifetime of the order
	Processed int64
	// Remaining quantity left for the order
	Left int64
	// Final status of the order after the pass
	Status Status
	// Whether the remainder was inserted into the book
	Stored bool
}

// newExecReport creates a new ExecReport for the given order
func newExecReport(order *Order) *ExecReport {
	return &ExecReport{
		Order:  order,
		Volume: order.TotalVolume(),
		Trades: make([]Trade, 0),
	}
}

// appendTrade adds one fill to the report
func (r *ExecReport) appendTrade(trade Trade) {
	r.Trades = append(r.Trades, trade)
}

// finish freezes the order's post-pass state into the report
func (r *ExecReport) finish() {
	r.Processed = r.Order.VolumeFilled()
	r.Left = r.Order.VolumeRemaining()
	r.Status = r.Order.Status()
}

// TradedVolume returns the sum of trade volumes in the report
func (r *ExecReport) TradedVolume() int64 {
	var total int64
	for _, t := range r.Trades {
		total += t.Volume
	}
	return total
}

// ToMessagingExecMessage converts the report to its wire representation
func (r *ExecReport) ToMessagingExecMessage() *messaging.ExecMessage {
	if r == nil || r.Order == nil {
		return nil
	}

	trades := make([]messaging.TradeMessage, 0, len(r.Trades))
	for _, t := range r.Trades {
		trades = append(trades, messaging.TradeMessage{
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Price:       t.Price,
			Volume:      t.Volume,
		})
	}

	return &messaging.ExecMessage{
		OrderID:         r.Order.ID(),
		Status:          r.Status.String(),
		ExecutedVolume:  r.Processed,
		RemainingVolume: r.Left,
		Stored:          r.Stored,
		Trades:          trades,
	}
}

// MarshalJSON implements json.Marshaler interface for ExecReport
func (r *ExecReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Order     *Order  `json:"order"`
		Trades    []Trade `json:"trades"`
		Processed int64   `json:"processed"`
		Left      int64   `json:"left"`
		Status    string  `json:"status"`
		Stored    bool    `json:"stored"`
	}{
		Order:     r.Order,
		Trades:    r.Trades,
		Processed: r.Processed,
		Left:      r.Left,
		Status:    r.Status.String(),
		Stored:    r.Stored,
	})
}
