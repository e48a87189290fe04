package messaging

import "context"

// Sender defines an interface for publishing execution reports.
// This keeps the core package decoupled from specific transports
// like Kafka in the queue package.
type Sender interface {
	SendExecMessage(ctx context.Context, msg *ExecMessage) error
	Close() error
}

// ExecMessage is the wire representation of one matching pass outcome
type ExecMessage struct {
	OrderID         uint64         `json:"orderId"`
	Status          string         `json:"status"`
	ExecutedVolume  int64          `json:"executedVolume"`
	RemainingVolume int64          `json:"remainingVolume"`
	Stored          bool           `json:"stored"`
	Trades          []TradeMessage `json:"trades"`
}

// TradeMessage represents a single trade execution
type TradeMessage struct {
	BuyOrderID  uint64 `json:"buyOrderId"`
	SellOrderID uint64 `json:"sellOrderId"`
	Price       int64  `json:"price"`
	Volume      int64  `json:"volume"`
}
