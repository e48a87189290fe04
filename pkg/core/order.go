package core

import (
	"encoding/json"
	"fmt"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side of the book
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func sideFromString(s string) (Side, error) {
	switch s {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return Sell, fmt.Errorf("unknown side %q", s)
	}
}

// Status tracks where an order is in its lifecycle
type Status int

// Order statuses
const (
	StatusNew Status = iota
	StatusPartiallyFilled
	StatusFilled
	StatusRested
	StatusCanceled
	StatusRejected
)

// String returns status as string
func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusRested:
		return "RESTED"
	case StatusCanceled:
		return "CANCELED"
	case StatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further transition is allowed from s
func (s Status) IsTerminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected
}

func statusFromString(s string) (Status, error) {
	switch s {
	case "NEW":
		return StatusNew, nil
	case "PARTIALLY_FILLED":
		return StatusPartiallyFilled, nil
	case "FILLED":
		return StatusFilled, nil
	case "RESTED":
		return StatusRested, nil
	case "CANCELED":
		return StatusCanceled, nil
	case "REJECTED":
		return StatusRejected, nil
	default:
		return StatusNew, fmt.Errorf("unknown status %q", s)
	}
}

// validTransitions is the order status state machine. Rejected is set by
// external validation before an order reaches the core; Canceled and
// Filled are terminal.
var validTransitions = map[Status][]Status{
	StatusNew:             {StatusPartiallyFilled, StatusFilled, StatusRested, StatusRejected},
	StatusPartiallyFilled: {StatusPartiallyFilled, StatusFilled, StatusCanceled},
	StatusRested:          {StatusPartiallyFilled, StatusFilled, StatusCanceled},
}

// Order stores information about one resting or incoming limit order.
// Only volumeFilled is stored; VolumeRemaining is derived from it, so
// volumeFilled + VolumeRemaining() == totalVolume holds by construction.
type Order struct {
	id              uint64
	side            Side
	price           int64
	totalVolume     int64
	concealedVolume int64
	volumeFilled    int64
	sequence        uint64
	status          Status
}

// NewLimitOrder creates a new limit order in status New
func NewLimitOrder(orderID uint64, side Side, price, volume int64) (*Order, error) {
	return NewIcebergOrder(orderID, side, price, volume, 0)
}

// NewIcebergOrder creates a new limit order with a concealed volume
// portion. The concealed portion affects disclosure only, never matching
// priority.
func NewIcebergOrder(orderID uint64, side Side, price, volume, concealed int64) (*Order, error) {
	if volume <= 0 {
		return nil, ErrInvalidVolume
	}

	if price <= 0 {
		return nil, ErrInvalidPrice
	}

	if concealed < 0 || concealed > volume {
		return nil, ErrInvalidVolume
	}

	return &Order{
		id:              orderID,
		side:            side,
		price:           price,
		totalVolume:     volume,
		concealedVolume: concealed,
		status:          StatusNew,
	}, nil
}

// ID returns the caller-assigned order identifier
func (o *Order) ID() uint64 {
	return o.id
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// Price returns the integer limit price
func (o *Order) Price() int64 {
	return o.price
}

// TotalVolume returns the original submitted quantity
func (o *Order) TotalVolume() int64 {
	return o.totalVolume
}

// ConcealedVolume returns the portion of total volume hidden from
// counterparties' view
func (o *Order) ConcealedVolume() int64 {
	return o.concealedVolume
}

// DisclosedVolume returns the visible portion of the remaining volume
func (o *Order) DisclosedVolume() int64 {
	disclosed := o.VolumeRemaining() - o.concealedVolume
	if disclosed < 0 {
		return 0
	}
	return disclosed
}

// VolumeFilled returns the cumulative matched quantity
func (o *Order) VolumeFilled() int64 {
	return o.volumeFilled
}

// VolumeRemaining returns the quantity still open for matching
func (o *Order) VolumeRemaining() int64 {
	return o.totalVolume - o.volumeFilled
}

// Sequence returns the arrival counter assigned at insertion into the
// book; zero until the order rests
func (o *Order) Sequence() uint64 {
	return o.sequence
}

// Status returns the current status of the Order
func (o *Order) Status() Status {
	return o.status
}

// Cancel transitions a resting order to Canceled
func (o *Order) Cancel() {
	o.transitionTo(StatusCanceled)
}

// fill applies one matched quantity to the order. The volume must have
// been derived as the minimum of both counterparties' remaining volumes,
// so it can never exceed VolumeRemaining here.
func (o *Order) fill(volume int64) {
	if volume <= 0 {
		panic(fmt.Sprintf("order %d: fill volume %d is not positive", o.id, volume))
	}
	if volume > o.VolumeRemaining() {
		panic(fmt.Sprintf("order %d: fill volume %d exceeds remaining %d", o.id, volume, o.VolumeRemaining()))
	}

	o.volumeFilled += volume
	if o.VolumeRemaining() == 0 {
		o.transitionTo(StatusFilled)
	} else {
		o.transitionTo(StatusPartiallyFilled)
	}
}

// rest records the book arrival sequence. An untouched order becomes
// Rested; a partially filled one keeps its status.
func (o *Order) rest(sequence uint64) {
	o.sequence = sequence
	if o.status == StatusNew {
		o.transitionTo(StatusRested)
	}
}

// transitionTo enforces the status state machine. An illegal transition
// is a bug in the caller, not a trading condition.
func (o *Order) transitionTo(next Status) {
	for _, allowed := range validTransitions[o.status] {
		if next == allowed {
			o.status = next
			return
		}
	}
	panic(fmt.Sprintf("order %d: illegal status transition %s -> %s", o.id, o.status, next))
}

type orderJSON struct {
	ID              uint64 `json:"id"`
	Side            string `json:"side"`
	Price           int64  `json:"price"`
	TotalVolume     int64  `json:"totalVolume"`
	ConcealedVolume int64  `json:"concealedVolume"`
	VolumeFilled    int64  `json:"volumeFilled"`
	Sequence        uint64 `json:"sequence"`
	Status          string `json:"status"`
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{
		ID:              o.id,
		Side:            o.side.String(),
		Price:           o.price,
		TotalVolume:     o.totalVolume,
		ConcealedVolume: o.concealedVolume,
		VolumeFilled:    o.volumeFilled,
		Sequence:        o.sequence,
		Status:          o.status.String(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Order
func (o *Order) UnmarshalJSON(data []byte) error {
	var oj orderJSON
	if err := json.Unmarshal(data, &oj); err != nil {
		return err
	}

	side, err := sideFromString(oj.Side)
	if err != nil {
		return err
	}

	status, err := statusFromString(oj.Status)
	if err != nil {
		return err
	}

	o.id = oj.ID
	o.side = side
	o.price = oj.Price
	o.totalVolume = oj.TotalVolume
	o.concealedVolume = oj.ConcealedVolume
	o.volumeFilled = oj.VolumeFilled
	o.sequence = oj.Sequence
	o.status = status

	return nil
}

// String implements Stringer interface
func (o *Order) String() string {
	j, _ := o.MarshalJSON()
	return string(j)
}
