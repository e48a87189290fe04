package core

import (
	"fmt"
	"strings"
)

// OrderBook holds the resting orders of one instrument, partitioned into
// a bid side and an ask side, each kept in price-then-time priority by a
// pluggable backend. The book exclusively owns every resting Order it
// holds; the matching engine borrows them only for the duration of one
// matching pass.
type OrderBook struct {
	backend BookBackend
	nextSeq uint64
}

// NewOrderBook creates an OrderBook object with a backend
func NewOrderBook(backend BookBackend) *OrderBook {
	return &OrderBook{
		backend: backend,
	}
}

// GetOrder returns a resting Order by id, or nil
func (ob *OrderBook) GetOrder(orderID uint64) *Order {
	return ob.backend.GetOrder(orderID)
}

// Contains reports whether an order with the given id rests anywhere in
// the book
func (ob *OrderBook) Contains(orderID uint64) bool {
	return ob.backend.GetOrder(orderID) != nil
}

// Insert adds an order to its side of the book, assigning the next
// arrival sequence number. Returns ErrDuplicateID if the id already
// rests anywhere in the book and ErrInvalidState if the order has no
// remaining volume.
func (ob *OrderBook) Insert(order *Order) error {
	if order.VolumeRemaining() <= 0 {
		return ErrInvalidState
	}

	if err := ob.backend.StoreOrder(order); err != nil {
		return err
	}

	ob.nextSeq++
	order.rest(ob.nextSeq)

	// Persist the rested status and sequence; backends with external
	// storage would otherwise hand back pre-rest copies
	if err := ob.backend.UpdateOrder(order); err != nil {
		return err
	}

	ob.backend.AppendToSide(order.Side(), order)
	return nil
}

// Update persists the current state of a resting order. Backends that
// share order pointers treat this as a no-op beyond an existence check;
// backends with external storage rewrite the stored record.
func (ob *OrderBook) Update(order *Order) error {
	return ob.backend.UpdateOrder(order)
}

// Remove excises an order from the book and returns it. ErrNotFound is a
// normal outcome (late cancel race, order already fully matched), not a
// defect.
func (ob *OrderBook) Remove(orderID uint64) (*Order, error) {
	order := ob.backend.GetOrder(orderID)
	if order == nil {
		return nil, ErrNotFound
	}

	ob.backend.RemoveFromSide(order.Side(), order)
	ob.backend.DeleteOrder(orderID)
	return order, nil
}

// Cancel removes an order from the book and marks it Canceled
func (ob *OrderBook) Cancel(orderID uint64) (*Order, error) {
	order, err := ob.Remove(orderID)
	if err != nil {
		return nil, err
	}

	order.Cancel()
	return order, nil
}

// PeekTop returns the best-priority resting order on a side without
// mutating the book, or nil when the side is empty
func (ob *OrderBook) PeekTop(side Side) *Order {
	view := ob.sideView(side)
	for _, price := range view.Prices() {
		orders := view.Orders(price)
		if len(orders) > 0 {
			return orders[0]
		}
	}
	return nil
}

// BestOpposite returns the resting orders on the side opposite `side`
// that are price-eligible against limitPrice, in strict price-then-time
// priority. The slice is a snapshot of priority order taken before any
// mutation; the orders themselves are shared, so volume changes made by
// the caller remain visible through it.
func (ob *OrderBook) BestOpposite(side Side, limitPrice int64) []*Order {
	view := ob.sideView(side.Opposite())

	var eligible []*Order
	for _, price := range view.Prices() {
		if !priceMatches(side, limitPrice, price) {
			// Prices are yielded best-first, so no worse level can match
			break
		}
		eligible = append(eligible, view.Orders(price)...)
	}
	return eligible
}

// priceMatches checks if a resting book price is eligible against the
// incoming order's limit price
func priceMatches(side Side, limitPrice, bookPrice int64) bool {
	if side == Buy {
		return bookPrice <= limitPrice
	}
	return bookPrice >= limitPrice
}

func (ob *OrderBook) sideView(side Side) SideView {
	if side == Buy {
		return ob.backend.GetBids()
	}
	return ob.backend.GetAsks()
}

// String implements fmt.Stringer interface
func (ob *OrderBook) String() string {
	builder := strings.Builder{}

	builder.WriteString("Ask:")
	if stringer, ok := ob.backend.GetAsks().(fmt.Stringer); ok {
		builder.WriteString(stringer.String())
	}
	builder.WriteString("\n")

	builder.WriteString("Bid:")
	if stringer, ok := ob.backend.GetBids().(fmt.Stringer); ok {
		builder.WriteString(stringer.String())
	}
	builder.WriteString("\n")

	return builder.String()
}
