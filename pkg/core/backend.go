package core

// BookBackend defines the storage interface for one instrument's book
type BookBackend interface {
	// Order operations
	GetOrder(orderID uint64) *Order
	StoreOrder(order *Order) error
	UpdateOrder(order *Order) error
	DeleteOrder(orderID uint64)

	// Side operations
	AppendToSide(side Side, order *Order)
	RemoveFromSide(side Side, order *Order) bool

	// Get sides for iterating
	GetBids() SideView
	GetAsks() SideView
}

// SideView is a read view over one side of the book. Prices are yielded
// best-first (descending for bids, ascending for asks); orders within a
// price level are yielded in arrival-sequence order.
type SideView interface {
	Prices() []int64
	Orders(price int64) []*Order
}
