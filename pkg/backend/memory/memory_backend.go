package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/erain9/tickmatch/pkg/core"
)

// OrderQueue represents a price level in the order book. Orders are kept
// in arrival order so time priority inside a level is the slice order.
type OrderQueue struct {
	orders []*core.Order
	price  int64
	next   *OrderQueue
	prev   *OrderQueue
}

// NewOrderQueue creates a new OrderQueue with the given price
func NewOrderQueue(price int64) *OrderQueue {
	return &OrderQueue{
		orders: make([]*core.Order, 0, 4),
		price:  price,
	}
}

// OrderSide represents one side (bid/ask) of the order book. The linked
// list is kept sorted best price first; descending is true for bids.
type OrderSide struct {
	sync.RWMutex
	head       *OrderQueue
	tail       *OrderQueue
	levels     map[int64]*OrderQueue
	descending bool
}

// NewOrderSide creates an order side. Pass descending=true for bids so
// the head holds the highest price.
func NewOrderSide(descending bool) *OrderSide {
	return &OrderSide{
		levels:     make(map[int64]*OrderQueue),
		descending: descending,
	}
}

// String implements fmt.Stringer interface
func (os *OrderSide) String() string {
	os.RLock()
	defer os.RUnlock()

	sb := strings.Builder{}
	current := os.head

	for current != nil {
		var volume int64
		for _, order := range current.orders {
			volume += order.VolumeRemaining()
		}
		sb.WriteString(fmt.Sprintf("\n%d -> orders: %d, volume: %d", current.price, len(current.orders), volume))
		current = current.next
	}

	return sb.String()
}

// Prices returns all prices in the order side, best first
func (os *OrderSide) Prices() []int64 {
	os.RLock()
	defer os.RUnlock()

	prices := make([]int64, 0, len(os.levels))
	current := os.head

	for current != nil {
		prices = append(prices, current.price)
		current = current.next
	}

	return prices
}

// Orders returns the orders at a given price level in time priority
func (os *OrderSide) Orders(price int64) []*core.Order {
	os.RLock()
	defer os.RUnlock()

	queue, exists := os.levels[price]
	if !exists {
		return []*core.Order{}
	}

	orders := make([]*core.Order, len(queue.orders))
	copy(orders, queue.orders)

	return orders
}

// better reports whether price a sorts ahead of price b on this side
func (os *OrderSide) better(a, b int64) bool {
	if os.descending {
		return a > b
	}
	return a < b
}

// append adds an order to its price level, creating the level if needed
func (os *OrderSide) append(order *core.Order) {
	os.Lock()
	defer os.Unlock()

	price := order.Price()

	if q, ok := os.levels[price]; ok {
		q.orders = append(q.orders, order)
		return
	}

	newQueue := NewOrderQueue(price)
	newQueue.orders = append(newQueue.orders, order)
	os.levels[price] = newQueue

	if os.head == nil {
		os.head = newQueue
		os.tail = newQueue
		return
	}

	if os.better(price, os.head.price) {
		// Insert at head
		newQueue.next = os.head
		os.head.prev = newQueue
		os.head = newQueue
	} else if !os.better(price, os.tail.price) {
		// Insert at tail
		newQueue.prev = os.tail
		os.tail.next = newQueue
		os.tail = newQueue
	} else {
		// Insert in middle
		current := os.head
		for current != nil && !os.better(price, current.price) {
			current = current.next
		}
		newQueue.next = current
		newQueue.prev = current.prev
		current.prev.next = newQueue
		current.prev = newQueue
	}
}

// remove takes an order out of its price level, dropping the level when
// it empties
func (os *OrderSide) remove(order *core.Order) bool {
	os.Lock()
	defer os.Unlock()

	queue, ok := os.levels[order.Price()]
	if !ok {
		return false
	}

	idx := -1
	for i, o := range queue.orders {
		if o.ID() == order.ID() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	queue.orders = append(queue.orders[:idx], queue.orders[idx+1:]...)

	if len(queue.orders) == 0 {
		delete(os.levels, queue.price)

		if queue.prev != nil {
			queue.prev.next = queue.next
		} else {
			os.head = queue.next
		}

		if queue.next != nil {
			queue.next.prev = queue.prev
		} else {
			os.tail = queue.prev
		}
	}

	return true
}

// MemoryBackend implements the BookBackend interface with in-memory storage
type MemoryBackend struct {
	sync.RWMutex
	orders map[uint64]*core.Order
	bids   *OrderSide
	asks   *OrderSide
}

// NewMemoryBackend creates new instance of MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		orders: make(map[uint64]*core.Order),
		bids:   NewOrderSide(true),
		asks:   NewOrderSide(false),
	}
}

// GetOrder retrieves an order by ID
func (b *MemoryBackend) GetOrder(orderID uint64) *core.Order {
	b.RLock()
	defer b.RUnlock()
	return b.orders[orderID]
}

// StoreOrder stores an order
func (b *MemoryBackend) StoreOrder(order *core.Order) error {
	b.Lock()
	defer b.Unlock()

	if _, exists := b.orders[order.ID()]; exists {
		return core.ErrDuplicateID
	}

	b.orders[order.ID()] = order
	return nil
}

// UpdateOrder updates an existing order. Order pointers are shared with
// callers, so the map entry already reflects the new state.
func (b *MemoryBackend) UpdateOrder(order *core.Order) error {
	b.Lock()
	defer b.Unlock()

	if _, exists := b.orders[order.ID()]; !exists {
		return core.ErrNotFound
	}

	b.orders[order.ID()] = order
	return nil
}

// DeleteOrder deletes an order
func (b *MemoryBackend) DeleteOrder(orderID uint64) {
	b.Lock()
	defer b.Unlock()

	delete(b.orders, orderID)
}

// AppendToSide adds an order to the specified side
func (b *MemoryBackend) AppendToSide(side core.Side, order *core.Order) {
	b.side(side).append(order)
}

// RemoveFromSide removes an order from the specified side
func (b *MemoryBackend) RemoveFromSide(side core.Side, order *core.Order) bool {
	return b.side(side).remove(order)
}

// GetBids returns the bid side of the order book for iteration
func (b *MemoryBackend) GetBids() core.SideView {
	return b.bids
}

// GetAsks returns the ask side of the order book for iteration
func (b *MemoryBackend) GetAsks() core.SideView {
	return b.asks
}

func (b *MemoryBackend) side(side core.Side) *OrderSide {
	if side == core.Buy {
		return b.bids
	}
	return b.asks
}

// Ensure interface compliance
var (
	_ core.BookBackend = (*MemoryBackend)(nil)
	_ core.SideView    = (*OrderSide)(nil)
)
