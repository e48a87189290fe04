package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erain9/tickmatch/pkg/core"
)

// RedisOptions represents configuration options for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

var defaultOptions = &RedisOptions{
	Addr:     "localhost:6379",
	Password: "",
	DB:       0,
}

// SetDefaultRedisOptions sets the default options for Redis connections
func SetDefaultRedisOptions(options *RedisOptions) {
	defaultOptions = options
}

// GetRedisClient creates a new Redis client using the default options
func GetRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     defaultOptions.Addr,
		Password: defaultOptions.Password,
		DB:       defaultOptions.DB,
	})
}

// RedisBackend implements the BookBackend interface with Redis storage.
// Each price level is a LIST of order ids in arrival order, so time
// priority inside a level is the list order. Price levels themselves
// live in a ZSET scored by price.
type RedisBackend struct {
	sync.RWMutex
	client    *redis.Client
	ctx       context.Context
	keyPrefix string
	bidsKey   string
	asksKey   string
	logger    *zap.Logger
}

// NewRedisBackend creates a new instance of RedisBackend
func NewRedisBackend(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisBackend {
	return &RedisBackend{
		client:    client,
		ctx:       context.Background(),
		keyPrefix: keyPrefix,
		bidsKey:   fmt.Sprintf("%s:bids", keyPrefix),
		asksKey:   fmt.Sprintf("%s:asks", keyPrefix),
		logger:    logger,
	}
}

// GetOrder retrieves an order from Redis by its ID
func (b *RedisBackend) GetOrder(orderID uint64) *core.Order {
	b.RLock()
	defer b.RUnlock()

	key := b.getOrderKey(orderID)
	data, err := b.client.Get(b.ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			b.logger.Error("failed to get order",
				zap.Uint64("orderID", orderID),
				zap.Error(err))
		}
		return nil
	}

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		b.logger.Error("failed to unmarshal order",
			zap.Uint64("orderID", orderID),
			zap.Error(err))
		return nil
	}

	return &order
}

// StoreOrder stores an order in Redis
func (b *RedisBackend) StoreOrder(order *core.Order) error {
	key := b.getOrderKey(order.ID())
	exists, err := b.client.Exists(b.ctx, key).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return core.ErrDuplicateID
	}

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	return b.client.Set(b.ctx, key, data, 0).Err()
}

// UpdateOrder updates an existing order in Redis
func (b *RedisBackend) UpdateOrder(order *core.Order) error {
	key := b.getOrderKey(order.ID())
	exists, err := b.client.Exists(b.ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return core.ErrNotFound
	}

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	return b.client.Set(b.ctx, key, data, 0).Err()
}

// DeleteOrder deletes an order from Redis
func (b *RedisBackend) DeleteOrder(orderID uint64) {
	key := b.getOrderKey(orderID)
	b.client.Del(b.ctx, key)
}

// AppendToSide adds an order to the specified side of the order book
func (b *RedisBackend) AppendToSide(side core.Side, order *core.Order) {
	b.Lock()
	defer b.Unlock()

	pipe := b.client.Pipeline()
	sideKey := b.getSideKey(side)
	priceKey := b.getPriceKey(sideKey, order.Price())

	// Register the price level; ZAdd is idempotent for existing members
	pipe.ZAdd(b.ctx, sideKey, redis.Z{
		Score:  float64(order.Price()),
		Member: formatPrice(order.Price()),
	})

	// RPUSH keeps the level in arrival order
	pipe.RPush(b.ctx, priceKey, formatID(order.ID()))

	if _, err := pipe.Exec(b.ctx); err != nil {
		b.logger.Error("failed to execute pipeline",
			zap.Uint64("order_id", order.ID()),
			zap.Error(err))
	}
}

// RemoveFromSide removes an order from the specified side of the order book
func (b *RedisBackend) RemoveFromSide(side core.Side, order *core.Order) bool {
	b.Lock()
	defer b.Unlock()

	sideKey := b.getSideKey(side)
	priceKey := b.getPriceKey(sideKey, order.Price())

	removed, err := b.client.LRem(b.ctx, priceKey, 1, formatID(order.ID())).Result()
	if err != nil {
		b.logger.Error("failed to remove order from price level",
			zap.Uint64("orderID", order.ID()),
			zap.String("side", side.String()),
			zap.Error(err))
		return false
	}
	if removed == 0 {
		return false
	}

	// Drop the level when it empties
	remaining, err := b.client.LLen(b.ctx, priceKey).Result()
	if err == nil && remaining == 0 {
		pipe := b.client.Pipeline()
		pipe.ZRem(b.ctx, sideKey, formatPrice(order.Price()))
		pipe.Del(b.ctx, priceKey)
		if _, err := pipe.Exec(b.ctx); err != nil {
			b.logger.Error("failed to clean up empty price level",
				zap.Uint64("orderID", order.ID()),
				zap.Error(err))
		}
	}

	return true
}

// GetBids returns the bid side of the order book for iteration
func (b *RedisBackend) GetBids() core.SideView {
	return &RedisSide{
		backend: b,
		sideKey: b.bidsKey,
		reverse: true,
	}
}

// GetAsks returns the ask side of the order book for iteration
func (b *RedisBackend) GetAsks() core.SideView {
	return &RedisSide{
		backend: b,
		sideKey: b.asksKey,
		reverse: false,
	}
}

// RedisSide represents one side (bid/ask) of the Redis order book
type RedisSide struct {
	backend *RedisBackend
	sideKey string
	reverse bool // true for bids: highest price first
}

// String implements fmt.Stringer interface
func (rs *RedisSide) String() string {
	sb := strings.Builder{}

	for _, price := range rs.Prices() {
		priceKey := rs.backend.getPriceKey(rs.sideKey, price)
		count, err := rs.backend.client.LLen(rs.backend.ctx, priceKey).Result()
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n%d -> orders: %d", price, count))
	}

	return sb.String()
}

// Prices returns all prices in the order side, best first
func (rs *RedisSide) Prices() []int64 {
	var members []string
	var err error

	if rs.reverse {
		members, err = rs.backend.client.ZRevRange(rs.backend.ctx, rs.sideKey, 0, -1).Result()
	} else {
		members, err = rs.backend.client.ZRange(rs.backend.ctx, rs.sideKey, 0, -1).Result()
	}

	if err != nil {
		return []int64{}
	}

	prices := make([]int64, 0, len(members))
	for _, member := range members {
		price, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		prices = append(prices, price)
	}

	return prices
}

// Orders returns all orders at a given price level in time priority
func (rs *RedisSide) Orders(price int64) []*core.Order {
	priceKey := rs.backend.getPriceKey(rs.sideKey, price)

	orderIDs, err := rs.backend.client.LRange(rs.backend.ctx, priceKey, 0, -1).Result()
	if err != nil {
		return []*core.Order{}
	}

	orders := make([]*core.Order, 0, len(orderIDs))
	for _, idStr := range orderIDs {
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		order := rs.backend.GetOrder(id)
		if order != nil {
			orders = append(orders, order)
		}
	}

	return orders
}

// Helper methods for key generation
func (b *RedisBackend) getSideKey(side core.Side) string {
	if side == core.Buy {
		return b.bidsKey
	}
	return b.asksKey
}

func (b *RedisBackend) getOrderKey(orderID uint64) string {
	return fmt.Sprintf("%s:order:%d", b.keyPrefix, orderID)
}

func (b *RedisBackend) getPriceKey(sideKey string, price int64) string {
	return fmt.Sprintf("%s:%d", sideKey, price)
}

func formatPrice(price int64) string {
	return strconv.FormatInt(price, 10)
}

func formatID(orderID uint64) string {
	return strconv.FormatUint(orderID, 10)
}

// Close closes the Redis client and cleans up resources
func (b *RedisBackend) Close() error {
	b.Lock()
	defer b.Unlock()
	return b.client.Close()
}

// WithContext returns a new RedisBackend with the given context
func (b *RedisBackend) WithContext(ctx context.Context) *RedisBackend {
	if ctx == nil {
		ctx = context.Background()
	}
	clone := *b
	clone.ctx = ctx
	return &clone
}

// Ensure interface compliance
var (
	_ core.BookBackend = (*RedisBackend)(nil)
	_ core.SideView    = (*RedisSide)(nil)
)
