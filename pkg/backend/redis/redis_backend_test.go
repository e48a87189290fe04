package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	redisClient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erain9/tickmatch/pkg/core"
)

// setupBackend connects to the Redis named by REDIS_ADDR. Tests are
// skipped when the variable is unset so the suite stays broker-free by
// default.
func setupBackend(t *testing.T) *RedisBackend {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping Redis backend tests")
	}

	client := redisClient.NewClient(&redisClient.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err(), "Redis at %s not reachable", addr)

	// Unique prefix per run so stale keys from earlier runs cannot leak in
	prefix := fmt.Sprintf("tickmatch-test-%d", time.Now().UnixNano())
	backend := NewRedisBackend(client, prefix, zap.NewNop())
	t.Cleanup(func() {
		keys, err := client.Keys(context.Background(), prefix+"*").Result()
		if err == nil && len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
		client.Close()
	})

	return backend
}

func mustOrder(t *testing.T, id uint64, side core.Side, price, volume int64) *core.Order {
	t.Helper()
	order, err := core.NewLimitOrder(id, side, price, volume)
	require.NoError(t, err)
	return order
}

func TestRedisStoreGetDelete(t *testing.T) {
	backend := setupBackend(t)

	order := mustOrder(t, 1, core.Buy, 100, 10)
	require.NoError(t, backend.StoreOrder(order))

	got := backend.GetOrder(1)
	require.NotNil(t, got)
	assert.Equal(t, order.ID(), got.ID())
	assert.Equal(t, order.Price(), got.Price())
	assert.Equal(t, order.TotalVolume(), got.TotalVolume())

	assert.ErrorIs(t, backend.StoreOrder(order), core.ErrDuplicateID)

	backend.DeleteOrder(1)
	assert.Nil(t, backend.GetOrder(1))
}

func TestRedisUpdateOrder(t *testing.T) {
	backend := setupBackend(t)

	order := mustOrder(t, 1, core.Buy, 100, 10)
	assert.ErrorIs(t, backend.UpdateOrder(order), core.ErrNotFound)

	require.NoError(t, backend.StoreOrder(order))
	require.NoError(t, backend.UpdateOrder(order))
}

func TestRedisSidePriorityOrder(t *testing.T) {
	backend := setupBackend(t)

	// Two asks at one level plus a better one arriving later
	for _, spec := range []struct {
		id    uint64
		price int64
	}{
		{1, 100}, {2, 100}, {3, 95},
	} {
		order := mustOrder(t, spec.id, core.Sell, spec.price, 10)
		require.NoError(t, backend.StoreOrder(order))
		backend.AppendToSide(core.Sell, order)
	}

	asks := backend.GetAsks()
	assert.Equal(t, []int64{95, 100}, asks.Prices())

	level := asks.Orders(100)
	require.Len(t, level, 2)
	assert.Equal(t, uint64(1), level[0].ID())
	assert.Equal(t, uint64(2), level[1].ID())
}

func TestRedisRemoveFromSide(t *testing.T) {
	backend := setupBackend(t)

	first := mustOrder(t, 1, core.Buy, 100, 10)
	second := mustOrder(t, 2, core.Buy, 100, 10)
	for _, order := range []*core.Order{first, second} {
		require.NoError(t, backend.StoreOrder(order))
		backend.AppendToSide(core.Buy, order)
	}

	assert.True(t, backend.RemoveFromSide(core.Buy, first))
	level := backend.GetBids().Orders(100)
	require.Len(t, level, 1)
	assert.Equal(t, uint64(2), level[0].ID())

	// Level disappears with its last order
	assert.True(t, backend.RemoveFromSide(core.Buy, second))
	assert.Empty(t, backend.GetBids().Prices())

	assert.False(t, backend.RemoveFromSide(core.Buy, second))
}

func TestRedisBookMatchFlow(t *testing.T) {
	backend := setupBackend(t)
	book := core.NewOrderBook(backend)

	sell := mustOrder(t, 1, core.Sell, 100, 15)
	require.NoError(t, book.Insert(sell))

	eligible := book.BestOpposite(core.Buy, 100)
	require.Len(t, eligible, 1)
	assert.Equal(t, uint64(1), eligible[0].ID())

	top := book.PeekTop(core.Sell)
	require.NotNil(t, top)
	assert.Equal(t, int64(100), top.Price())
}
