package server

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	redisClient "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erain9/tickmatch/pkg/backend/memory"
	"github.com/erain9/tickmatch/pkg/backend/redis"
	"github.com/erain9/tickmatch/pkg/core"
	"github.com/erain9/tickmatch/pkg/logging"
)

var (
	// ErrBookExists is returned when trying to create a book that already exists
	ErrBookExists = errors.New("order book with this name already exists")

	// ErrBookNotFound is returned when trying to access a non-existent book
	ErrBookNotFound = errors.New("order book not found")
)

// BookInfo contains metadata about an order book
type BookInfo struct {
	Name       string
	Backend    string
	CreatedAt  time.Time
	OrderCount int
}

// engineSlot pairs an engine with the mutex that serializes its matching
// passes. The engine requires serialized calls per book.
type engineSlot struct {
	mu     sync.Mutex
	engine *core.Engine
}

// EngineManager manages the matching engines of multiple instruments
type EngineManager struct {
	mu        sync.RWMutex
	engines   map[string]*engineSlot
	info      map[string]*BookInfo
	redisPool map[string]*redisClient.Client
	zapLogger *zap.Logger
}

// NewEngineManager creates a new EngineManager
func NewEngineManager() *EngineManager {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger = zap.NewNop()
	}

	return &EngineManager{
		engines:   make(map[string]*engineSlot),
		info:      make(map[string]*BookInfo),
		redisPool: make(map[string]*redisClient.Client),
		zapLogger: zapLogger,
	}
}

// CreateMemoryBook creates a new order book with in-memory backend
func (m *EngineManager) CreateMemoryBook(ctx context.Context, name string) (*BookInfo, error) {
	logger := logging.FromContext(ctx).With().Str("order_book", name).Logger()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.engines[name]; exists {
		logger.Error().Msg("Order book already exists")
		return nil, ErrBookExists
	}

	backend := memory.NewMemoryBackend()
	book := core.NewOrderBook(backend)

	m.engines[name] = &engineSlot{engine: core.NewEngine(book)}

	info := &BookInfo{
		Name:      name,
		Backend:   "memory",
		CreatedAt: time.Now(),
	}
	m.info[name] = info

	logger.Info().Str("backend", "memory").Msg("Created new memory order book")
	return info, nil
}

// CreateRedisBook creates a new order book with Redis backend
func (m *EngineManager) CreateRedisBook(ctx context.Context, name string, options map[string]string) (*BookInfo, error) {
	logger := logging.FromContext(ctx).With().Str("order_book", name).Logger()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.engines[name]; exists {
		logger.Error().Msg("Order book already exists")
		return nil, ErrBookExists
	}

	addr := "localhost:6379"
	password := ""
	dbStr := "0"
	prefix := name

	if val, ok := options["addr"]; ok && val != "" {
		addr = val
	}
	if val, ok := options["password"]; ok {
		password = val
	}
	if val, ok := options["db"]; ok && val != "" {
		dbStr = val
	}
	if val, ok := options["prefix"]; ok && val != "" {
		prefix = val
	}

	db, err := strconv.Atoi(dbStr)
	if err != nil {
		logger.Error().Err(err).Str("db", dbStr).Msg("Invalid Redis db option")
		return nil, err
	}

	redisKey := addr + ":" + dbStr

	var client *redisClient.Client
	var exists bool

	if client, exists = m.redisPool[redisKey]; !exists {
		client = redisClient.NewClient(&redisClient.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})

		if _, err := client.Ping(ctx).Result(); err != nil {
			logger.Error().Err(err).Msg("Failed to connect to Redis")
			return nil, err
		}

		m.redisPool[redisKey] = client
	}

	backend := redis.NewRedisBackend(client, prefix, m.zapLogger)
	book := core.NewOrderBook(backend)

	m.engines[name] = &engineSlot{engine: core.NewEngine(book)}

	info := &BookInfo{
		Name:      name,
		Backend:   "redis",
		CreatedAt: time.Now(),
	}
	m.info[name] = info

	logger.Info().
		Str("backend", "redis").
		Str("addr", addr).
		Str("db", dbStr).
		Str("prefix", prefix).
		Msg("Created new Redis order book")
	return info, nil
}

// GetBook retrieves an order book by name
func (m *EngineManager) GetBook(ctx context.Context, name string) (*core.OrderBook, *BookInfo, error) {
	logger := logging.FromContext(ctx).With().Str("order_book", name).Logger()

	m.mu.RLock()
	defer m.mu.RUnlock()

	slot, exists := m.engines[name]
	if !exists {
		logger.Debug().Msg("Order book not found")
		return nil, nil, ErrBookNotFound
	}

	return slot.engine.Book(), m.info[name], nil
}

func (m *EngineManager) slot(name string) (*engineSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	slot, exists := m.engines[name]
	if !exists {
		return nil, ErrBookNotFound
	}
	return slot, nil
}

// Submit runs one matching pass for the incoming order on the named
// book. Calls for the same book are serialized; different books match
// concurrently.
func (m *EngineManager) Submit(ctx context.Context, name string, order *core.Order) (*core.ExecReport, error) {
	logger := logging.FromContext(ctx).With().Str("order_book", name).Logger()

	slot, err := m.slot(name)
	if err != nil {
		logger.Debug().Msg("Order book not found")
		return nil, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	report, err := slot.engine.Match(ctx, order)
	if err != nil {
		logger.Error().Err(err).Uint64("order_id", order.ID()).Msg("Match failed")
		return nil, err
	}

	logger.Debug().
		Uint64("order_id", order.ID()).
		Str("status", report.Status.String()).
		Int("trades", len(report.Trades)).
		Msg("Order matched")
	return report, nil
}

// Cancel removes a resting order from the named book
func (m *EngineManager) Cancel(ctx context.Context, name string, orderID uint64) (*core.Order, error) {
	logger := logging.FromContext(ctx).With().Str("order_book", name).Logger()

	slot, err := m.slot(name)
	if err != nil {
		logger.Debug().Msg("Order book not found")
		return nil, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	order, err := slot.engine.Book().Cancel(orderID)
	if err != nil {
		logger.Debug().Uint64("order_id", orderID).Msg("Cancel miss")
		return nil, err
	}

	logger.Info().Uint64("order_id", orderID).Msg("Order canceled")
	return order, nil
}

// DeleteBook removes an order book
func (m *EngineManager) DeleteBook(ctx context.Context, name string) error {
	logger := logging.FromContext(ctx).With().Str("order_book", name).Logger()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.engines[name]; !exists {
		logger.Debug().Msg("Order book not found")
		return ErrBookNotFound
	}

	delete(m.engines, name)
	delete(m.info, name)

	logger.Info().Msg("Deleted order book")
	return nil
}

// ListBooks returns information about all order books
func (m *EngineManager) ListBooks(ctx context.Context) []*BookInfo {
	logger := logging.FromContext(ctx)

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*BookInfo, 0, len(m.info))
	for _, info := range m.info {
		result = append(result, info)
	}

	logger.Debug().Int("count", len(result)).Msg("Listed order books")
	return result
}

// Close closes all resources used by the manager
func (m *EngineManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.redisPool {
		client.Close()
	}

	m.engines = make(map[string]*engineSlot)
	m.info = make(map[string]*BookInfo)
	m.redisPool = make(map[string]*redisClient.Client)
}
