package feedsim

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erain9/tickmatch/pkg/core"
)

// Generator produces a reproducible stream of random limit orders. Safe
// for use from multiple workers.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	nextID uint64

	priceMid   int64
	priceBand  int64
	maxVolume  int64
	icebergPct int
}

// NewGenerator creates a generator from the simulator config. A zero
// seed uses the current time, making each run unique.
func NewGenerator(cfg *Config) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		rng:        rand.New(rand.NewSource(seed)),
		priceMid:   cfg.PriceMid,
		priceBand:  cfg.PriceBand,
		maxVolume:  cfg.MaxVolume,
		icebergPct: cfg.IcebergPct,
	}
}

// Next returns the next random order. IDs are unique across the run.
func (g *Generator) Next() *core.Order {
	id := atomic.AddUint64(&g.nextID, 1)

	g.mu.Lock()
	side := core.Buy
	if g.rng.Float64() < 0.5 {
		side = core.Sell
	}

	price := g.priceMid
	if g.priceBand > 0 {
		price += g.rng.Int63n(2*g.priceBand+1) - g.priceBand
	}

	volume := g.rng.Int63n(g.maxVolume) + 1

	var concealed int64
	if g.icebergPct > 0 && g.rng.Intn(100) < g.icebergPct {
		concealed = volume / 2
	}
	g.mu.Unlock()

	if concealed > 0 {
		order, err := core.NewIcebergOrder(id, side, price, volume, concealed)
		if err == nil {
			return order
		}
	}

	order, err := core.NewLimitOrder(id, side, price, volume)
	if err != nil {
		// Unreachable with a validated config
		panic(err)
	}
	return order
}
