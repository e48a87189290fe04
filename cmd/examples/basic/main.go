package main

import (
	"context"
	"fmt"

	"github.com/erain9/tickmatch/pkg/backend/memory"
	"github.com/erain9/tickmatch/pkg/core"
	"github.com/erain9/tickmatch/pkg/db/queue"
	"github.com/erain9/tickmatch/pkg/messaging"
)

func main() {
	// Sink exec reports locally; this example has no broker
	queue.SetSender(messaging.NewMockSender())

	// Initialize order book with in-memory backend
	backend := memory.NewMemoryBackend()
	book := core.NewOrderBook(backend)
	engine := core.NewEngine(book)

	ctx := context.Background()

	// A sell limit order rests at 33 for 1000 units
	sellOrder, err := core.NewLimitOrder(1, core.Sell, 33, 1000)
	if err != nil {
		panic(err)
	}

	if _, err := engine.Match(ctx, sellOrder); err != nil {
		panic(err)
	}

	fmt.Printf("Created sell order: %d\n", sellOrder.ID())

	// A buy at the same price for 400 units fills partially against it
	buyOrder, err := core.NewLimitOrder(2, core.Buy, 33, 400)
	if err != nil {
		panic(err)
	}

	report, err := engine.Match(ctx, buyOrder)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Processing buy order: %d\n", buyOrder.ID())
	for _, trade := range report.Trades {
		fmt.Printf("Trade executed: buy=%d, sell=%d, price=%d, volume=%d\n",
			trade.BuyOrderID, trade.SellOrderID, trade.Price, trade.Volume)
	}
	fmt.Printf("Sell order remaining volume: %d\n", sellOrder.VolumeRemaining())
	fmt.Printf("Buy order processed volume: %d\n", report.Processed)

	// Summary
	fmt.Println("\nSummary of orders:")
	fmt.Printf("- Sell Order: ID=%d, Price=%d, Volume=%d/%d, Status=%s\n",
		sellOrder.ID(), sellOrder.Price(), sellOrder.VolumeRemaining(), sellOrder.TotalVolume(), sellOrder.Status())
	fmt.Printf("- Buy Order: ID=%d, Price=%d, Volume=%d/%d, Status=%s\n",
		buyOrder.ID(), buyOrder.Price(), buyOrder.VolumeRemaining(), buyOrder.TotalVolume(), buyOrder.Status())
}
