package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/quantfeed/matchbook/pkg/core"
	"github.com/quantfeed/matchbook/pkg/db/queue"
)

func main() {
	// The example runs without a Kafka broker.
	queue.Disable()

	book := core.NewOrderBook("AAPL", 100)
	ctx := context.Background()

	// Rest a sell limit order.
	sellOrder, err := core.NewLimitOrder(1, core.Sell,
		"AAPL", fpdecimal.FromFloat(10.0), fpdecimal.FromFloat(175.0), time.Now())
	if err != nil {
		panic(err)
	}
	if _, err := book.Submit(ctx, sellOrder); err != nil {
		panic(err)
	}
	fmt.Printf("Created sell order: %d\n", sellOrder.ID())

	// A crossing buy order trades against it.
	buyOrder, err := core.NewLimitOrder(2, core.Buy,
		"AAPL", fpdecimal.FromFloat(5.0), fpdecimal.FromFloat(175.0), time.Now())
	if err != nil {
		panic(err)
	}
	trades, err := book.Submit(ctx, buyOrder)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Processing buy order: %d\n", buyOrder.ID())
	for _, trade := range trades {
		fmt.Printf("Trade executed: %s @ %s (buy=%d sell=%d)\n",
			trade.Quantity, trade.Price, trade.BuyOrderID, trade.SellOrderID)
	}

	fmt.Println("\nSummary of orders:")
	fmt.Printf("- Sell Order: ID=%d, Price=%s, Quantity=%s/%s\n",
		sellOrder.ID(), sellOrder.Price(), sellOrder.Quantity(), sellOrder.OriginalQty())
	fmt.Printf("- Buy Order: ID=%d, Price=%s, Quantity=%s/%s\n",
		buyOrder.ID(), buyOrder.Price(), buyOrder.Quantity(), buyOrder.OriginalQty())

	if best := book.BestAsk(); best != nil {
		fmt.Printf("\nBest ask after matching: %s x %s\n", best.Price, best.Quantity)
	}
}
