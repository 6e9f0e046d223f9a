package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/matchbook/pkg/cache"
	"github.com/quantfeed/matchbook/pkg/db/queue"
	"github.com/quantfeed/matchbook/pkg/messaging"
	"github.com/quantfeed/matchbook/pkg/registry"
	"github.com/quantfeed/matchbook/pkg/sim"
	"github.com/quantfeed/matchbook/pkg/testutil"
)

const (
	redisAddr = "localhost:6379"
	kafkaAddr = "localhost:9092"
)

func TestMain(m *testing.M) {
	queue.Disable()
	os.Exit(m.Run())
}

func newUniverse() []registry.Instrument {
	instruments := sim.DefaultInstruments()
	universe := make([]registry.Instrument, 0, len(instruments))
	for _, inst := range instruments {
		universe = append(universe, registry.Instrument{
			Symbol:    inst.Symbol,
			Name:      inst.Name,
			BasePrice: fpdecimal.FromFloat(inst.BasePrice),
		})
	}
	return universe
}

// TestSimulatedMarketEndToEnd runs the simulator against a real
// registry for a short burst and checks the resulting book state.
func TestSimulatedMarketEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping end-to-end test in short mode")
	}

	reg := registry.NewInstrumentRegistry(newUniverse(), 100)

	cfg := &sim.Config{
		OrderRate:           500,
		WarmupOrders:        50,
		PriceUpdateInterval: 15 * time.Second,
		NoisePercent:        0.01,
		SpreadPercent:       0.001,
		VariationPercent:    0.002,
		MinQuantity:         50,
		MaxQuantity:         550,
	}
	simulator := sim.NewMarketSimulator(cfg, reg, sim.DefaultInstruments(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, simulator.Start(ctx))
	time.Sleep(2 * time.Second)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, simulator.Stop(stopCtx))

	snap, err := reg.Snapshot(reg.Active(), 20)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, snap.Metrics.TotalOrders, uint64(50), "warm-up seed plus generated flow")
	assert.Greater(t, snap.Metrics.TotalTrades, uint64(0), "generated flow should cross")

	book, err := reg.Book(reg.Active())
	require.NoError(t, err)
	assert.False(t, book.Frozen(), "no invariant violations under simulated load")

	// The quiescent book is never crossed.
	if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
		assert.True(t, snap.Bids[0].Price.LessThan(snap.Asks[0].Price),
			"bid=%s ask=%s", snap.Bids[0].Price, snap.Asks[0].Price)
	}
}

// TestSwitchDuringSimulation exercises the instrument switch while
// the simulator keeps generating orders.
func TestSwitchDuringSimulation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping end-to-end test in short mode")
	}

	reg := registry.NewInstrumentRegistry(newUniverse(), 100)

	cfg := &sim.Config{
		OrderRate:           200,
		WarmupOrders:        20,
		PriceUpdateInterval: 15 * time.Second,
		NoisePercent:        0.01,
		SpreadPercent:       0.001,
		VariationPercent:    0.002,
		MinQuantity:         50,
		MaxQuantity:         550,
	}
	simulator := sim.NewMarketSimulator(cfg, reg, sim.DefaultInstruments(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, simulator.Start(ctx))

	time.Sleep(500 * time.Millisecond)
	require.NoError(t, reg.SwitchActive(ctx, "NVDA"))
	time.Sleep(500 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, simulator.Stop(stopCtx))

	// Flow followed the switch.
	nvda, err := reg.Snapshot("NVDA", 20)
	require.NoError(t, err)
	assert.Greater(t, nvda.Metrics.TotalOrders, uint64(0))

	// The previous book kept its state.
	aapl, err := reg.Snapshot("AAPL", 20)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, aapl.Metrics.TotalOrders, uint64(20))
}

// TestSnapshotCacheIntegration needs a local Redis.
func TestSnapshotCacheIntegration(t *testing.T) {
	testutil.SkipIfRedisUnavailable(t, redisAddr)

	ctx := context.Background()
	cfg := cache.DefaultConfig()
	cfg.Addr = redisAddr
	cfg.KeyPrefix = "matchbook-test"

	snapCache, err := cache.NewSnapshotCache(ctx, cfg)
	require.NoError(t, err)
	defer snapCache.Close()

	payload := []byte(`{"symbol":"AAPL","bids":[],"asks":[]}`)
	require.NoError(t, snapCache.SetSnapshot(ctx, "AAPL", payload))

	got, ok, err := snapCache.GetSnapshot(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, got)

	require.NoError(t, snapCache.Invalidate(ctx, "AAPL"))
	_, ok, err = snapCache.GetSnapshot(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestTradePubSubIntegration needs a local Redis.
func TestTradePubSubIntegration(t *testing.T) {
	testutil.SkipIfRedisUnavailable(t, redisAddr)

	ctx := context.Background()
	cfg := cache.DefaultConfig()
	cfg.Addr = redisAddr
	cfg.KeyPrefix = "matchbook-test"

	snapCache, err := cache.NewSnapshotCache(ctx, cfg)
	require.NoError(t, err)
	defer snapCache.Close()

	sub := snapCache.SubscribeTrades(ctx, "AAPL")
	defer sub.Close()

	// Wait for the subscription to be established.
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	payload := []byte(`[{"id":1,"price":"175.000","quantity":"10.000"}]`)
	require.NoError(t, snapCache.PublishTrades(ctx, "AAPL", payload))

	select {
	case msg := <-sub.Channel():
		assert.JSONEq(t, string(payload), msg.Payload)
	case <-time.After(3 * time.Second):
		t.Fatal("trade message not delivered")
	}
}

// TestKafkaTradePublishing needs a local Kafka broker.
func TestKafkaTradePublishing(t *testing.T) {
	testutil.SkipIfKafkaUnavailable(t, kafkaAddr)

	sender, err := queue.NewQueueMessageSender()
	require.NoError(t, err)
	defer sender.Close()

	msg := &messaging.TradeBatchMessage{
		Symbol: "AAPL",
		Trades: []messaging.Trade{
			{TradeID: 1, Price: "175.000", Quantity: "10.000", BuyOrderID: 2, SellOrderID: 1, Timestamp: time.Now().UnixMilli()},
		},
	}
	require.NoError(t, sender.SendTradeMessage(context.Background(), msg))
}
