package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/nikolaydubina/fpdecimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quantfeed/matchbook/pkg/core"
	"github.com/quantfeed/matchbook/pkg/db/queue"
	"github.com/quantfeed/matchbook/pkg/registry"
	"github.com/quantfeed/matchbook/pkg/sim"
)

func main() {
	numWorkers := flag.Int("workers", 8, "Concurrent submitter goroutines")
	ordersPerWorker := flag.Int("orders", 100000, "Orders submitted per worker")
	maxRate := flag.Float64("rate", 0, "Total orders per second (0 = unlimited)")
	symbol := flag.String("symbol", "AAPL", "Instrument to load")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// The load test measures the matching path, not Kafka.
	queue.Disable()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		logger.Info("Received interrupt signal, stopping")
		cancel()
	}()

	instruments := sim.DefaultInstruments()
	universe := make([]registry.Instrument, 0, len(instruments))
	var basePrice float64
	for _, inst := range instruments {
		universe = append(universe, registry.Instrument{
			Symbol:    inst.Symbol,
			Name:      inst.Name,
			BasePrice: fpdecimal.FromFloat(inst.BasePrice),
		})
		if inst.Symbol == *symbol {
			basePrice = inst.BasePrice
		}
	}
	if basePrice == 0 {
		logger.Fatal("Unknown symbol", zap.String("symbol", *symbol))
	}

	reg := registry.NewInstrumentRegistry(universe, 0)

	var limiter *rate.Limiter
	if *maxRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(*maxRate), int(*maxRate))
	}

	// Latencies in microseconds, up to 10 seconds.
	hist := hdrhistogram.New(1, 10_000_000, 3)
	var histMu sync.Mutex
	var submitted, matched, failed atomic.Int64

	logger.Info("Starting load test",
		zap.Int("workers", *numWorkers),
		zap.Int("orders_per_worker", *ordersPerWorker),
		zap.String("symbol", *symbol))

	start := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < *numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(workerID) + time.Now().UnixNano()))
			local := hdrhistogram.New(1, 10_000_000, 3)

			for j := 0; j < *ordersPerWorker; j++ {
				if ctx.Err() != nil {
					break
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						break
					}
				}

				side := core.Buy
				if rng.Float64() < 0.5 {
					side = core.Sell
				}
				price := basePrice + (rng.Float64()-0.5)*basePrice*0.002
				qty := 1 + rng.Intn(100)

				begin := time.Now()
				_, trades, err := reg.Submit(ctx, *symbol, side,
					fpdecimal.FromInt(qty), fpdecimal.FromFloat(price))
				elapsed := time.Since(begin)

				if err != nil {
					failed.Add(1)
					continue
				}
				submitted.Add(1)
				matched.Add(int64(len(trades)))
				_ = local.RecordValue(elapsed.Microseconds())
			}

			histMu.Lock()
			hist.Merge(local)
			histMu.Unlock()
		}(i)
	}

	wg.Wait()
	duration := time.Since(start)

	snap, _ := reg.Snapshot(*symbol, 1)
	logger.Info("Load test complete",
		zap.Duration("duration", duration),
		zap.Int64("orders_submitted", submitted.Load()),
		zap.Int64("trades", matched.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Float64("orders_per_sec", float64(submitted.Load())/duration.Seconds()),
		zap.Uint64("book_total_trades", snap.Metrics.TotalTrades))

	logger.Info("Submit latency (us)",
		zap.Float64("mean", hist.Mean()),
		zap.Int64("p50", hist.ValueAtQuantile(50)),
		zap.Int64("p95", hist.ValueAtQuantile(95)),
		zap.Int64("p99", hist.ValueAtQuantile(99)),
		zap.Int64("p999", hist.ValueAtQuantile(99.9)),
		zap.Int64("max", hist.Max()))
}
