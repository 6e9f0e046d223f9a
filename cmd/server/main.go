package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"

	"github.com/quantfeed/matchbook/config"
	"github.com/quantfeed/matchbook/pkg/cache"
	"github.com/quantfeed/matchbook/pkg/db/queue"
	"github.com/quantfeed/matchbook/pkg/messaging/kafka"
	"github.com/quantfeed/matchbook/pkg/otel"
	"github.com/quantfeed/matchbook/pkg/registry"
	"github.com/quantfeed/matchbook/pkg/server"
	"github.com/quantfeed/matchbook/pkg/sim"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}

	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.Server.LogFormat == "pretty" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	defer cancel()

	// Initialize OpenTelemetry
	cleanup, err := otel.Init(otel.Config{
		ServiceName:      "matchbook",
		ServiceVersion:   "1.0.0",
		Endpoint:         cfg.Server.CollectorEndpoint,
		CollectorEnabled: cfg.Server.CollectorEnabled,
	})
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer cleanup()

	if cfg.Server.CollectorEnabled {
		if err := otel.StartRuntimeMetrics(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start runtime metrics")
		}
	}

	// Build the instrument universe and one book per symbol.
	instruments := sim.DefaultInstruments()
	universe := make([]registry.Instrument, 0, len(instruments))
	for _, inst := range instruments {
		universe = append(universe, registry.Instrument{
			Symbol:    inst.Symbol,
			Name:      inst.Name,
			BasePrice: fpdecimal.FromFloat(inst.BasePrice),
		})
	}
	reg := registry.NewInstrumentRegistry(universe, cfg.Server.TradeLogCapacity)
	logger.Info().Int("instruments", len(universe)).Str("active", reg.Active()).Msg("Instrument registry ready")

	// Kafka consumer pretty-prints published trade batches in dev.
	if cfg.Kafka.Enabled {
		kafkaConsumer, err := kafka.SetupConsumer(ctx, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Kafka consumer unavailable")
		} else if kafkaConsumer != nil {
			defer kafkaConsumer.Close()
		}
	} else {
		queue.Disable()
	}

	// Optional Redis snapshot cache.
	var snapCache *cache.SnapshotCache
	if cfg.Redis.Enabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.Addr = cfg.Redis.Addr
		cacheCfg.Password = cfg.Redis.Password
		cacheCfg.DB = cfg.Redis.DB
		snapCache, err = cache.NewSnapshotCache(ctx, cacheCfg)
		if err != nil {
			logger.Warn().Err(err).Msg("Snapshot cache unavailable, serving without it")
			snapCache = nil
		} else {
			defer snapCache.Close()
		}
	}

	// Market simulator drives synthetic flow into the active book.
	var simulator *sim.MarketSimulator
	if cfg.Server.SimulatorEnabled {
		simCfg, err := sim.LoadConfig()
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid simulator configuration")
		}
		simulator = sim.NewMarketSimulator(simCfg, reg, instruments, logger)
		if err := simulator.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start market simulator")
		}
	}

	serverMetrics, err := otel.GetHTTPServerMetrics(otel.GetMeterProvider().Meter("matchbook/server"))
	if err != nil {
		logger.Warn().Err(err).Msg("Server metrics unavailable")
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = cfg.Server.HTTPAddr
	srvCfg.SnapshotDepth = cfg.Server.SnapshotDepth
	srvCfg.BroadcastInterval = time.Duration(cfg.Server.BroadcastMillis) * time.Millisecond
	srv := server.NewServer(srvCfg, reg, snapCache, serverMetrics, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("Server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if simulator != nil {
		if err := simulator.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Simulator shutdown error")
		}
	}
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}
	cancel()

	logger.Info().Msg("Shutdown complete")
}
