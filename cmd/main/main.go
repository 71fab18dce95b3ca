package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sol-terminal/src/analysis"
	"sol-terminal/src/config"
	"sol-terminal/src/connection"
	"sol-terminal/src/dex/whirlpool"
	"sol-terminal/src/engine"
	"sol-terminal/src/interfaces"
	"sol-terminal/src/logger"
	"sol-terminal/src/metrics"
	"sol-terminal/src/models"
	"sol-terminal/src/monitor"
	"sol-terminal/src/network"
	"sol-terminal/src/normalizer"
	"sol-terminal/src/publisher"
	"sol-terminal/src/server"
	"sol-terminal/src/storage"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file (plus .env / SOLTERM_* overrides)
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// Metrics registry
	m := metrics.NewMetrics()

	// 1. Storage (optional)
	var db interfaces.IDatabase
	var sink *storage.Sink
	if cfg.Storage.Enabled {
		switch cfg.Storage.DBType {
		case "postgres":
			db, err = storage.NewPostgresDB(cfg.MConfig, appLogger)
		default:
			// Default to SQLite
			db, err = storage.NewAsyncSQLiteDB(cfg.MConfig, appLogger)
		}
		if err != nil {
			appLogger.Critical("Failed to init db: %v", err)
		}
		if err := db.Initialize(); err != nil {
			appLogger.Critical("Failed to migrate db: %v", err)
		}
		defer db.Close()
		sink = storage.NewSink(db, appLogger)
	}

	// 2. Pipeline components
	pools := cfg.EnabledPools()
	windows := cfg.WindowSeconds()

	networkManager := network.NewAsyncNetworkManager(cfg.MConfig, appLogger)
	rpcClient := connection.NewSolanaRPCClient(networkManager, cfg.Connection.Commitment, appLogger)
	norm := normalizer.NewNormalizer(appLogger)
	eng := engine.NewEngine(cfg.MConfig, windows, m, appLogger)
	mgr := connection.NewManager(cfg.MConfig, pools, norm, m, appLogger)
	mon := monitor.NewMonitor(mgr.Resubscribe, appLogger)

	var arb *analysis.ArbitrageDetector
	if cfg.Aggregation.ArbitrageEnabled {
		arb = analysis.NewArbitrageDetector(
			cfg.Aggregation.ArbitrageMinProfitPercent,
			int64(cfg.Aggregation.ArbitrageMaxPriceAgeSeconds),
		)
	}

	pub := publisher.NewPublisher(eng, mon, arb,
		cfg.Aggregation.PublishIntervalMillis, mgr.ParseErrors, m, appLogger)

	srv := server.NewTerminalServer(cfg.MConfig, m, appLogger)
	pub.AddSink(srv)
	if sink != nil {
		pub.AddSink(sink)
	}

	// 3. Initial Data Load: seed the engine from a one-shot RPC fetch so the
	// first snapshot carries prices before the stream delivers anything.
	appLogger.Info("Fetching initial pool state...")
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	for _, pool := range pools {
		data, slot, err := rpcClient.GetAccountInfo(seedCtx, pool.Pubkey)
		if err != nil {
			appLogger.Warning("Initial fetch for %s failed: %v", pool.Name, err)
			continue
		}
		state, err := whirlpool.Decode(data)
		if err != nil {
			appLogger.Warning("Initial decode for %s failed: %v", pool.Name, err)
			continue
		}

		// Safe before Start: the engine loop is not running yet.
		eng.Apply(models.MMarketEvent{
			Kind:       models.EventPriceTick,
			Instrument: pool.Name,
			Slot:       slot,
			Timestamp:  time.Now().Unix(),
			Price:      whirlpool.PriceFromState(state, pool.DecimalsA, pool.DecimalsB),
			Liquidity:  state.Liquidity.Float64(),
			Tick:       state.TickCurrentIndex,
		})
		appLogger.Info("Seeded %s at slot %d", pool.Name, slot)
	}
	seedCancel()

	appLogger.Info("Initialization complete.")

	// 4. Start everything
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := &sync.WaitGroup{}
	events := make(chan models.MMarketEvent, 1024)

	wg.Add(1)
	if err := eng.Start(ctx, events, wg); err != nil {
		appLogger.Critical("Failed to start engine: %v", err)
	}

	wg.Add(1)
	if err := mon.Start(ctx, mgr.Status(), wg); err != nil {
		appLogger.Critical("Failed to start monitor: %v", err)
	}

	wg.Add(1)
	if err := mgr.Start(ctx, events, wg); err != nil {
		appLogger.Critical("Failed to start connection manager: %v", err)
	}

	wg.Add(1)
	if err := pub.Start(ctx, wg); err != nil {
		appLogger.Critical("Failed to start publisher: %v", err)
	}

	if sink != nil {
		wg.Add(1)
		if err := sink.Start(ctx, wg); err != nil {
			appLogger.Critical("Failed to start storage sink: %v", err)
		}
	}

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 5. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	wg.Wait()
}
