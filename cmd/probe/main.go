// Command probe performs a one-shot fetch and decode of every configured
// pool account. Used to sanity-check RPC endpoints and pool pubkeys before
// running the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"sol-terminal/src/config"
	"sol-terminal/src/connection"
	"sol-terminal/src/dex/whirlpool"
	"sol-terminal/src/logger"
	"sol-terminal/src/network"
)

// -----------------------------------------------------------------------------

func main() {
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	timeout := flag.Duration("timeout", 30*time.Second, "overall fetch timeout")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(cfg.LogLevel, "probe")

	networkManager := network.NewAsyncNetworkManager(cfg.MConfig, appLogger)
	rpcClient := connection.NewSolanaRPCClient(networkManager, cfg.Connection.Commitment, appLogger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	failures := 0
	for _, pool := range cfg.EnabledPools() {
		data, slot, err := rpcClient.GetAccountInfo(ctx, pool.Pubkey)
		if err != nil {
			appLogger.Error("%s: fetch failed: %v", pool.Name, err)
			failures++
			continue
		}

		state, err := whirlpool.Decode(data)
		if err != nil {
			appLogger.Error("%s: decode failed: %v", pool.Name, err)
			failures++
			continue
		}

		price := whirlpool.PriceFromState(state, pool.DecimalsA, pool.DecimalsB)
		appLogger.Info("%s (%s on %s): price=%.6f tick=%d liquidity=%.0f fee=%s slot=%d",
			pool.Name, pool.Pair, pool.Dex,
			price, state.TickCurrentIndex, state.Liquidity.Float64(),
			whirlpool.FeeTierDisplay(state.FeeRate), slot)
	}

	if failures > 0 {
		os.Exit(1)
	}
}
