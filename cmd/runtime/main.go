package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"
	"github.com/thehyperflames/yellowstone"

	"github.com/happy2099/zap-mono/internal/adapters/blockchain"
	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/config"
	"github.com/happy2099/zap-mono/internal/http"
	"github.com/happy2099/zap-mono/internal/services/artifact"
	"github.com/happy2099/zap-mono/internal/services/detective"
	"github.com/happy2099/zap-mono/internal/services/executor"
	"github.com/happy2099/zap-mono/internal/services/forge"
	"github.com/happy2099/zap-mono/internal/services/registry"
)

// @title Zap Mono API
// @version 1.0-beta
// @description Copy-trading engine for Solana: detects a tracked trader's swap in a confirmed transaction,
// @description clones the instruction for a new payer without per-exchange builder code, and executes it
// @description through a prioritized, bounded queue.
// @description
// @description ## - Pipeline
// @description - **Analyze**: locate the swap instruction attributable to the tracked trader
// @description - **Forge**: remap trader accounts to the new payer, create missing ATAs, rewrite amounts
// @description - **Execute**: compute budget, durable nonce support, one submission, one confirmation
// @description
// @description ## - Supported platforms
// @description Pump.fun, PumpSwap, Raydium (V4/CPMM/CLMM/Launchpad), Meteora DLMM, Orca Whirlpool,
// @description and router descent for Jupiter and OKX.
// @description
// @description ## - API Status
// @description - **Version**: 1.0-beta
// @description - **Rate Limit**: 10 requests/second (burst: 20)
// @BasePath /
// @schemes http
// @tag.name analyze
// @tag.description Analyze confirmed transactions for copyable swaps
// @tag.name forge
// @tag.description Clone detected swaps for a new payer
// @tag.name cache
// @tag.description Inspect the trade-ready artifact cache
// @tag.name trades
// @tag.description Execution queue and trade outcomes

func main() {
	// Initialize runtime optimizations (GOGC, GOMAXPROCS, GOMEMLIMIT)
	common.InitRuntimeForCopyEngine()

	// load env
	err := godotenv.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load env")
		return
	}

	// di container config
	conf := container.NewConf(
		&config.GeneralConfig{},
		&config.RPCConfig{},
		&yellowstone.Config{},
		&config.EngineConfig{},
		&config.ArtifactConfig{},
	)

	// di container
	dic, err := container.New(
		// config
		conf,

		// services
		&yellowstone.Service{},

		&registry.Service{},

		&blockchain.TransactionSourceService{},
		&blockchain.MintResolverService{},
		&blockchain.NonceSourceService{},
		&blockchain.BlockhashCacheService{},

		&artifact.Service{},
		&detective.Service{},
		&forge.Service{},
		&executor.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	// Run() doesn't call Stop(), we must do it manually
	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
