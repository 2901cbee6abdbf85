package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"
	"github.com/thehyperflames/yellowstone"

	"github.com/hxuan190/swap-engine/internal/aggregator"
	"github.com/hxuan190/swap-engine/internal/aggregator/adapters/blockchain"
	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/config"
	"github.com/hxuan190/swap-engine/internal/http"
)

// @title Swap Engine API
// @version 1.0
// @description Quote and execute token swaps against Raydium CPMM pools on Solana.
// @description
// @description ## - Features
// @description - **Direct or routed**: a direct pool is used when one exists, otherwise the trade is routed through the configured route token
// @description - **ExactIn and ExactOut**: fix either side of the trade
// @description - **Confirmation tracking**: retries with a fresh blockhash and waits for the configured commitment
// @description - **Partial route reporting**: a routed trade whose first leg landed is reported with its signature
// @description
// @description ## - Usage Tips
// @description - Amounts are in smallest token units unless `uiAmount` is set
// @description - Default slippage is 50 bps (0.5%); `slippageBps=0` is honoured
// @description - Rate limit: 10 requests/second (burst: 20)
// @description
// @BasePath /
// @schemes https http
// @tag.name quote
// @tag.description Price a trade with price impact and routing information
// @tag.name swap
// @tag.description Execute or simulate a trade with the server signer
// @tag.name executions
// @tag.description Journaled execution results
// @tag.name tokens
// @tag.description Token metadata used for amount conversion

func main() {
	common.InitRuntime()

	// a missing .env is fine; the environment may already be populated
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	general := &config.GeneralConfig{}
	if err := general.Load(); err != nil {
		log.Error().Err(err).Msg("invalid general config")
		return
	}
	common.InitLogger(general.LogLevel, general.LogFile, general.Env)

	// di container config
	conf := container.NewConf(
		general,
		&config.RPCConfig{},
		&yellowstone.Config{},
		&config.SwapConfig{},
		&config.JournalConfig{},
		&config.LUTConfig{},
	)

	dic, err := container.New(
		conf,

		&yellowstone.Service{},
		&blockchain.BlockhashCacheService{},
		&aggregator.Service{},
		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// blocks until SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
