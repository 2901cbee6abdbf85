package aggregator

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/swap-engine/internal/adapters/persistence"
	"github.com/hxuan190/swap-engine/internal/aggregator/adapters/blockchain"
	"github.com/hxuan190/swap-engine/internal/config"
	"github.com/hxuan190/swap-engine/internal/services"
	"github.com/hxuan190/swap-engine/internal/services/builder"
	"github.com/hxuan190/swap-engine/internal/services/confirm"
	"github.com/hxuan190/swap-engine/internal/services/executor"
	"github.com/hxuan190/swap-engine/internal/services/market"
	"github.com/hxuan190/swap-engine/internal/services/priority"
	"github.com/hxuan190/swap-engine/internal/services/router"
)

const SWAP_SERVICE = "swap-service"

// Service composes pool resolution, planning, execution and confirmation over one RPC
// client. Its lifecycle is owned by the container.
type Service struct {
	container.BaseDIInstance
	core

	logger         *services.ServiceLogger
	rpcClient      *rpc.Client
	blockhashCache *blockchain.BlockhashCacheService
	lut            *builder.LUTManager
	journalDB      *persistence.Journal
	cancel         context.CancelFunc

	swapConfig *config.SwapConfig
}

func (svc *Service) ID() string {
	return SWAP_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.swapConfig = c.GetConfig(config.SWAP_CONFIG_KEY).(*config.SwapConfig)
	journalConfig := c.GetConfig(config.JOURNAL_CONFIG_KEY).(*config.JournalConfig)
	lutConfig := c.GetConfig(config.LUT_CONFIG_KEY).(*config.LUTConfig)
	svc.blockhashCache = c.Instance(blockchain.BLOCKHASH_CACHE_SERVICE).(*blockchain.BlockhashCacheService)

	swapCfg := svc.swapConfig
	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)

	resolver, err := market.NewResolver(svc.rpcClient, market.ResolverConfig{
		ProgramID:      swapCfg.ProgramID,
		AmmConfigIndex: swapCfg.AmmConfigIndex,
		RequestTimeout: rpcConfig.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("pool resolver: %w", err)
	}

	registry, err := market.LoadRegistry(swapCfg.TokenListPath)
	if err != nil {
		return fmt.Errorf("token registry: %w", err)
	}
	tokens, err := market.NewTokenService(svc.rpcClient, registry, rpcConfig.RequestTimeout)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	urgency, err := priority.ParseUrgency(swapCfg.PriorityUrgency)
	if err != nil {
		return err
	}
	prio := priority.NewService(priority.NewFeeCalculator(svc.rpcClient), swapCfg.ComputeUnitLimit, urgency)

	lutAddrs, err := builder.ParseLUTAddresses(lutConfig.Addresses)
	if err != nil {
		return err
	}
	svc.lut = builder.NewLUTManager(svc.rpcClient, lutAddrs, lutConfig.RefreshInterval)

	txBuilder, err := builder.NewBuilder(builder.Config{
		ProgramID:  swapCfg.ProgramID,
		WrapNative: swapCfg.WrapNativeSOL,
	}, prio, svc.lut)
	if err != nil {
		return fmt.Errorf("transaction builder: %w", err)
	}

	planner := router.NewPlanner(resolver, swapCfg.RouteTokenMint)
	poller := confirm.NewPoller(svc.rpcClient, svc.blockhashCache, confirm.Config{
		Commitment:     swapCfg.Commitment,
		MaxRetries:     swapCfg.MaxRetries,
		RetryBackoff:   swapCfg.RetryBackoff,
		PollInterval:   swapCfg.PollInterval,
		Timeout:        swapCfg.ConfirmTimeout,
		RequestTimeout: rpcConfig.RequestTimeout,
	})
	settlement := executor.NewSettlementReader(svc.rpcClient, swapCfg.Commitment, rpcConfig.RequestTimeout)

	svc.core = core{
		tokens:             tokens,
		planner:            planner,
		engine:             executor.NewEngine(planner, txBuilder, poller, settlement),
		txBuilder:          txBuilder,
		simulator:          builder.NewSimulator(svc.rpcClient),
		blockhashes:        svc.blockhashCache,
		logger:             svc.logger,
		defaultSlippageBps: swapCfg.DefaultSlippageBps,
		maxSlippageBps:     swapCfg.MaxSlippageBps,
	}

	if rpcConfig.SignerPrivateKey != "" {
		key, err := solana.PrivateKeyFromBase58(rpcConfig.SignerPrivateKey)
		if err != nil {
			return fmt.Errorf("SIGNER_PRIVATE_KEY: %w", err)
		}
		svc.core.signer = key
		svc.logger.Info().Str("signer", key.PublicKey().String()).Msg("execution signer loaded")
	} else {
		svc.logger.Warn().Msg("SIGNER_PRIVATE_KEY not set, execution disabled")
	}

	if journalConfig.Enabled {
		svc.journalDB, err = persistence.NewJournal(journalConfig.DBPath)
		if err != nil {
			return err
		}
		svc.core.journal = svc.journalDB
	}

	svc.logger.Info().
		Str("program", swapCfg.ProgramID.String()).
		Str("ammConfig", resolver.AmmConfig().String()).
		Str("routeToken", swapCfg.RouteTokenMint.String()).
		Int("registryTokens", registry.Len()).
		Msg("swap service configured")
	return nil
}

// Start runs the lookup table refresher. The blockhash cache is a container instance
// of its own and is started there.
func (svc *Service) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel
	svc.lut.Start(ctx)
	return nil
}

func (svc *Service) Stop() error {
	if svc.cancel != nil {
		svc.cancel()
	}
	svc.lut.Stop()
	if svc.journalDB != nil {
		if err := svc.journalDB.Close(); err != nil {
			svc.logger.Error().Err(err).Msg("failed to close journal")
		}
	}
	return nil
}

func (svc *Service) SwapConfig() *config.SwapConfig {
	return svc.swapConfig
}
