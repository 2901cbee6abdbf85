package blockchain

import (
	"context"
	"errors"
	"sync"
	"time"

	pb "github.com/andrew-solarstorm/yellowstone-grpc-client-go/proto"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"
	"github.com/thehyperflames/yellowstone"

	"github.com/hxuan190/swap-engine/internal/config"
	"github.com/hxuan190/swap-engine/internal/metrics"
)

const BLOCKHASH_CACHE_SERVICE = "cache-blockhash-svc"

const (
	DefaultMaxAge = 2 * time.Second
	// a blockhash stays usable for 150 blocks; a stale one is only served while the
	// RPC is unreachable and it is well inside that window
	staleFallbackAge = 30 * time.Second
	validBlocks      = 150
)

type CachedBlockhash struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Slot                 uint64
	UpdatedAt            time.Time
}

type LatestBlockhashClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// BlockhashCacheService serves recent blockhashes from a block-meta stream, falling
// back to RPC when the cached one is older than maxAge.
type BlockhashCacheService struct {
	container.BaseDIInstance

	mu        sync.RWMutex
	current   *CachedBlockhash
	ySvc      *yellowstone.Service
	rpcClient LatestBlockhashClient
	maxAge    time.Duration
	subID     string
}

func NewBlockhashCache(client LatestBlockhashClient, maxAge time.Duration) *BlockhashCacheService {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &BlockhashCacheService{rpcClient: client, maxAge: maxAge}
}

func (svc *BlockhashCacheService) ID() string {
	return BLOCKHASH_CACHE_SERVICE
}

func (svc *BlockhashCacheService) Configure(c container.IContainer) error {
	svc.ySvc = c.Instance(yellowstone.YELLOWSTONE_SERVICE).(*yellowstone.Service)
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	swapConfig := c.GetConfig(config.SWAP_CONFIG_KEY).(*config.SwapConfig)

	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	svc.maxAge = swapConfig.BlockhashMaxAge
	if svc.maxAge <= 0 {
		svc.maxAge = DefaultMaxAge
	}
	return nil
}

func (svc *BlockhashCacheService) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := svc.fetch(ctx); err != nil {
		log.Warn().Err(err).Msg("[BlockhashCacheService] failed to fetch initial blockhash, will retry on first request")
	}

	subID, err := svc.ySvc.SubscribeBlockMeta(svc.handleBlockMeta)
	if err != nil {
		log.Error().Err(err).Msg("[BlockhashCacheService] failed to subscribe to block meta")
		return err
	}
	svc.subID = subID
	log.Info().Str("subID", subID).Msg("[BlockhashCacheService] subscribed to block meta for blockhash updates")

	return nil
}

func (svc *BlockhashCacheService) Stop() error {
	if svc.subID == "" || svc.ySvc == nil {
		return nil
	}
	subID := svc.subID
	svc.subID = ""
	return svc.ySvc.Unsubscribe(subID)
}

func (svc *BlockhashCacheService) handleBlockMeta(update *pb.SubscribeUpdate) error {
	blockMeta := update.GetBlockMeta()
	if blockMeta == nil {
		return nil
	}

	height := uint64(0)
	if bh := blockMeta.GetBlockHeight(); bh != nil {
		height = bh.GetBlockHeight()
	}
	svc.observe(blockMeta.GetBlockhash(), blockMeta.GetSlot(), height)
	return nil
}

// observe records a streamed block. Malformed or out-of-order blocks are ignored.
func (svc *BlockhashCacheService) observe(blockhash string, slot, blockHeight uint64) {
	if blockhash == "" {
		return
	}
	hash, err := solana.HashFromBase58(blockhash)
	if err != nil {
		return
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.current != nil && slot < svc.current.Slot {
		return
	}
	svc.current = &CachedBlockhash{
		Blockhash:            hash,
		LastValidBlockHeight: blockHeight + validBlocks,
		Slot:                 slot,
		UpdatedAt:            time.Now(),
	}
}

func (svc *BlockhashCacheService) GetBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	return svc.GetFreshBlockhash(ctx, solana.Hash{})
}

// GetFreshBlockhash is GetBlockhash for a retry: a cached blockhash equal to previous is
// not served, and RPC is asked for a newer one instead.
func (svc *BlockhashCacheService) GetFreshBlockhash(ctx context.Context, previous solana.Hash) (solana.Hash, uint64, error) {
	svc.mu.RLock()
	cached := svc.current
	svc.mu.RUnlock()

	usable := cached != nil && !cached.Blockhash.Equals(previous)
	if usable && time.Since(cached.UpdatedAt) < svc.maxAge {
		metrics.BlockhashSource.WithLabelValues("stream").Inc()
		return cached.Blockhash, cached.LastValidBlockHeight, nil
	}

	fresh, err := svc.fetch(ctx)
	if err != nil {
		if usable && time.Since(cached.UpdatedAt) < staleFallbackAge {
			metrics.BlockhashSource.WithLabelValues("stale").Inc()
			log.Warn().Err(err).Dur("age", time.Since(cached.UpdatedAt)).Msg("[BlockhashCacheService] rpc failed, serving cached blockhash")
			return cached.Blockhash, cached.LastValidBlockHeight, nil
		}
		return solana.Hash{}, 0, err
	}
	metrics.BlockhashSource.WithLabelValues("rpc").Inc()
	return fresh.Blockhash, fresh.LastValidBlockHeight, nil
}

func (svc *BlockhashCacheService) fetch(ctx context.Context) (*CachedBlockhash, error) {
	res, err := svc.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, errors.New("empty latest blockhash response")
	}

	fresh := &CachedBlockhash{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
		Slot:                 res.Context.Slot,
		UpdatedAt:            time.Now(),
	}
	svc.mu.Lock()
	if svc.current == nil || fresh.Slot >= svc.current.Slot {
		svc.current = fresh
	}
	svc.mu.Unlock()
	return fresh, nil
}
