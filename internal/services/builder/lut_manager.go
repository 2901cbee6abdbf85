package builder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
)

const defaultLUTRefresh = 5 * time.Minute

// LUTManager keeps the configured address lookup tables loaded for v0 swap
// transactions. Reads are lock-free.
type LUTManager struct {
	rpcClient    *rpc.Client
	lutAddresses []solana.PublicKey
	tables       atomic.Value // map[solana.PublicKey]solana.PublicKeySlice
	interval     time.Duration
	cancel       context.CancelFunc
}

// ParseLUTAddresses parses base58 table addresses.
func ParseLUTAddresses(addrs []string) ([]solana.PublicKey, error) {
	out := make([]solana.PublicKey, 0, len(addrs))
	for _, addr := range addrs {
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid LUT address %q: %w", addr, err)
		}
		out = append(out, pk)
	}
	return out, nil
}

func NewLUTManager(rpcClient *rpc.Client, lutAddresses []solana.PublicKey, refreshInterval time.Duration) *LUTManager {
	if refreshInterval <= 0 {
		refreshInterval = defaultLUTRefresh
	}
	m := &LUTManager{
		rpcClient:    rpcClient,
		lutAddresses: lutAddresses,
		interval:     refreshInterval,
	}
	m.tables.Store(make(map[solana.PublicKey]solana.PublicKeySlice))
	return m
}

// Start loads the tables once, then refreshes them until Stop.
func (m *LUTManager) Start(ctx context.Context) {
	if len(m.lutAddresses) == 0 {
		log.Info().Msg("[LUTManager] no LUT addresses configured")
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.refresh(ctx)

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.refresh(ctx)
			}
		}
	}()
}

func (m *LUTManager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *LUTManager) GetAddressTables() map[solana.PublicKey]solana.PublicKeySlice {
	return m.tables.Load().(map[solana.PublicKey]solana.PublicKeySlice)
}

func (m *LUTManager) refresh(ctx context.Context) {
	tables := make(map[solana.PublicKey]solana.PublicKeySlice, len(m.lutAddresses))

	for _, addr := range m.lutAddresses {
		state, err := addresslookuptable.GetAddressLookupTable(ctx, m.rpcClient, addr)
		if err != nil {
			log.Warn().Err(err).Str("lut", addr.String()).Msg("[LUTManager] failed to fetch LUT")
			continue
		}
		if !state.IsActive() {
			log.Warn().Str("lut", addr.String()).Msg("[LUTManager] LUT is deactivated, skipping")
			continue
		}
		tables[addr] = state.Addresses
	}

	// keep the previous snapshot when every fetch failed
	if len(tables) == 0 && len(m.GetAddressTables()) > 0 {
		return
	}
	m.tables.Store(tables)
	log.Debug().Int("tables", len(tables)).Msg("[LUTManager] refresh complete")
}
