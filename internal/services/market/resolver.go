package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/metrics"
)

var ErrIncompletePool = errors.New("pool accounts are missing")

const DefaultRequestTimeout = 10 * time.Second

// AccountReader is the part of the RPC client used to read chain state.
type AccountReader interface {
	GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error)
}

type ResolverConfig struct {
	ProgramID      solana.PublicKey
	AmmConfigIndex uint16
	Commitment     rpc.CommitmentType
	RequestTimeout time.Duration
}

// Resolver locates the canonical pool for an unordered mint pair and reads a fresh
// snapshot of its reserves and fee rate. Nothing is cached between calls.
type Resolver struct {
	reader     AccountReader
	programID  solana.PublicKey
	ammConfig  solana.PublicKey
	commitment rpc.CommitmentType
	timeout    time.Duration
}

func NewResolver(reader AccountReader, cfg ResolverConfig) (*Resolver, error) {
	if cfg.ProgramID.IsZero() {
		return nil, errors.New("program id is required")
	}
	ammCfg, _, err := AmmConfigPDA(cfg.ProgramID, cfg.AmmConfigIndex)
	if err != nil {
		return nil, fmt.Errorf("derive amm config: %w", err)
	}
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentConfirmed
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return &Resolver{
		reader:     reader,
		programID:  cfg.ProgramID,
		ammConfig:  ammCfg,
		commitment: cfg.Commitment,
		timeout:    cfg.RequestTimeout,
	}, nil
}

func (r *Resolver) ProgramID() solana.PublicKey {
	return r.programID
}

func (r *Resolver) AmmConfig() solana.PublicKey {
	return r.ammConfig
}

// PoolAddress derives the pool id. PoolAddress(a, b) == PoolAddress(b, a).
func (r *Resolver) PoolAddress(a, b solana.PublicKey) (solana.PublicKey, error) {
	mint0, mint1 := SortMints(a, b)
	addr, _, err := PoolPDA(r.programID, r.ammConfig, mint0, mint1)
	return addr, err
}

// ResolvePool returns nil, nil when no pool account exists for the pair.
func (r *Resolver) ResolvePool(ctx context.Context, a, b solana.PublicKey) (*domain.Pool, error) {
	pool, err := r.resolvePool(ctx, a, b)
	switch {
	case err != nil:
		metrics.PoolResolutions.WithLabelValues("error").Inc()
	case pool == nil:
		metrics.PoolResolutions.WithLabelValues("missing").Inc()
	default:
		metrics.PoolResolutions.WithLabelValues("found").Inc()
	}
	return pool, err
}

func (r *Resolver) resolvePool(ctx context.Context, a, b solana.PublicKey) (*domain.Pool, error) {
	if a.Equals(b) {
		return nil, domain.ErrSameMint
	}
	address, err := r.PoolAddress(a, b)
	if err != nil {
		return nil, fmt.Errorf("derive pool address: %w", err)
	}

	accounts, _, err := r.fetch(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("fetch pool %s: %w", address, err)
	}
	poolAcc := accounts[0]
	if poolAcc == nil {
		log.Debug().Str("pool", address.String()).Msg("[PoolResolver] no pool account")
		return nil, nil
	}
	if !poolAcc.Owner.Equals(r.programID) {
		return nil, fmt.Errorf("pool %s: %w", address, ErrUnexpectedOwner)
	}
	state, err := decodePoolState(poolAcc.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", address, err)
	}

	accounts, slot, err := r.fetch(ctx, state.AmmConfig, state.Token0Vault, state.Token1Vault)
	if err != nil {
		return nil, fmt.Errorf("fetch pool %s vaults: %w", address, err)
	}
	for _, acc := range accounts {
		if acc == nil {
			return nil, fmt.Errorf("pool %s: %w", address, ErrIncompletePool)
		}
	}

	cfg, err := decodeAmmConfig(accounts[0].Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("amm config %s: %w", state.AmmConfig, err)
	}
	vault0, err := parseTokenAccountBalance(accounts[1].Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("vault %s: %w", state.Token0Vault, err)
	}
	vault1, err := parseTokenAccountBalance(accounts[2].Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("vault %s: %w", state.Token1Vault, err)
	}

	pool := &domain.Pool{
		Address:        address,
		ProgramID:      r.programID,
		AmmConfig:      state.AmmConfig,
		TokenMintA:     state.Token0Mint,
		TokenMintB:     state.Token1Mint,
		TokenVaultA:    state.Token0Vault,
		TokenVaultB:    state.Token1Vault,
		TokenProgramA:  state.Token0Program,
		TokenProgramB:  state.Token1Program,
		DecimalsA:      state.Mint0Decimals,
		DecimalsB:      state.Mint1Decimals,
		ObservationKey: state.ObservationKey,
		ReserveA:       netReserve(vault0, state.ProtocolFeesToken0, state.FundFeesToken0, state.CreatorFeesToken0),
		ReserveB:       netReserve(vault1, state.ProtocolFeesToken1, state.FundFeesToken1, state.CreatorFeesToken1),
		FeeRate:        cfg.TradeFeeRate,
		Status:         domain.PoolStatus(state.Status),
		OpenTime:       state.OpenTime,
		Slot:           slot,
	}

	log.Debug().
		Str("pool", address.String()).
		Str("reserveA", pool.ReserveA.String()).
		Str("reserveB", pool.ReserveB.String()).
		Uint64("feeRate", pool.FeeRate).
		Uint64("slot", slot).
		Msg("[PoolResolver] resolved pool")

	return pool, nil
}

func (r *Resolver) fetch(ctx context.Context, accounts ...solana.PublicKey) ([]*rpc.Account, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.reader.GetMultipleAccountsWithOpts(ctx, accounts, &rpc.GetMultipleAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: r.commitment,
	})
	if err != nil {
		return nil, 0, err
	}
	if res == nil || len(res.Value) != len(accounts) {
		return nil, 0, fmt.Errorf("expected %d accounts in response", len(accounts))
	}
	return res.Value, res.Context.Slot, nil
}

// netReserve is the vault balance minus fees accrued to the protocol, fund and
// creator, which are not tradable liquidity.
func netReserve(vault uint64, fees ...uint64) *big.Int {
	reserve := new(big.Int).SetUint64(vault)
	for _, f := range fees {
		reserve.Sub(reserve, new(big.Int).SetUint64(f))
	}
	if reserve.Sign() < 0 {
		return new(big.Int)
	}
	return reserve
}
