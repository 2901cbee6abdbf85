package domain

import (
	"errors"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/swap-engine/internal/common"
)

var ErrMintNotInPool = errors.New("mint is not one of the pool tokens")

// PoolStatus bits mirror the on-chain status byte: a set bit disables the operation.
type PoolStatus uint8

const (
	PoolStatusDepositDisabled  PoolStatus = 1 << 0
	PoolStatusWithdrawDisabled PoolStatus = 1 << 1
	PoolStatusSwapDisabled     PoolStatus = 1 << 2
)

// Pool is a point-in-time snapshot of a constant-product pool. Reserves are never
// mutated locally; a fresh snapshot is read for every quote.
type Pool struct {
	Address        solana.PublicKey `json:"address"`
	ProgramID      solana.PublicKey `json:"programId"`
	AmmConfig      solana.PublicKey `json:"ammConfig"`
	TokenMintA     solana.PublicKey `json:"tokenMintA"`
	TokenMintB     solana.PublicKey `json:"tokenMintB"`
	TokenVaultA    solana.PublicKey `json:"tokenVaultA"`
	TokenVaultB    solana.PublicKey `json:"tokenVaultB"`
	TokenProgramA  solana.PublicKey `json:"tokenProgramA"`
	TokenProgramB  solana.PublicKey `json:"tokenProgramB"`
	DecimalsA      uint8            `json:"decimalsA"`
	DecimalsB      uint8            `json:"decimalsB"`
	ObservationKey solana.PublicKey `json:"observationKey"`
	ReserveA       *big.Int         `json:"reserveA"`
	ReserveB       *big.Int         `json:"reserveB"`
	// FeeRate is the trade fee in parts per million.
	FeeRate  uint64     `json:"feeRate"`
	Status   PoolStatus `json:"status"`
	OpenTime uint64     `json:"openTime"`
	Slot     uint64     `json:"slot"`
}

func (p *Pool) Contains(mint solana.PublicKey) bool {
	return p.TokenMintA.Equals(mint) || p.TokenMintB.Equals(mint)
}

func (p *Pool) SwapEnabled() bool {
	return p.Status&PoolStatusSwapDisabled == 0
}

// OpenAt reports whether the pool accepts swaps at now. The program requires the
// block time to be strictly after OpenTime.
func (p *Pool) OpenAt(now time.Time) bool {
	return now.Unix() > 0 && uint64(now.Unix()) > p.OpenTime
}

// Direction reports whether a swap spending inputMint goes from token A to token B.
func (p *Pool) Direction(inputMint solana.PublicKey) (aToB bool, err error) {
	switch {
	case p.TokenMintA.Equals(inputMint):
		return true, nil
	case p.TokenMintB.Equals(inputMint):
		return false, nil
	default:
		return false, ErrMintNotInPool
	}
}

// Reserves returns (reserveIn, reserveOut) for a swap spending inputMint.
func (p *Pool) Reserves(inputMint solana.PublicKey) (*big.Int, *big.Int, error) {
	aToB, err := p.Direction(inputMint)
	if err != nil {
		return nil, nil, err
	}
	if aToB {
		return p.ReserveA, p.ReserveB, nil
	}
	return p.ReserveB, p.ReserveA, nil
}

// Side returns the mint, vault, token program and decimals for one side of the pool.
func (p *Pool) Side(mint solana.PublicKey) (vault, program solana.PublicKey, decimals uint8, err error) {
	switch {
	case p.TokenMintA.Equals(mint):
		return p.TokenVaultA, p.TokenProgramA, p.DecimalsA, nil
	case p.TokenMintB.Equals(mint):
		return p.TokenVaultB, p.TokenProgramB, p.DecimalsB, nil
	default:
		return solana.PublicKey{}, solana.PublicKey{}, 0, ErrMintNotInPool
	}
}

// SpotPrice is the marginal price of inputMint in units of the other token,
// adjusted for both tokens' decimals.
func (p *Pool) SpotPrice(inputMint solana.PublicKey) (decimal.Decimal, error) {
	aToB, err := p.Direction(inputMint)
	if err != nil {
		return decimal.Zero, err
	}
	if aToB {
		return common.Ratio(p.ReserveB, p.DecimalsB, p.ReserveA, p.DecimalsA, 12), nil
	}
	return common.Ratio(p.ReserveA, p.DecimalsA, p.ReserveB, p.DecimalsB, 12), nil
}
