package builder

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
)

var ErrMissingPoolData = errors.New("pool is missing required data for swap")

var (
	swapBaseInputDiscriminator  = instructionDiscriminator("swap_base_input")
	swapBaseOutputDiscriminator = instructionDiscriminator("swap_base_output")
)

func instructionDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

type swapBaseInputArgs struct {
	AmountIn         uint64
	MinimumAmountOut uint64
}

type swapBaseOutputArgs struct {
	MaxAmountIn uint64
	AmountOut   uint64
}

// SwapAccounts are the accounts of a CPMM swap, in program order.
type SwapAccounts struct {
	Payer              solana.PublicKey
	Authority          solana.PublicKey
	AmmConfig          solana.PublicKey
	PoolState          solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	InputVault         solana.PublicKey
	OutputVault        solana.PublicKey
	InputTokenProgram  solana.PublicKey
	OutputTokenProgram solana.PublicKey
	InputMint          solana.PublicKey
	OutputMint         solana.PublicKey
	ObservationState   solana.PublicKey
}

// SwapInstruction is swap_base_input (ExactIn) or swap_base_output (ExactOut). The
// program rejects the swap when the threshold is not met.
type SwapInstruction struct {
	programID solana.PublicKey
	mode      domain.SwapMode
	// Amount is amount_in for ExactIn and amount_out for ExactOut.
	Amount uint64
	// Threshold is minimum_amount_out for ExactIn and max_amount_in for ExactOut.
	Threshold uint64
	accounts  SwapAccounts
}

func NewSwapInstruction(programID solana.PublicKey, mode domain.SwapMode, amount, threshold *big.Int, accounts SwapAccounts) (*SwapInstruction, error) {
	if mode != domain.ExactIn && mode != domain.ExactOut {
		return nil, domain.ErrInvalidSwapMode
	}
	if amount == nil || threshold == nil || amount.Sign() <= 0 || threshold.Sign() < 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !amount.IsUint64() || !threshold.IsUint64() {
		return nil, common.ErrAmountOverflow
	}
	return &SwapInstruction{
		programID: programID,
		mode:      mode,
		Amount:    amount.Uint64(),
		Threshold: threshold.Uint64(),
		accounts:  accounts,
	}, nil
}

func (ix *SwapInstruction) ProgramID() solana.PublicKey {
	return ix.programID
}

func (ix *SwapInstruction) Accounts() []*solana.AccountMeta {
	a := ix.accounts
	return []*solana.AccountMeta{
		{PublicKey: a.Payer, IsSigner: true, IsWritable: false},
		{PublicKey: a.Authority, IsSigner: false, IsWritable: false},
		{PublicKey: a.AmmConfig, IsSigner: false, IsWritable: false},
		{PublicKey: a.PoolState, IsSigner: false, IsWritable: true},
		{PublicKey: a.InputTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: a.OutputTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: a.InputVault, IsSigner: false, IsWritable: true},
		{PublicKey: a.OutputVault, IsSigner: false, IsWritable: true},
		{PublicKey: a.InputTokenProgram, IsSigner: false, IsWritable: false},
		{PublicKey: a.OutputTokenProgram, IsSigner: false, IsWritable: false},
		{PublicKey: a.InputMint, IsSigner: false, IsWritable: false},
		{PublicKey: a.OutputMint, IsSigner: false, IsWritable: false},
		{PublicKey: a.ObservationState, IsSigner: false, IsWritable: true},
	}
}

func (ix *SwapInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	var args interface{}
	switch ix.mode {
	case domain.ExactIn:
		buf.Write(swapBaseInputDiscriminator[:])
		args = &swapBaseInputArgs{AmountIn: ix.Amount, MinimumAmountOut: ix.Threshold}
	default:
		buf.Write(swapBaseOutputDiscriminator[:])
		args = &swapBaseOutputArgs{MaxAmountIn: ix.Threshold, AmountOut: ix.Amount}
	}
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("encode swap args: %w", err)
	}
	return buf.Bytes(), nil
}

// swapAccountsForLeg resolves every account of a swap on leg.Pool for owner.
func swapAccountsForLeg(owner, authority solana.PublicKey, leg domain.QuotedLeg) (SwapAccounts, error) {
	pool := leg.Pool
	if pool == nil || pool.AmmConfig.IsZero() || pool.ObservationKey.IsZero() {
		return SwapAccounts{}, ErrMissingPoolData
	}
	inVault, inProgram, _, err := pool.Side(leg.InputMint)
	if err != nil {
		return SwapAccounts{}, err
	}
	outVault, outProgram, _, err := pool.Side(leg.OutputMint)
	if err != nil {
		return SwapAccounts{}, err
	}
	inATA, err := GetATAAddressForMint(owner, leg.InputMint, inProgram)
	if err != nil {
		return SwapAccounts{}, fmt.Errorf("derive input ATA: %w", err)
	}
	outATA, err := GetATAAddressForMint(owner, leg.OutputMint, outProgram)
	if err != nil {
		return SwapAccounts{}, fmt.Errorf("derive output ATA: %w", err)
	}
	return SwapAccounts{
		Payer:              owner,
		Authority:          authority,
		AmmConfig:          pool.AmmConfig,
		PoolState:          pool.Address,
		InputTokenAccount:  inATA,
		OutputTokenAccount: outATA,
		InputVault:         inVault,
		OutputVault:        outVault,
		InputTokenProgram:  inProgram,
		OutputTokenProgram: outProgram,
		InputMint:          leg.InputMint,
		OutputMint:         leg.OutputMint,
		ObservationState:   pool.ObservationKey,
	}, nil
}
