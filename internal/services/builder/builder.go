package builder

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/services/market"
)

var (
	ErrInvalidSigner = errors.New("invalid signer")
	ErrBuildFailed   = errors.New("failed to build swap transaction")
)

// Signer holds the fee payer's key. The private key never leaves the implementation;
// solana.PrivateKey satisfies it directly.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(message []byte) (solana.Signature, error)
}

type PriorityProvider interface {
	Instructions(ctx context.Context, writable []solana.PublicKey) []solana.Instruction
}

type AddressTableProvider interface {
	GetAddressTables() map[solana.PublicKey]solana.PublicKeySlice
}

// LegRequest is one leg with its on-chain bound. Amount is the fixed side of the
// trade; Threshold is minimum_amount_out for ExactIn and max_amount_in for ExactOut.
type LegRequest struct {
	Leg       domain.QuotedLeg
	Amount    *big.Int
	Threshold *big.Int
	// First marks the leg that spends the trader's own input token.
	First bool
}

// NewLegRequest derives the bound for leg from its quote and the slippage tolerance.
func NewLegRequest(leg domain.QuotedLeg, slippageBps uint16, first bool) (LegRequest, error) {
	req := LegRequest{Leg: leg, First: first}
	var err error
	switch leg.Mode {
	case domain.ExactIn:
		req.Amount = leg.AmountIn
		req.Threshold, err = common.MinAmountOut(leg.AmountOut, slippageBps)
	case domain.ExactOut:
		req.Amount = leg.AmountOut
		req.Threshold, err = common.MaxAmountIn(leg.AmountIn, slippageBps)
	default:
		err = domain.ErrInvalidSwapMode
	}
	if err != nil {
		return LegRequest{}, err
	}
	return req, nil
}

// MaxSpend is the most input the leg may consume.
func (r LegRequest) MaxSpend() *big.Int {
	if r.Leg.Mode == domain.ExactOut {
		return r.Threshold
	}
	return r.Amount
}

type Config struct {
	ProgramID  solana.PublicKey
	WrapNative bool
}

// Builder assembles CPMM swap transactions:
// compute budget, output ATA, optional native SOL wrap, swap, optional unwrap.
type Builder struct {
	programID  solana.PublicKey
	authority  solana.PublicKey
	wrapNative bool
	priority   PriorityProvider
	tables     AddressTableProvider
}

func NewBuilder(cfg Config, priority PriorityProvider, tables AddressTableProvider) (*Builder, error) {
	authority, _, err := market.AuthorityPDA(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive authority: %w", err)
	}
	return &Builder{
		programID:  cfg.ProgramID,
		authority:  authority,
		wrapNative: cfg.WrapNative,
		priority:   priority,
		tables:     tables,
	}, nil
}

func (b *Builder) Instructions(ctx context.Context, owner solana.PublicKey, req LegRequest) ([]solana.Instruction, error) {
	leg := req.Leg
	accounts, err := swapAccountsForLeg(owner, b.authority, leg)
	if err != nil {
		return nil, err
	}
	swapIx, err := NewSwapInstruction(b.programID, leg.Mode, req.Amount, req.Threshold, accounts)
	if err != nil {
		return nil, err
	}

	ixs := make([]solana.Instruction, 0, 8)
	if b.priority != nil {
		ixs = append(ixs, b.priority.Instructions(ctx, []solana.PublicKey{
			leg.Pool.Address, accounts.InputVault, accounts.OutputVault,
		})...)
	}

	createOut, err := CreateATAInstructionForMint(owner, owner, leg.OutputMint, accounts.OutputTokenProgram)
	if err != nil {
		return nil, err
	}
	ixs = append(ixs, createOut)

	wrap := b.wrapNative && req.First && leg.InputMint.Equals(common.NativeMint)
	if wrap {
		wrapIxs, err := wrapNativeInstructions(owner, accounts.InputTokenAccount, req.MaxSpend())
		if err != nil {
			return nil, err
		}
		ixs = append(ixs, wrapIxs...)
	}

	ixs = append(ixs, swapIx)

	if wrap {
		// return unspent lamports and the rent of the temporary account
		ixs = append(ixs, token.NewCloseAccountInstruction(
			accounts.InputTokenAccount, owner, owner, nil,
		).Build())
	}
	return ixs, nil
}

func wrapNativeInstructions(owner, wsolAccount solana.PublicKey, lamports *big.Int) ([]solana.Instruction, error) {
	if lamports == nil || !lamports.IsUint64() {
		return nil, common.ErrAmountOverflow
	}
	createIx, err := CreateATAInstructionForMint(owner, owner, common.NativeMint, common.TokenProgramID)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{
		createIx,
		system.NewTransferInstruction(lamports.Uint64(), owner, wsolAccount).Build(),
		token.NewSyncNativeInstruction(wsolAccount).Build(),
	}, nil
}

// BuildTransaction assembles and signs a transaction for req against blockhash.
func (b *Builder) BuildTransaction(ctx context.Context, signer Signer, req LegRequest, blockhash solana.Hash) (*solana.Transaction, error) {
	if signer == nil || signer.PublicKey().IsZero() {
		return nil, ErrInvalidSigner
	}
	owner := signer.PublicKey()

	ixs, err := b.Instructions(ctx, owner, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}

	tables := map[solana.PublicKey]solana.PublicKeySlice{}
	if b.tables != nil {
		tables = b.tables.GetAddressTables()
	}
	tx, err := solana.NewTransaction(
		ixs,
		blockhash,
		solana.TransactionPayer(owner),
		solana.TransactionAddressTables(tables),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}

	if err := SignTransaction(tx, signer); err != nil {
		return nil, err
	}
	return tx, nil
}

// SignTransaction signs the serialized message with the fee payer, the only signer of
// a swap transaction.
func SignTransaction(tx *solana.Transaction, signer Signer) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	tx.Signatures = []solana.Signature{sig}
	return nil
}
