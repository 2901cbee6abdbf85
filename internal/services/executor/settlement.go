package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var ErrNoSettlement = errors.New("no settled balance change found")

type TransactionClient interface {
	GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// SettlementReader reads how much of a token an owner actually received in a
// confirmed transaction, from its pre and post token balances.
type SettlementReader struct {
	client     TransactionClient
	commitment rpc.CommitmentType
	timeout    time.Duration
}

func NewSettlementReader(client TransactionClient, commitment rpc.CommitmentType, timeout time.Duration) *SettlementReader {
	// getTransaction does not accept processed
	if commitment == "" || commitment == rpc.CommitmentProcessed {
		commitment = rpc.CommitmentConfirmed
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SettlementReader{client: client, commitment: commitment, timeout: timeout}
}

func (r *SettlementReader) SettledAmount(ctx context.Context, sig solana.Signature, owner, mint solana.PublicKey) (*big.Int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	version := uint64(0)
	tx, err := r.client.GetTransaction(reqCtx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     r.commitment,
		MaxSupportedTransactionVersion: &version,
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", sig, err)
	}
	if tx == nil || tx.Meta == nil {
		return nil, fmt.Errorf("%w: %s has no metadata", ErrNoSettlement, sig)
	}
	if tx.Meta.Err != nil {
		return nil, fmt.Errorf("%w: %s failed: %v", ErrNoSettlement, sig, tx.Meta.Err)
	}

	pre, err := ownedBalance(tx.Meta.PreTokenBalances, owner, mint)
	if err != nil {
		return nil, err
	}
	post, err := ownedBalance(tx.Meta.PostTokenBalances, owner, mint)
	if err != nil {
		return nil, err
	}

	delta := new(big.Int).Sub(post, pre)
	if delta.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s delta %s for mint %s", ErrNoSettlement, sig, delta, mint)
	}
	return delta, nil
}

// ownedBalance sums the raw balances of every account of mint held by owner.
// An account created by the transaction has no pre balance and counts as zero.
func ownedBalance(balances []rpc.TokenBalance, owner, mint solana.PublicKey) (*big.Int, error) {
	total := new(big.Int)
	for _, b := range balances {
		if b.Owner == nil || !b.Owner.Equals(owner) || !b.Mint.Equals(mint) || b.UiTokenAmount == nil {
			continue
		}
		amount, ok := new(big.Int).SetString(b.UiTokenAmount.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("invalid token amount %q", b.UiTokenAmount.Amount)
		}
		total.Add(total, amount)
	}
	return total, nil
}
