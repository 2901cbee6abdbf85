package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/hxuan190/swap-engine/internal/domain"
)

type SimulationClient interface {
	SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error)
}

type Simulator struct {
	client SimulationClient
}

func NewSimulator(client SimulationClient) *Simulator {
	return &Simulator{client: client}
}

// SimulateTransaction runs tx against the latest bank state. A failing transaction is
// reported in the result; only transport failures return an error.
func (s *Simulator) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*domain.SimulationResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is nil")
	}

	result, err := s.client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		Commitment:             rpc.CommitmentProcessed,
		ReplaceRecentBlockhash: true,
	})
	if err != nil {
		return nil, fmt.Errorf("simulate transaction: %w", err)
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("simulate transaction: empty response")
	}

	simResult := &domain.SimulationResult{
		Success: result.Value.Err == nil,
		Logs:    result.Value.Logs,
	}
	if result.Value.UnitsConsumed != nil {
		simResult.ComputeUnitsConsumed = *result.Value.UnitsConsumed
	}

	if result.Value.Err != nil {
		simResult.Error = fmt.Sprintf("%v", result.Value.Err)
		classify(simResult)
	}
	return simResult, nil
}

// classify flags common failure causes from the error and program logs.
func classify(res *domain.SimulationResult) {
	text := strings.ToLower(res.Error + "\n" + strings.Join(res.Logs, "\n"))
	res.InsufficientFunds = strings.Contains(text, "insufficient") || strings.Contains(text, "not enough")
	res.SlippageExceeded = strings.Contains(text, "exceededslippage") || strings.Contains(text, "slippage")
}

// ValidateSwapSimulation turns a failed simulation into an error.
func ValidateSwapSimulation(res *domain.SimulationResult) error {
	if res.Success {
		return nil
	}
	if res.InsufficientFunds {
		return fmt.Errorf("insufficient funds: %s", res.Error)
	}
	if res.SlippageExceeded {
		return fmt.Errorf("%w: %s", domain.ErrSlippageExceeded, res.Error)
	}
	return fmt.Errorf("transaction would fail: %s", res.Error)
}
