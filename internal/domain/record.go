package domain

import (
	"time"
)

// ExecutionRecord is the persisted, display-friendly summary of an ExecutionResult.
type ExecutionRecord struct {
	ID          string      `json:"id"`
	InputMint   string      `json:"inputMint"`
	OutputMint  string      `json:"outputMint"`
	SwapMode    string      `json:"swapMode"`
	Amount      string      `json:"amount"`
	SlippageBps uint16      `json:"slippageBps"`
	Outcome     string      `json:"outcome"`
	Legs        []LegRecord `json:"legs"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"startedAt"`
	FinishedAt  time.Time   `json:"finishedAt"`
}

type LegRecord struct {
	Index      int    `json:"index"`
	Pool       string `json:"pool"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	AmountIn   string `json:"amountIn"`
	AmountOut  string `json:"amountOut"`
	Threshold  string `json:"threshold,omitempty"`
	Settled    string `json:"settled,omitempty"`
	Signature  string `json:"signature,omitempty"`
	State      string `json:"state"`
	Reason     string `json:"reason,omitempty"`
}

// NewExecutionRecord flattens a result; execErr is the error returned alongside it.
func NewExecutionRecord(res *ExecutionResult, execErr error) *ExecutionRecord {
	rec := &ExecutionRecord{
		ID:         res.ID,
		Outcome:    string(res.Outcome),
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Legs:       make([]LegRecord, 0, len(res.Legs)),
	}
	if execErr != nil {
		rec.Error = execErr.Error()
	}
	if res.Plan != nil {
		in := res.Plan.Intent
		rec.InputMint = in.InputMint.String()
		rec.OutputMint = in.OutputMint.String()
		rec.SwapMode = string(in.Mode)
		rec.SlippageBps = in.SlippageBps
		if in.Amount != nil {
			rec.Amount = in.Amount.String()
		}
	}

	for _, leg := range res.Legs {
		lr := LegRecord{
			Index:      leg.Index,
			InputMint:  leg.Leg.InputMint.String(),
			OutputMint: leg.Leg.OutputMint.String(),
			State:      leg.Status.State.String(),
			Reason:     leg.Status.Reason,
		}
		if leg.Leg.Pool != nil {
			lr.Pool = leg.Leg.Pool.Address.String()
		}
		if leg.Leg.AmountIn != nil {
			lr.AmountIn = leg.Leg.AmountIn.String()
		}
		if leg.Leg.AmountOut != nil {
			lr.AmountOut = leg.Leg.AmountOut.String()
		}
		if leg.Threshold != nil {
			lr.Threshold = leg.Threshold.String()
		}
		if leg.Settled != nil {
			lr.Settled = leg.Settled.String()
		}
		if leg.Submitted() {
			lr.Signature = leg.Signature.String()
		}
		if lr.Reason == "" && leg.Err != nil {
			lr.Reason = leg.Err.Error()
		}
		rec.Legs = append(rec.Legs, lr)
	}
	return rec
}
