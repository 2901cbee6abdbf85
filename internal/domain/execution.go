package domain

import (
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
)

type ConfirmationState uint8

const (
	StateSubmitted ConfirmationState = iota
	StatePending
	StateConfirmed
	StateFailed
	StateTimedOut
)

func (s ConfirmationState) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

func (s ConfirmationState) IsTerminal() bool {
	return s == StateConfirmed || s == StateFailed || s == StateTimedOut
}

// ConfirmationStatus carries the on-chain reason when State is StateFailed.
type ConfirmationStatus struct {
	State  ConfirmationState
	Reason string
}

// SubmissionAttempt is one send of a signed payload. A new attempt is created per retry.
type SubmissionAttempt struct {
	Attempt              int
	Signature            solana.Signature
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	SubmittedAt          time.Time
	Err                  error
}

// Confirmation is the result of one submit-and-confirm cycle.
type Confirmation struct {
	Signature solana.Signature
	Status    ConfirmationStatus
	Attempts  []SubmissionAttempt
	Slot      uint64
	Elapsed   time.Duration
}

type ExecutionOutcome string

const (
	OutcomeCompleted ExecutionOutcome = "completed"
	OutcomePartial   ExecutionOutcome = "partial"
	OutcomeNone      ExecutionOutcome = "none"
)

// LegExecution records what happened to one leg of a plan.
type LegExecution struct {
	Index     int
	Leg       QuotedLeg
	Signature solana.Signature
	Status    ConfirmationStatus
	// Threshold is the on-chain bound: minimum out for ExactIn, maximum in for ExactOut.
	Threshold *big.Int
	// Settled is the amount of the leg's output token actually received, when known.
	Settled *big.Int
	Err     error
}

func (l *LegExecution) Submitted() bool {
	return l.Signature != (solana.Signature{})
}

type ExecutionResult struct {
	ID         string
	Plan       *SwapPlan
	Legs       []LegExecution
	Outcome    ExecutionOutcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// ConfirmedSignatures returns the transaction ids of legs that reached Confirmed, in order.
func (r *ExecutionResult) ConfirmedSignatures() []solana.Signature {
	sigs := make([]solana.Signature, 0, len(r.Legs))
	for _, leg := range r.Legs {
		if leg.Status.State == StateConfirmed {
			sigs = append(sigs, leg.Signature)
		}
	}
	return sigs
}

// SimulationResult is the outcome of a pre-flight simulation.
type SimulationResult struct {
	Success              bool     `json:"success"`
	Error                string   `json:"error,omitempty"`
	Logs                 []string `json:"logs,omitempty"`
	ComputeUnitsConsumed uint64   `json:"computeUnitsConsumed"`
	InsufficientFunds    bool     `json:"insufficientFunds"`
	SlippageExceeded     bool     `json:"slippageExceeded"`
}
