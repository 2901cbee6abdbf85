package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvalidMint     = errors.New("invalid mint")
	ErrSameMint        = errors.New("input and output mint are the same")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidSwapMode = errors.New("swap mode must be ExactIn or ExactOut")
	ErrInvalidSlippage = errors.New("slippage must be below 10000 bps")

	// ErrNoPoolFound is informational: it drives routing and is only surfaced
	// when routing fails as well.
	ErrNoPoolFound           = errors.New("no pool found")
	ErrNoRouteAvailable      = errors.New("no route available")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrPoolDisabled          = errors.New("pool swaps are disabled")
	ErrSlippageExceeded      = errors.New("slippage bound exceeded")

	ErrSubmissionFailed     = errors.New("transaction submission failed")
	ErrTransactionFailed    = errors.New("transaction failed on-chain")
	ErrConfirmationTimeout  = errors.New("transaction confirmation timed out")
	ErrPartialRouteExecuted = errors.New("route partially executed: leg 1 confirmed, leg 2 did not")
)

// LegError tags an error with the 1-based leg it came from.
type LegError struct {
	Leg int
	Err error
}

func (e *LegError) Error() string {
	return fmt.Sprintf("leg %d: %v", e.Leg, e.Err)
}

func (e *LegError) Unwrap() error {
	return e.Err
}

// SubmissionError is returned once every submission attempt failed.
type SubmissionError struct {
	Attempts int
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", ErrSubmissionFailed, e.Attempts, e.Err)
}

func (e *SubmissionError) Unwrap() []error {
	return []error{ErrSubmissionFailed, e.Err}
}

// OnchainError is a terminal execution failure reported by the network.
type OnchainError struct {
	Signature solana.Signature
	Reason    string
}

func (e *OnchainError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrTransactionFailed, e.Signature, e.Reason)
}

func (e *OnchainError) Unwrap() error {
	return ErrTransactionFailed
}

// TimeoutError means the outcome is unknown; the transaction may still land.
type TimeoutError struct {
	Signature solana.Signature
	Elapsed   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%v: %s after %s", ErrConfirmationTimeout, e.Signature, e.Elapsed)
}

func (e *TimeoutError) Unwrap() error {
	return ErrConfirmationTimeout
}

// PartialRouteError reports a routed plan whose first leg settled while the second did not.
type PartialRouteError struct {
	Leg1Signature solana.Signature
	Cause         error
}

func (e *PartialRouteError) Error() string {
	return fmt.Sprintf("%v (leg 1 %s): %v", ErrPartialRouteExecuted, e.Leg1Signature, e.Cause)
}

func (e *PartialRouteError) Unwrap() []error {
	return []error{ErrPartialRouteExecuted, e.Cause}
}

// FailedLeg extracts the leg index from err, or 0 when none is attached.
func FailedLeg(err error) int {
	var legErr *LegError
	if errors.As(err, &legErr) {
		return legErr.Leg
	}
	if errors.Is(err, ErrPartialRouteExecuted) {
		return 2
	}
	return 0
}
