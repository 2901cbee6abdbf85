package domain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/swap-engine/internal/common"
)

type SwapMode string

const (
	ExactIn  SwapMode = common.SwapModeExactIn
	ExactOut SwapMode = common.SwapModeExactOut
)

func ParseSwapMode(s string) (SwapMode, error) {
	switch SwapMode(s) {
	case ExactIn, ExactOut:
		return SwapMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSwapMode, s)
	}
}

// TradeIntent is what the caller wants to trade. Amount is the fixed side:
// the input for ExactIn, the output for ExactOut.
type TradeIntent struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      *big.Int
	Mode        SwapMode
	SlippageBps uint16
}

func (t TradeIntent) Validate() error {
	if t.InputMint.IsZero() || t.OutputMint.IsZero() {
		return ErrInvalidMint
	}
	if t.InputMint.Equals(t.OutputMint) {
		return ErrSameMint
	}
	if t.Amount == nil || t.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if t.Mode != ExactIn && t.Mode != ExactOut {
		return ErrInvalidSwapMode
	}
	if t.SlippageBps >= common.MaxBps {
		return ErrInvalidSlippage
	}
	return nil
}

// QuotedLeg is a single curve evaluation against one pool.
type QuotedLeg struct {
	Pool           *Pool
	Mode           SwapMode
	InputMint      solana.PublicKey
	OutputMint     solana.PublicKey
	AmountIn       *big.Int
	AmountOut      *big.Int
	Fee            *big.Int // charged in InputMint
	AToB           bool
	PriceImpactBps uint16
}

// SwapPlan is an ordered list of one (direct) or two (routed) legs.
type SwapPlan struct {
	Intent         TradeIntent
	Legs           []QuotedLeg
	AmountIn       *big.Int
	AmountOut      *big.Int
	PriceImpactBps uint16
}

func (p *SwapPlan) IsRouted() bool {
	return len(p.Legs) == 2
}

// RouteToken is the boundary token of a routed plan.
func (p *SwapPlan) RouteToken() (solana.PublicKey, bool) {
	if !p.IsRouted() {
		return solana.PublicKey{}, false
	}
	return p.Legs[0].OutputMint, true
}

// Route returns the mint path, e.g. [A, B] or [A, R, B].
func (p *SwapPlan) Route() []solana.PublicKey {
	route := make([]solana.PublicKey, 0, len(p.Legs)+1)
	for i, leg := range p.Legs {
		if i == 0 {
			route = append(route, leg.InputMint)
		}
		route = append(route, leg.OutputMint)
	}
	return route
}

// EffectivePrice is output per unit of input, adjusted for decimals.
func (p *SwapPlan) EffectivePrice() decimal.Decimal {
	if len(p.Legs) == 0 {
		return decimal.Zero
	}
	first, last := p.Legs[0], p.Legs[len(p.Legs)-1]
	_, _, inDec, err := first.Pool.Side(first.InputMint)
	if err != nil {
		return decimal.Zero
	}
	_, _, outDec, err := last.Pool.Side(last.OutputMint)
	if err != nil {
		return decimal.Zero
	}
	return common.Ratio(p.AmountOut, outDec, p.AmountIn, inDec, 12)
}

var ErrMalformedPlan = errors.New("malformed swap plan")

// Validate checks the structural invariants of a plan.
func (p *SwapPlan) Validate() error {
	switch len(p.Legs) {
	case 1:
	case 2:
		if !p.Legs[0].OutputMint.Equals(p.Legs[1].InputMint) {
			return fmt.Errorf("%w: leg boundary token mismatch", ErrMalformedPlan)
		}
	default:
		return fmt.Errorf("%w: %d legs", ErrMalformedPlan, len(p.Legs))
	}
	first, last := p.Legs[0], p.Legs[len(p.Legs)-1]
	if !first.InputMint.Equals(p.Intent.InputMint) || !last.OutputMint.Equals(p.Intent.OutputMint) {
		return fmt.Errorf("%w: route does not match intent", ErrMalformedPlan)
	}
	for i, leg := range p.Legs {
		if leg.Pool == nil || leg.AmountIn == nil || leg.AmountOut == nil {
			return fmt.Errorf("%w: leg %d is incomplete", ErrMalformedPlan, i+1)
		}
	}
	return nil
}
