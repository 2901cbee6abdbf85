package router

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/hxuan190/swap-engine/internal/common"
)

// Price impact thresholds in basis points (bps)
const (
	PriceImpactLow      uint16 = 100  // 1%
	PriceImpactModerate uint16 = 300  // 3%
	PriceImpactHigh     uint16 = 500  // 5%
	PriceImpactExtreme  uint16 = 1000 // 10%
)

type PriceImpactSeverity string

const (
	SeverityNone     PriceImpactSeverity = "none"     // < 1%
	SeverityLow      PriceImpactSeverity = "low"      // 1-3%
	SeverityModerate PriceImpactSeverity = "moderate" // 3-5%
	SeverityHigh     PriceImpactSeverity = "high"     // 5-10%
	SeverityExtreme  PriceImpactSeverity = "extreme"  // > 10%
)

func GetPriceImpactSeverity(priceImpactBps uint16) PriceImpactSeverity {
	switch {
	case priceImpactBps < PriceImpactLow:
		return SeverityNone
	case priceImpactBps < PriceImpactModerate:
		return SeverityLow
	case priceImpactBps < PriceImpactHigh:
		return SeverityModerate
	case priceImpactBps < PriceImpactExtreme:
		return SeverityHigh
	default:
		return SeverityExtreme
	}
}

// CalculatePriceImpact measures how far a constant-product trade moved away from the
// pool's marginal price, fee excluded:
//
//	impact = 1 - (amountOut / (amountIn - fee)) / (reserveOut / reserveIn)
//
// The result is in bps and saturates at 10000.
func CalculatePriceImpact(reserveIn, reserveOut, amountIn, amountOut, fee *big.Int) uint16 {
	if reserveIn == nil || reserveOut == nil || amountIn == nil || amountOut == nil {
		return 0
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 || amountOut.Sign() <= 0 {
		return 0
	}
	afterFee := new(big.Int).Set(amountIn)
	if fee != nil {
		afterFee.Sub(afterFee, fee)
	}
	if afterFee.Sign() <= 0 {
		return 0
	}

	rIn, err1 := common.ToU256(reserveIn)
	rOut, err2 := common.ToU256(reserveOut)
	in, err3 := common.ToU256(afterFee)
	out, err4 := common.ToU256(amountOut)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return 0
	}

	// compare out*rIn against in*rOut
	executed, overflow := new(uint256.Int).MulOverflow(out, rIn)
	if overflow {
		return 0
	}
	marginal, overflow := new(uint256.Int).MulOverflow(in, rOut)
	if overflow {
		return 0
	}
	if !executed.Lt(marginal) {
		return 0
	}

	diff := new(uint256.Int).Sub(marginal, executed)
	impact, err := common.MulDivFloor(diff, common.BPS_DENOM, marginal)
	if err != nil || !impact.IsUint64() {
		return common.MaxBps
	}
	return uint16(impact.Uint64())
}

// CompoundPriceImpact combines per-leg impacts: 1 - (1-a)(1-b).
func CompoundPriceImpact(impacts ...uint16) uint16 {
	remaining := uint64(common.MaxBps)
	for _, bps := range impacts {
		if bps >= common.MaxBps {
			return common.MaxBps
		}
		remaining = remaining * uint64(common.MaxBps-bps) / uint64(common.MaxBps)
	}
	return uint16(uint64(common.MaxBps) - remaining)
}

func GetPriceImpactWarning(priceImpactBps uint16) string {
	switch GetPriceImpactSeverity(priceImpactBps) {
	case SeverityLow:
		return "Low price impact"
	case SeverityModerate:
		return "Moderate price impact - consider reducing trade size"
	case SeverityHigh:
		return "High price impact - you may receive significantly less tokens"
	case SeverityExtreme:
		return "EXTREME price impact - this trade will severely impact the market price"
	default:
		return ""
	}
}
