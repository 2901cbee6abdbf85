// Package curve prices trades against a constant-product (x*y=k) pool.
//
// The trade fee is taken from the input side before the swap is applied. All
// arithmetic is integer; every rounding step favours the pool:
//   - fees round up
//   - ExactIn output rounds down
//   - ExactOut input rounds up
package curve

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
)

var (
	ErrInvalidFeeRate = errors.New("fee rate must be below 1000000 ppm")
	ErrZeroOutput     = errors.New("trade output rounds to zero")
	ErrInvariant      = errors.New("constant-product invariant violated")
)

// Quote is the result of one curve evaluation. Fee is denominated in the input token
// and is included in AmountIn.
type Quote struct {
	AmountIn  *big.Int
	AmountOut *big.Int
	Fee       *big.Int
}

type operands struct {
	reserveIn, reserveOut, feeRate *uint256.Int
}

func prepare(reserveIn, reserveOut *big.Int, feeRate uint64, amount *big.Int) (*operands, *uint256.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, domain.ErrInvalidAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: empty reserve", domain.ErrInsufficientLiquidity)
	}
	fr := uint256.NewInt(feeRate)
	if !fr.Lt(common.FEE_BASE) {
		return nil, nil, ErrInvalidFeeRate
	}
	rIn, err := common.ToU256(reserveIn)
	if err != nil {
		return nil, nil, err
	}
	rOut, err := common.ToU256(reserveOut)
	if err != nil {
		return nil, nil, err
	}
	amt, err := common.ToU256(amount)
	if err != nil {
		return nil, nil, err
	}
	return &operands{reserveIn: rIn, reserveOut: rOut, feeRate: fr}, amt, nil
}

// PriceExactIn returns the output for spending exactly amountIn.
func PriceExactIn(reserveIn, reserveOut *big.Int, feeRate uint64, amountIn *big.Int) (*Quote, error) {
	ops, in, err := prepare(reserveIn, reserveOut, feeRate, amountIn)
	if err != nil {
		return nil, err
	}

	fee, err := common.MulDivCeil(in, ops.feeRate, common.FEE_BASE)
	if err != nil {
		return nil, err
	}
	afterFee := new(uint256.Int).Sub(in, fee)

	// out = reserveOut * afterFee / (reserveIn + afterFee)
	denom, overflow := new(uint256.Int).AddOverflow(ops.reserveIn, afterFee)
	if overflow {
		return nil, common.ErrAmountOverflow
	}
	out, err := common.MulDivFloor(ops.reserveOut, afterFee, denom)
	if err != nil {
		return nil, err
	}
	if out.IsZero() {
		return nil, ErrZeroOutput
	}
	if !out.Lt(ops.reserveOut) {
		return nil, fmt.Errorf("%w: output would drain the pool", domain.ErrInsufficientLiquidity)
	}
	if err := checkInvariant(ops, afterFee, out); err != nil {
		return nil, err
	}

	return &Quote{AmountIn: in.ToBig(), AmountOut: out.ToBig(), Fee: fee.ToBig()}, nil
}

// PriceExactOut returns the input required to receive exactly amountOut.
func PriceExactOut(reserveIn, reserveOut *big.Int, feeRate uint64, amountOut *big.Int) (*Quote, error) {
	ops, out, err := prepare(reserveIn, reserveOut, feeRate, amountOut)
	if err != nil {
		return nil, err
	}
	if !out.Lt(ops.reserveOut) {
		return nil, fmt.Errorf("%w: requested %s of %s in reserve", domain.ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	// afterFee = ceil(reserveIn * out / (reserveOut - out))
	remaining := new(uint256.Int).Sub(ops.reserveOut, out)
	afterFee, err := common.MulDivCeil(ops.reserveIn, out, remaining)
	if err != nil {
		return nil, err
	}

	// amountIn = ceil(afterFee * FEE_BASE / (FEE_BASE - feeRate))
	keep := new(uint256.Int).Sub(common.FEE_BASE, ops.feeRate)
	in, err := common.MulDivCeil(afterFee, common.FEE_BASE, keep)
	if err != nil {
		return nil, err
	}
	fee := new(uint256.Int).Sub(in, afterFee)

	if err := checkInvariant(ops, afterFee, out); err != nil {
		return nil, err
	}

	return &Quote{AmountIn: in.ToBig(), AmountOut: out.ToBig(), Fee: fee.ToBig()}, nil
}

// checkInvariant verifies (reserveIn + afterFee) * (reserveOut - out) >= reserveIn * reserveOut.
// Both sides are compared as big.Int since the products may exceed 256 bits.
func checkInvariant(ops *operands, afterFee, out *uint256.Int) error {
	newIn := new(big.Int).Add(ops.reserveIn.ToBig(), afterFee.ToBig())
	newOut := new(big.Int).Sub(ops.reserveOut.ToBig(), out.ToBig())
	after := new(big.Int).Mul(newIn, newOut)
	before := new(big.Int).Mul(ops.reserveIn.ToBig(), ops.reserveOut.ToBig())
	if after.Cmp(before) < 0 {
		return ErrInvariant
	}
	return nil
}

// Price dispatches on mode. amount is the input for ExactIn and the output for ExactOut.
func Price(mode domain.SwapMode, reserveIn, reserveOut *big.Int, feeRate uint64, amount *big.Int) (*Quote, error) {
	switch mode {
	case domain.ExactIn:
		return PriceExactIn(reserveIn, reserveOut, feeRate, amount)
	case domain.ExactOut:
		return PriceExactOut(reserveIn, reserveOut, feeRate, amount)
	default:
		return nil, domain.ErrInvalidSwapMode
	}
}
