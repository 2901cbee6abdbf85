package common

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ErrAmountOverflow  = errors.New("amount exceeds 256-bit range")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrInvalidBps      = errors.New("basis points must be below 10000")
	ErrFractionalUnits = errors.New("amount has more fractional digits than the token supports")
)

var (
	// FEE_BASE is the denominator for pool fee rates (parts per million)
	FEE_BASE = uint256.NewInt(1_000_000)
	// BPS_DENOM is the denominator for basis points
	BPS_DENOM = uint256.NewInt(10_000)

	u256One = uint256.NewInt(1)
)

// ToU256 converts a non-negative big.Int to uint256.
func ToU256(x *big.Int) (*uint256.Int, error) {
	if x == nil {
		return new(uint256.Int), nil
	}
	if x.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	v, overflow := uint256.FromBig(x)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return v, nil
}

// MulDivFloor returns floor(a*b/c) using a 512-bit intermediate product.
func MulDivFloor(a, b, c *uint256.Int) (*uint256.Int, error) {
	if c.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, c)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return z, nil
}

// MulDivCeil returns ceil(a*b/c).
func MulDivCeil(a, b, c *uint256.Int) (*uint256.Int, error) {
	z, err := MulDivFloor(a, b, c)
	if err != nil {
		return nil, err
	}
	if !new(uint256.Int).MulMod(a, b, c).IsZero() {
		if z.Eq(maxU256) {
			return nil, ErrAmountOverflow
		}
		z.Add(z, u256One)
	}
	return z, nil
}

var maxU256 = new(uint256.Int).SetAllOne()

// MinAmountOut applies a slippage tolerance to a quoted output:
// floor(amount * (10000 - bps) / 10000).
func MinAmountOut(amount *big.Int, slippageBps uint16) (*big.Int, error) {
	if slippageBps >= MaxBps {
		return nil, ErrInvalidBps
	}
	a, err := ToU256(amount)
	if err != nil {
		return nil, err
	}
	out, err := MulDivFloor(a, uint256.NewInt(uint64(MaxBps-slippageBps)), BPS_DENOM)
	if err != nil {
		return nil, err
	}
	return out.ToBig(), nil
}

// MaxAmountIn applies a slippage tolerance to a quoted input:
// ceil(amount * (10000 + bps) / 10000).
func MaxAmountIn(amount *big.Int, slippageBps uint16) (*big.Int, error) {
	if slippageBps >= MaxBps {
		return nil, ErrInvalidBps
	}
	a, err := ToU256(amount)
	if err != nil {
		return nil, err
	}
	out, err := MulDivCeil(a, uint256.NewInt(uint64(MaxBps)+uint64(slippageBps)), BPS_DENOM)
	if err != nil {
		return nil, err
	}
	return out.ToBig(), nil
}

// ToBaseUnits converts a display amount into the token's smallest unit.
// Digits beyond the token's precision are rejected rather than rounded.
func ToBaseUnits(display decimal.Decimal, decimals uint8) (*big.Int, error) {
	if display.IsNegative() {
		return nil, ErrNegativeAmount
	}
	shifted := display.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, ErrFractionalUnits
	}
	return shifted.BigInt(), nil
}

// ParseDisplayAmount parses a display string such as "1.25" into base units.
func ParseDisplayAmount(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return ToBaseUnits(d, decimals)
}

// FromBaseUnits converts a smallest-unit amount into its display value.
func FromBaseUnits(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// FormatBaseUnits renders a smallest-unit amount as a display string.
func FormatBaseUnits(amount *big.Int, decimals uint8) string {
	return FromBaseUnits(amount, decimals).String()
}

// Ratio returns (num/10^numDecimals) / (den/10^denDecimals) rounded to precision places.
func Ratio(num *big.Int, numDecimals uint8, den *big.Int, denDecimals uint8, precision int32) decimal.Decimal {
	if num == nil || den == nil || den.Sign() == 0 {
		return decimal.Zero
	}
	return FromBaseUnits(num, numDecimals).DivRound(FromBaseUnits(den, denDecimals), precision)
}
