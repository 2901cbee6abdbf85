package common

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDivRounding(t *testing.T) {
	tests := []struct {
		name      string
		a, b, c   uint64
		wantFloor uint64
		wantCeil  uint64
	}{
		{"exact", 10, 10, 5, 20, 20},
		{"remainder", 10, 10, 3, 33, 34},
		{"zero numerator", 0, 99, 7, 0, 0},
		{"one", 1, 1, 2, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b, c := uint256.NewInt(tt.a), uint256.NewInt(tt.b), uint256.NewInt(tt.c)

			floor, err := MulDivFloor(a, b, c)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFloor, floor.Uint64())

			ceil, err := MulDivCeil(a, b, c)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCeil, ceil.Uint64())
		})
	}
}

func TestMulDivWideIntermediate(t *testing.T) {
	// (2^200 * 2^100) / 2^150 overflows 256 bits in the product but not in the result
	a := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	b := new(uint256.Int).Lsh(uint256.NewInt(1), 100)
	c := new(uint256.Int).Lsh(uint256.NewInt(1), 150)

	got, err := MulDivFloor(a, b, c)
	require.NoError(t, err)
	assert.Equal(t, new(uint256.Int).Lsh(uint256.NewInt(1), 150), got)
}

func TestMulDivErrors(t *testing.T) {
	_, err := MulDivFloor(uint256.NewInt(1), uint256.NewInt(1), uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrDivisionByZero)

	big1 := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	_, err = MulDivFloor(big1, uint256.NewInt(4), uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestToU256(t *testing.T) {
	_, err := ToU256(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrNegativeAmount)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = ToU256(tooBig)
	assert.ErrorIs(t, err, ErrAmountOverflow)

	v, err := ToU256(big.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v.Uint64())
}

func TestSlippageThresholds(t *testing.T) {
	minOut, err := MinAmountOut(big.NewInt(1992), 50)
	require.NoError(t, err)
	// 1992 * 9950 / 10000 = 1982.04
	assert.Equal(t, "1982", minOut.String())

	maxIn, err := MaxAmountIn(big.NewInt(1003), 50)
	require.NoError(t, err)
	// 1003 * 10050 / 10000 = 1008.015 -> 1009
	assert.Equal(t, "1009", maxIn.String())

	zero, err := MinAmountOut(big.NewInt(1000), 0)
	require.NoError(t, err)
	assert.Equal(t, "1000", zero.String())

	_, err = MinAmountOut(big.NewInt(1000), 10000)
	assert.ErrorIs(t, err, ErrInvalidBps)
}

func TestBaseUnitConversion(t *testing.T) {
	tests := []struct {
		display  string
		decimals uint8
		want     string
	}{
		{"1", 9, "1000000000"},
		{"1.5", 6, "1500000"},
		{"0.000001", 6, "1"},
		{"123.456", 3, "123456"},
		{"0", 9, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			got, err := ParseDisplayAmount(tt.display, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())

			assert.True(t, FromBaseUnits(got, tt.decimals).Equal(decimal.RequireFromString(tt.display)))
		})
	}

	_, err := ParseDisplayAmount("0.0000001", 6)
	assert.ErrorIs(t, err, ErrFractionalUnits)

	_, err = ParseDisplayAmount("-1", 6)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = ParseDisplayAmount("abc", 6)
	assert.Error(t, err)
}

func TestFormatBaseUnits(t *testing.T) {
	assert.Equal(t, "1.5", FormatBaseUnits(big.NewInt(1_500_000), 6))
	assert.Equal(t, "0.000000001", FormatBaseUnits(big.NewInt(1), 9))
	assert.Equal(t, "0", FormatBaseUnits(nil, 9))
}

func TestRatio(t *testing.T) {
	// 2 B (6 decimals) per 1 A (9 decimals)
	r := Ratio(big.NewInt(2_000_000), 6, big.NewInt(1_000_000_000), 9, 8)
	assert.Equal(t, "2", r.String())

	assert.True(t, Ratio(big.NewInt(1), 0, big.NewInt(0), 0, 8).IsZero())
}
