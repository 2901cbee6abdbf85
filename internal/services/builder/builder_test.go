package builder

import (
	"context"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/services/priority"
)

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func testPool(mintA, mintB solana.PublicKey) *domain.Pool {
	return &domain.Pool{
		Address:        newKey(),
		ProgramID:      common.CPMMProgramID,
		AmmConfig:      newKey(),
		TokenMintA:     mintA,
		TokenMintB:     mintB,
		TokenVaultA:    newKey(),
		TokenVaultB:    newKey(),
		TokenProgramA:  common.TokenProgramID,
		TokenProgramB:  common.Token2022ID,
		DecimalsA:      9,
		DecimalsB:      6,
		ObservationKey: newKey(),
		ReserveA:       big.NewInt(1_000_000),
		ReserveB:       big.NewInt(2_000_000),
		FeeRate:        2500,
	}
}

func testLeg(pool *domain.Pool, mode domain.SwapMode, in, out int64) domain.QuotedLeg {
	return domain.QuotedLeg{
		Pool:       pool,
		Mode:       mode,
		InputMint:  pool.TokenMintA,
		OutputMint: pool.TokenMintB,
		AmountIn:   big.NewInt(in),
		AmountOut:  big.NewInt(out),
		Fee:        big.NewInt(3),
		AToB:       true,
	}
}

type fixedPriority struct{}

func (fixedPriority) Instructions(ctx context.Context, writable []solana.PublicKey) []solana.Instruction {
	return []solana.Instruction{
		priority.NewSetComputeUnitLimitInstruction(200_000),
		priority.NewSetComputeUnitPriceInstruction(1_000),
	}
}

func newTestBuilder(t *testing.T, wrap bool) *Builder {
	t.Helper()
	b, err := NewBuilder(Config{ProgramID: common.CPMMProgramID, WrapNative: wrap}, fixedPriority{}, nil)
	require.NoError(t, err)
	return b
}

func TestSwapInstructionData(t *testing.T) {
	accounts := SwapAccounts{Payer: newKey()}

	ix, err := NewSwapInstruction(common.CPMMProgramID, domain.ExactIn, big.NewInt(1000), big.NewInt(1982), accounts)
	require.NoError(t, err)
	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, swapBaseInputDiscriminator[:], data[:8])
	assert.Equal(t, uint64(1000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(1982), binary.LittleEndian.Uint64(data[16:24]))

	ix, err = NewSwapInstruction(common.CPMMProgramID, domain.ExactOut, big.NewInt(500), big.NewInt(1010), accounts)
	require.NoError(t, err)
	data, err = ix.Data()
	require.NoError(t, err)
	assert.Equal(t, swapBaseOutputDiscriminator[:], data[:8])
	// max_amount_in precedes amount_out
	assert.Equal(t, uint64(1010), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(500), binary.LittleEndian.Uint64(data[16:24]))
}

func TestSwapInstructionRejectsBadAmounts(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 70)

	_, err := NewSwapInstruction(common.CPMMProgramID, domain.ExactIn, huge, big.NewInt(1), SwapAccounts{})
	assert.ErrorIs(t, err, common.ErrAmountOverflow)

	_, err = NewSwapInstruction(common.CPMMProgramID, domain.ExactIn, big.NewInt(0), big.NewInt(1), SwapAccounts{})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = NewSwapInstruction(common.CPMMProgramID, "sideways", big.NewInt(1), big.NewInt(1), SwapAccounts{})
	assert.ErrorIs(t, err, domain.ErrInvalidSwapMode)
}

func TestSwapAccountsOrder(t *testing.T) {
	owner := newKey()
	pool := testPool(newKey(), newKey())
	leg := testLeg(pool, domain.ExactIn, 1000, 1992)
	leg.InputMint, leg.OutputMint, leg.AToB = pool.TokenMintB, pool.TokenMintA, false

	b := newTestBuilder(t, false)
	accounts, err := swapAccountsForLeg(owner, b.authority, leg)
	require.NoError(t, err)

	ix, err := NewSwapInstruction(common.CPMMProgramID, domain.ExactIn, big.NewInt(1), big.NewInt(1), accounts)
	require.NoError(t, err)
	metas := ix.Accounts()
	require.Len(t, metas, 13)

	assert.Equal(t, owner, metas[0].PublicKey)
	assert.True(t, metas[0].IsSigner)
	assert.Equal(t, pool.AmmConfig, metas[2].PublicKey)
	assert.Equal(t, pool.Address, metas[3].PublicKey)
	assert.True(t, metas[3].IsWritable)
	// B -> A: input vault is vault B
	assert.Equal(t, pool.TokenVaultB, metas[6].PublicKey)
	assert.Equal(t, pool.TokenVaultA, metas[7].PublicKey)
	assert.Equal(t, common.Token2022ID, metas[8].PublicKey)
	assert.Equal(t, common.TokenProgramID, metas[9].PublicKey)
	assert.Equal(t, pool.TokenMintB, metas[10].PublicKey)
	assert.Equal(t, pool.ObservationKey, metas[12].PublicKey)
	for _, m := range metas[1:] {
		assert.False(t, m.IsSigner)
	}

	inATA, err := GetATAAddressForMint(owner, pool.TokenMintB, common.Token2022ID)
	require.NoError(t, err)
	assert.Equal(t, inATA, metas[4].PublicKey)
}

func TestNewLegRequest(t *testing.T) {
	pool := testPool(newKey(), newKey())

	req, err := NewLegRequest(testLeg(pool, domain.ExactIn, 1000, 1992), 50, true)
	require.NoError(t, err)
	assert.Equal(t, "1000", req.Amount.String())
	assert.Equal(t, "1982", req.Threshold.String())
	assert.Equal(t, "1000", req.MaxSpend().String())

	req, err = NewLegRequest(testLeg(pool, domain.ExactOut, 1003, 2000), 50, true)
	require.NoError(t, err)
	assert.Equal(t, "2000", req.Amount.String())
	assert.Equal(t, "1009", req.Threshold.String())
	assert.Equal(t, "1009", req.MaxSpend().String())

	_, err = NewLegRequest(testLeg(pool, domain.ExactIn, 1000, 1992), 10000, true)
	assert.Error(t, err)
}

func TestInstructionsLayout(t *testing.T) {
	owner := newKey()
	pool := testPool(newKey(), newKey())
	req, err := NewLegRequest(testLeg(pool, domain.ExactIn, 1000, 1992), 50, true)
	require.NoError(t, err)

	ixs, err := newTestBuilder(t, true).Instructions(context.Background(), owner, req)
	require.NoError(t, err)
	require.Len(t, ixs, 4)
	assert.Equal(t, priority.ComputeBudgetProgramID, ixs[0].ProgramID())
	assert.Equal(t, priority.ComputeBudgetProgramID, ixs[1].ProgramID())
	assert.Equal(t, common.ATAProgramID, ixs[2].ProgramID())
	assert.Equal(t, common.CPMMProgramID, ixs[3].ProgramID())

	outATA, err := GetATAAddressForMint(owner, pool.TokenMintB, common.Token2022ID)
	require.NoError(t, err)
	assert.Equal(t, outATA, ixs[2].Accounts()[1].PublicKey)
	data, err := ixs[2].Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
}

func TestInstructionsWrapNativeInput(t *testing.T) {
	owner := newKey()
	pool := testPool(common.NativeMint, newKey())
	req, err := NewLegRequest(testLeg(pool, domain.ExactOut, 1003, 2000), 50, true)
	require.NoError(t, err)

	ixs, err := newTestBuilder(t, true).Instructions(context.Background(), owner, req)
	require.NoError(t, err)
	require.Len(t, ixs, 8)

	wsol, err := GetATAAddressForMint(owner, common.NativeMint, common.TokenProgramID)
	require.NoError(t, err)

	assert.Equal(t, common.ATAProgramID, ixs[3].ProgramID())
	assert.Equal(t, solana.SystemProgramID, ixs[4].ProgramID())
	transfer, err := ixs[4].Data()
	require.NoError(t, err)
	// system transfer: u32 index 2, u64 lamports (max spend)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(transfer[:4]))
	assert.Equal(t, uint64(1009), binary.LittleEndian.Uint64(transfer[4:12]))
	assert.Equal(t, wsol, ixs[4].Accounts()[1].PublicKey)
	assert.Equal(t, solana.TokenProgramID, ixs[5].ProgramID())
	assert.Equal(t, common.CPMMProgramID, ixs[6].ProgramID())
	assert.Equal(t, solana.TokenProgramID, ixs[7].ProgramID())

	// not the first leg: the wSOL is already in the account
	req.First = false
	ixs, err = newTestBuilder(t, true).Instructions(context.Background(), owner, req)
	require.NoError(t, err)
	assert.Len(t, ixs, 4)

	// wrapping disabled
	req.First = true
	ixs, err = newTestBuilder(t, false).Instructions(context.Background(), owner, req)
	require.NoError(t, err)
	assert.Len(t, ixs, 4)
}

func TestBuildTransactionSigns(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	pool := testPool(newKey(), newKey())
	req, err := NewLegRequest(testLeg(pool, domain.ExactIn, 1000, 1992), 50, true)
	require.NoError(t, err)
	blockhash := solana.Hash(newKey())

	tx, err := newTestBuilder(t, false).BuildTransaction(context.Background(), key, req, blockhash)
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)
	assert.Equal(t, key.PublicKey(), tx.Message.AccountKeys[0])
	assert.Equal(t, blockhash, tx.Message.RecentBlockhash)

	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, tx.Signatures[0].Verify(key.PublicKey(), msg))
}

func TestBuildTransactionMissingPoolData(t *testing.T) {
	pool := testPool(newKey(), newKey())
	pool.ObservationKey = solana.PublicKey{}
	req, err := NewLegRequest(testLeg(pool, domain.ExactIn, 1000, 1992), 50, true)
	require.NoError(t, err)

	_, err = newTestBuilder(t, false).BuildTransaction(context.Background(), solana.NewWallet().PrivateKey, req, solana.Hash{})
	assert.ErrorIs(t, err, ErrBuildFailed)
	assert.ErrorContains(t, err, ErrMissingPoolData.Error())
}

func TestLUTManagerWithoutTables(t *testing.T) {
	addrs, err := ParseLUTAddresses(nil)
	require.NoError(t, err)
	m := NewLUTManager(nil, addrs, 0)
	m.Start(context.Background())
	defer m.Stop()
	assert.Empty(t, m.GetAddressTables())

	_, err = ParseLUTAddresses([]string{"nope"})
	assert.Error(t, err)
}
