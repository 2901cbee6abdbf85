package market

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

const (
	ammConfigSeed = "amm_config"
	poolSeed      = "pool"
	authoritySeed = "vault_and_lp_mint_auth_seed"
)

// SortMints returns the pair in canonical (byte) order, the order the program uses
// when deriving pool addresses.
func SortMints(a, b solana.PublicKey) (solana.PublicKey, solana.PublicKey) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

func AmmConfigPDA(programID solana.PublicKey, index uint16) (solana.PublicKey, uint8, error) {
	var idx [2]byte
	binary.BigEndian.PutUint16(idx[:], index)
	return solana.FindProgramAddress([][]byte{[]byte(ammConfigSeed), idx[:]}, programID)
}

// PoolPDA expects mint0 < mint1; use SortMints first.
func PoolPDA(programID, ammConfig, mint0, mint1 solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			[]byte(poolSeed),
			ammConfig[:],
			mint0[:],
			mint1[:],
		},
		programID,
	)
}

func AuthorityPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(authoritySeed)}, programID)
}
