package market

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrUnexpectedOwner  = errors.New("account owned by unexpected program")
	ErrBadDiscriminator = errors.New("account discriminator mismatch")
	ErrAccountTooShort  = errors.New("account data too short")
)

var (
	poolStateDiscriminator = accountDiscriminator("PoolState")
	ammConfigDiscriminator = accountDiscriminator("AmmConfig")
)

const tokenAccountAmountOffset = 64

func accountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// poolState is the prefix of the on-chain pool account we rely on. Trailing
// padding is not decoded.
type poolState struct {
	AmmConfig          solana.PublicKey
	PoolCreator        solana.PublicKey
	Token0Vault        solana.PublicKey
	Token1Vault        solana.PublicKey
	LpMint             solana.PublicKey
	Token0Mint         solana.PublicKey
	Token1Mint         solana.PublicKey
	Token0Program      solana.PublicKey
	Token1Program      solana.PublicKey
	ObservationKey     solana.PublicKey
	AuthBump           uint8
	Status             uint8
	LpMintDecimals     uint8
	Mint0Decimals      uint8
	Mint1Decimals      uint8
	LpSupply           uint64
	ProtocolFeesToken0 uint64
	ProtocolFeesToken1 uint64
	FundFeesToken0     uint64
	FundFeesToken1     uint64
	OpenTime           uint64
	RecentEpoch        uint64
	CreatorFeeOn       uint8
	EnableCreatorFee   bool
	Padding1           [6]uint8
	CreatorFeesToken0  uint64
	CreatorFeesToken1  uint64
}

type ammConfig struct {
	Bump              uint8
	DisableCreatePool bool
	Index             uint16
	TradeFeeRate      uint64
	ProtocolFeeRate   uint64
	FundFeeRate       uint64
	CreatePoolFee     uint64
	ProtocolOwner     solana.PublicKey
	FundOwner         solana.PublicKey
}

func decodeAnchorAccount(data []byte, disc [8]byte, out interface{}) error {
	if len(data) < 8 {
		return ErrAccountTooShort
	}
	if !bytes.Equal(data[:8], disc[:]) {
		return ErrBadDiscriminator
	}
	if err := bin.NewBinDecoder(data[8:]).Decode(out); err != nil {
		return fmt.Errorf("decode account: %w", err)
	}
	return nil
}

func decodePoolState(data []byte) (*poolState, error) {
	var state poolState
	if err := decodeAnchorAccount(data, poolStateDiscriminator, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func decodeAmmConfig(data []byte) (*ammConfig, error) {
	var cfg ammConfig
	if err := decodeAnchorAccount(data, ammConfigDiscriminator, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseTokenAccountBalance reads the amount field of an SPL / Token-2022 token account.
func parseTokenAccountBalance(data []byte) (uint64, error) {
	if len(data) < tokenAccountAmountOffset+8 {
		return 0, ErrAccountTooShort
	}
	return binary.LittleEndian.Uint64(data[tokenAccountAmountOffset : tokenAccountAmountOffset+8]), nil
}
