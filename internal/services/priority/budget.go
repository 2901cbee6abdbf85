package priority

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

var ComputeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

const (
	setComputeUnitLimitDiscriminator = 2
	setComputeUnitPriceDiscriminator = 3
)

type SetComputeUnitLimitInstruction struct {
	Units uint32
}

func NewSetComputeUnitLimitInstruction(units uint32) *SetComputeUnitLimitInstruction {
	return &SetComputeUnitLimitInstruction{Units: units}
}

func (ix *SetComputeUnitLimitInstruction) ProgramID() solana.PublicKey {
	return ComputeBudgetProgramID
}

func (ix *SetComputeUnitLimitInstruction) Accounts() []*solana.AccountMeta {
	return nil
}

func (ix *SetComputeUnitLimitInstruction) Data() ([]byte, error) {
	data := make([]byte, 5)
	data[0] = setComputeUnitLimitDiscriminator
	binary.LittleEndian.PutUint32(data[1:], ix.Units)
	return data, nil
}

// SetComputeUnitPriceInstruction sets the priority fee in microLamports per CU.
type SetComputeUnitPriceInstruction struct {
	MicroLamports uint64
}

func NewSetComputeUnitPriceInstruction(microLamports uint64) *SetComputeUnitPriceInstruction {
	return &SetComputeUnitPriceInstruction{MicroLamports: microLamports}
}

func (ix *SetComputeUnitPriceInstruction) ProgramID() solana.PublicKey {
	return ComputeBudgetProgramID
}

func (ix *SetComputeUnitPriceInstruction) Accounts() []*solana.AccountMeta {
	return nil
}

func (ix *SetComputeUnitPriceInstruction) Data() ([]byte, error) {
	data := make([]byte, 9)
	data[0] = setComputeUnitPriceDiscriminator
	binary.LittleEndian.PutUint64(data[1:], ix.MicroLamports)
	return data, nil
}
