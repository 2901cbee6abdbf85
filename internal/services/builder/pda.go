package builder

import (
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/swap-engine/internal/common"
)

type ataKey struct {
	Wallet       solana.PublicKey
	Mint         solana.PublicKey
	TokenProgram solana.PublicKey
}

var (
	ataCache   = make(map[ataKey]solana.PublicKey)
	ataCacheMu sync.RWMutex
)

// GetATAAddressForMint derives the associated token account of wallet for a mint owned
// by tokenProgram (SPL Token or Token-2022). Results are memoized.
func GetATAAddressForMint(wallet, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	key := ataKey{Wallet: wallet, Mint: mint, TokenProgram: tokenProgram}

	ataCacheMu.RLock()
	if cached, ok := ataCache[key]; ok {
		ataCacheMu.RUnlock()
		return cached, nil
	}
	ataCacheMu.RUnlock()

	ata, _, err := solana.FindProgramAddress(
		[][]byte{
			wallet[:],
			tokenProgram[:],
			mint[:],
		},
		common.ATAProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, err
	}

	ataCacheMu.Lock()
	ataCache[key] = ata
	ataCacheMu.Unlock()

	return ata, nil
}

// CreateATAInstructionForMint creates an idempotent ATA creation instruction.
func CreateATAInstructionForMint(payer, owner, mint, tokenProgram solana.PublicKey) (solana.Instruction, error) {
	ata, err := GetATAAddressForMint(owner, mint, tokenProgram)
	if err != nil {
		return nil, err
	}
	return &createATAIdempotentInstruction{
		payer:        payer,
		ata:          ata,
		owner:        owner,
		mint:         mint,
		tokenProgram: tokenProgram,
	}, nil
}

type createATAIdempotentInstruction struct {
	payer        solana.PublicKey
	ata          solana.PublicKey
	owner        solana.PublicKey
	mint         solana.PublicKey
	tokenProgram solana.PublicKey
}

func (i *createATAIdempotentInstruction) ProgramID() solana.PublicKey {
	return common.ATAProgramID
}

func (i *createATAIdempotentInstruction) Accounts() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		{PublicKey: i.payer, IsSigner: true, IsWritable: true},
		{PublicKey: i.ata, IsSigner: false, IsWritable: true},
		{PublicKey: i.owner, IsSigner: false, IsWritable: false},
		{PublicKey: i.mint, IsSigner: false, IsWritable: false},
		{PublicKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: i.tokenProgram, IsSigner: false, IsWritable: false},
	}
}

// Data is the CreateIdempotent variant of the ATA program.
func (i *createATAIdempotentInstruction) Data() ([]byte, error) {
	return []byte{1}, nil
}
