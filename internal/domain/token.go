package domain

import "github.com/gagliardetto/solana-go"

// Token is a mint and the precision used to convert display amounts.
type Token struct {
	Mint     solana.PublicKey `json:"mint"`
	Symbol   string           `json:"symbol,omitempty"`
	Decimals uint8            `json:"decimals"`
	Program  solana.PublicKey `json:"program"`
}
