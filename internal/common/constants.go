// Package common contains common constants and helpers used across services
package common

import "github.com/gagliardetto/solana-go"

var (
	TokenProgramID  = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ID     = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	ATAProgramID    = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SystemProgramID = solana.SystemProgramID

	// NativeMint is the wrapped SOL mint, the default route token.
	NativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	// CPMMProgramID is the Raydium constant-product program on mainnet.
	CPMMProgramID = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
)

const (
	SwapModeExactIn  = "ExactIn"
	SwapModeExactOut = "ExactOut"

	DefaultSlippageBps uint16 = 50
	MaxBps             uint16 = 10000
)
