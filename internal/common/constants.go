// Package common contains common constants and variables used across services
package common

import "github.com/gagliardetto/solana-go"

var (
	TokenProgramID  = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ID     = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	ATAProgramID    = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	MemoProgramID   = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
	SystemProgramID = solana.SystemProgramID

	// WSOLMint is the wrapped SOL mint, the quote side of most observed swaps.
	WSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	SysVarRecentBlockhashes = solana.MustPublicKeyFromBase58("SysvarRecentB1ockHashes11111111111111111111")
	SysVarRent              = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
)

// TokenAccountSize is the byte length of an initialized SPL token account.
const TokenAccountSize = 165

// MintAccountSize is the byte length of an initialized SPL mint account.
const MintAccountSize = 82
