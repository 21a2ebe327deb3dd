package registry

import "github.com/gagliardetto/solana-go"

// Platform tags. String values cross the cache/HTTP boundary; keep stable.
const (
	PlatformPumpFun         = "pumpfun"
	PlatformPumpSwap        = "pumpswap"
	PlatformRaydiumV4       = "raydium-v4"
	PlatformRaydiumCPMM     = "raydium-cpmm"
	PlatformRaydiumCLMM     = "raydium-clmm"
	PlatformRaydiumLaunch   = "raydium-launchpad"
	PlatformMeteoraDLMM     = "meteora-dlmm"
	PlatformOrcaWhirlpool   = "orca-whirlpool"
	PlatformJupiter         = "jupiter"
	PlatformOKXRouter       = "okx-router"
)

var (
	pumpFunProgramID       = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	pumpFunVariantID       = solana.MustPublicKeyFromBase58("BSfD6SHZigAfDWSjzD5Q41jw8LmKwtmjskPH9XW1mrRW")
	pumpSwapProgramID      = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
	raydiumV4ProgramID     = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	raydiumCPMMProgramID   = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
	raydiumCLMMProgramID   = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	raydiumLaunchProgramID = solana.MustPublicKeyFromBase58("LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj")
	meteoraDLMMProgramID   = solana.MustPublicKeyFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo")
	orcaWhirlpoolProgramID = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")
	jupiterV6ProgramID     = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
	okxRouterProgramID     = solana.MustPublicKeyFromBase58("6m2CDdhRgxpH4WjvdzxAYbGxwdGUz5MziiL5jek2kBma")
)

// anchorSwapDiscriminator is the 8-byte prefix of the Anchor "global:swap"
// method, shared by several unrelated programs (Orca, Meteora DLMM, Raydium
// CLMM, OKX). Sharing the prefix is fine: lookup is keyed by program id first.
var anchorSwapDiscriminator = []byte{0xf8, 0xc6, 0x9e, 0x91, 0xe1, 0x75, 0x87, 0xc8}

// platforms is the process-wide signature table, loaded once at startup and
// never mutated afterwards.
var platforms = []PlatformSignature{
	{
		Platform:          PlatformPumpFun,
		ProgramIDs:        []solana.PublicKey{pumpFunProgramID, pumpFunVariantID},
		BuyDiscriminator:  []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea},
		SellDiscriminator: []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad},
		// buy accounts: global, fee_recipient, mint, bonding_curve,
		// associated_bonding_curve, associated_user, user, ...
		WalletIndex: 6,
		MintIndex:   2,
		Layout:      DataLayout{AmountOffset: 8, ThresholdOffset: 16, AmountInToken: true},
	},
	{
		Platform:          PlatformPumpSwap,
		ProgramIDs:        []solana.PublicKey{pumpSwapProgramID},
		BuyDiscriminator:  []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea},
		SellDiscriminator: []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad},
		// buy accounts: pool, user, global_config, base_mint, ...
		WalletIndex: 1,
		MintIndex:   3,
		Layout:      DataLayout{AmountOffset: 8, ThresholdOffset: 16, AmountInToken: true},
	},
	{
		Platform:   PlatformRaydiumV4,
		ProgramIDs: []solana.PublicKey{raydiumV4ProgramID},
		// single-byte opcodes: 9 = swapBaseIn, 11 = swapBaseOut
		BuyDiscriminator:  []byte{9},
		SellDiscriminator: []byte{11},
		WalletIndex:       -1,
		MintIndex:         -1,
		Layout:            DataLayout{AmountOffset: 1, ThresholdOffset: 9},
	},
	{
		Platform:          PlatformRaydiumCPMM,
		ProgramIDs:        []solana.PublicKey{raydiumCPMMProgramID},
		BuyDiscriminator:  []byte{0x8f, 0xbe, 0x5a, 0xda, 0xc4, 0x1e, 0x33, 0xde}, // swap_base_input
		SellDiscriminator: []byte{0x37, 0xd9, 0x62, 0x56, 0xa3, 0x4a, 0xb4, 0xad}, // swap_base_output
		WalletIndex:       0,
		MintIndex:         -1,
		Layout:            DataLayout{AmountOffset: 8, ThresholdOffset: 16},
	},
	{
		Platform:         PlatformRaydiumCLMM,
		ProgramIDs:       []solana.PublicKey{raydiumCLMMProgramID},
		BuyDiscriminator: anchorSwapDiscriminator,
		WalletIndex:      0,
		MintIndex:        -1,
		Layout:           DataLayout{AmountOffset: 8, ThresholdOffset: 16},
	},
	{
		Platform:          PlatformRaydiumLaunch,
		ProgramIDs:        []solana.PublicKey{raydiumLaunchProgramID},
		BuyDiscriminator:  []byte{0xfa, 0xea, 0x0d, 0x7b, 0xd5, 0x9c, 0x13, 0xec}, // buy_exact_in
		SellDiscriminator: []byte{0x95, 0x27, 0xde, 0x9b, 0xd3, 0x7c, 0x98, 0x1a}, // sell_exact_in
		WalletIndex:       0,
		MintIndex:         -1,
		Layout:            DataLayout{AmountOffset: 8, ThresholdOffset: 16},
	},
	{
		Platform:         PlatformMeteoraDLMM,
		ProgramIDs:       []solana.PublicKey{meteoraDLMMProgramID},
		BuyDiscriminator: anchorSwapDiscriminator,
		WalletIndex:      -1,
		MintIndex:        -1,
		Layout:           DataLayout{AmountOffset: 8, ThresholdOffset: 16},
	},
	{
		Platform:         PlatformOrcaWhirlpool,
		ProgramIDs:       []solana.PublicKey{orcaWhirlpoolProgramID},
		BuyDiscriminator: anchorSwapDiscriminator,
		WalletIndex:      -1,
		MintIndex:        -1,
		Layout:           DataLayout{AmountOffset: 8, ThresholdOffset: 16},
	},
	{
		Platform:   PlatformJupiter,
		ProgramIDs: []solana.PublicKey{jupiterV6ProgramID},
		// route / shared_accounts_route; amounts sit after a variable
		// route plan, so the data is cloned verbatim.
		BuyDiscriminator:  []byte{0xe5, 0x17, 0xcb, 0x97, 0x7a, 0xe3, 0xad, 0x2a},
		SellDiscriminator: []byte{0xc1, 0x20, 0x9b, 0x33, 0x41, 0xd6, 0x9c, 0x81},
		IsRouter:          true,
		WalletIndex:       -1,
		MintIndex:         -1,
		Layout:            DataLayout{AmountOffset: -1, ThresholdOffset: -1},
	},
	{
		Platform:         PlatformOKXRouter,
		ProgramIDs:       []solana.PublicKey{okxRouterProgramID},
		BuyDiscriminator: anchorSwapDiscriminator,
		IsRouter:         true,
		WalletIndex:      -1,
		MintIndex:        -1,
		Layout:           DataLayout{AmountOffset: -1, ThresholdOffset: -1},
	},
}
