package forge

import (
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/happy2099/zap-mono/internal/common"
)

type ataCacheKey struct {
	wallet       solana.PublicKey
	mint         solana.PublicKey
	tokenProgram solana.PublicKey
}

type ataCacheEntry struct {
	address solana.PublicKey
	bump    uint8
}

var (
	ataCacheMu sync.RWMutex
	ataCache   = make(map[ataCacheKey]ataCacheEntry, 1024)
)

// GetATAAddressForMint derives the associated token account for
// (wallet, mint) under the given token program. Derivation is pure math so
// results are memoized process-wide.
func GetATAAddressForMint(wallet, mint, tokenProgram solana.PublicKey) (solana.PublicKey, uint8, error) {
	key := ataCacheKey{wallet: wallet, mint: mint, tokenProgram: tokenProgram}

	ataCacheMu.RLock()
	if entry, ok := ataCache[key]; ok {
		ataCacheMu.RUnlock()
		return entry.address, entry.bump, nil
	}
	ataCacheMu.RUnlock()

	addr, bump, err := solana.FindProgramAddress(
		[][]byte{wallet.Bytes(), tokenProgram.Bytes(), mint.Bytes()},
		common.ATAProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}

	ataCacheMu.Lock()
	ataCache[key] = ataCacheEntry{address: addr, bump: bump}
	ataCacheMu.Unlock()

	return addr, bump, nil
}

// createATAInstruction builds an idempotent create for the wallet's ATA.
// Opcode 1 (CreateIdempotent) is a no-op when the account already exists,
// which makes prepending safe even under a racing create.
func createATAInstruction(payer, wallet, mint, tokenProgram solana.PublicKey) solana.Instruction {
	ata, _, _ := GetATAAddressForMint(wallet, mint, tokenProgram)

	return solana.NewInstruction(
		common.ATAProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(payer, true, true),
			solana.NewAccountMeta(ata, true, false),
			solana.NewAccountMeta(wallet, false, false),
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(common.SystemProgramID, false, false),
			solana.NewAccountMeta(tokenProgram, false, false),
		},
		[]byte{1},
	)
}
