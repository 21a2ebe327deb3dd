package forge

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/domain"
)

// advanceNonceInstruction builds the system-program AdvanceNonceAccount
// instruction (enum index 4). It must be the first instruction of a trade
// that uses a durable nonce as its recent blockhash.
func advanceNonceInstruction(nonce *domain.NonceDescriptor) solana.Instruction {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 4)

	return solana.NewInstruction(
		common.SystemProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(nonce.NoncePubkey, true, false),
			solana.NewAccountMeta(common.SysVarRecentBlockhashes, false, false),
			solana.NewAccountMeta(nonce.Authority, false, true),
		},
		data,
	)
}
