package domain

import "github.com/gagliardetto/solana-go"

// TradeType classifies the matched discriminator of a detected swap.
type TradeType string

const (
	TradeTypeBuy     TradeType = "buy"
	TradeTypeSell    TradeType = "sell"
	TradeTypeUnknown TradeType = "unknown"
)

// CopyDetails describes a successfully detected, copyable swap instruction.
type CopyDetails struct {
	DexPlatform      string           `json:"dexPlatform"`
	TradeType        TradeType        `json:"tradeType"`
	TokenMint        solana.PublicKey `json:"tokenMint,omitempty"`
	CloningTarget    *CloningTarget   `json:"cloningTarget"`
	InstructionIndex int              `json:"instructionIndex"`
	ViaRouter        bool             `json:"viaRouter,omitempty"`
}

// CopyAnalysis is the exposed result of analyzing a confirmed transaction
// for copyability. A non-copyable transaction is a normal outcome, not an
// error: Reason says why, Details stays nil.
type CopyAnalysis struct {
	IsCopyable bool         `json:"isCopyable"`
	Reason     string       `json:"reason,omitempty"`
	Details    *CopyDetails `json:"details,omitempty"`
}
