package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// NonceDescriptor describes a durable nonce substituting for a recent
// blockhash. Transactions built with it never expire by blockhash age; in
// exchange the nonce account's authority must co-sign and an advance-nonce
// instruction must lead the instruction list.
type NonceDescriptor struct {
	NoncePubkey solana.PublicKey `json:"noncePubkey"`
	Authority   solana.PublicKey `json:"authorizedPubkey"`
	NonceValue  solana.Hash      `json:"nonceValue"`
}

// TradeReadyEntry is a cached forged artifact keyed by opportunity identity.
/// Exactly one of Target / SignedTx is set: an unsigned template can be
// re-signed with a fresh blockhash at read time (medium TTL), a signed
// transaction byte string goes stale with its blockhash context (short TTL).
type TradeReadyEntry struct {
	TokenMint   solana.PublicKey `json:"tokenMint"`
	DexPlatform string           `json:"dexPlatform"`
	Target      *CloningTarget   `json:"cloningTarget,omitempty"`
	SignedTx    []byte           `json:"signedTransaction,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// TradeStatus is the execution-queue state of a queued trade.
type TradeStatus uint8

const (
	StatusQueued TradeStatus = iota
	StatusExecuting
	StatusConfirmed
	StatusFailed
	StatusExpired
)

func (s TradeStatus) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusExecuting:
		return "executing"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status will never change again.
func (s TradeStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed || s == StatusExpired
}

// TradeResult is the terminal outcome of one queued trade, delivered exactly
// once on the trade's result channel.
type TradeResult struct {
	Status      TradeStatus
	TxSignature solana.Signature
	Err         error
	CompletedAt time.Time
}

// ExecutionPayload carries everything the executor needs for one submission
// attempt. Either Instructions (assemble, sign, submit) or SignedTx (replay a
// cached signed transaction verbatim) is set.
type ExecutionPayload struct {
	Instructions []solana.Instruction
	SignedTx     []byte

	Nonce *NonceDescriptor

	ComputeUnitLimit uint32
	PriorityFee      uint64 // micro-lamports per compute unit

	SkipSimulation bool
}

// QueuedTrade is one unit of work for the execution queue. Created by the
// caller, mutated only by the queue, destroyed once execution resolves.
type QueuedTrade struct {
	ID         string
	Payload    ExecutionPayload
	Priority   int
	EnqueuedAt time.Time

	Status TradeStatus

	// Result receives exactly one terminal TradeResult. Buffered so the
	// executor never blocks on a caller that abandoned the wait.
	Result chan TradeResult
}
