// Package domain holds the validated, typed core model of the clone engine.
// Raw network shapes are converted into these types once, at decode time;
// everything downstream (detective, forge, executor) operates on them only.
package domain

import (
	"github.com/gagliardetto/solana-go"

	"github.com/happy2099/zap-mono/internal/common"
)

// MessageHeader is the compact account-classification header of a transaction
// message, extended with the two span counts needed to classify accounts that
// were resolved from address lookup tables. NumStaticKeys/NumLookupWritable
// are derived at decode time; they carry no information beyond the position
// of the static/lookup boundary in the merged account list.
type MessageHeader struct {
	NumRequiredSignatures uint8
	NumReadonlySigned     uint8
	NumReadonlyUnsigned   uint8

	// NumStaticKeys is the number of keys carried in the message itself.
	// Zero means the whole merged list is static (legacy transaction).
	NumStaticKeys int

	// NumLookupWritable is the number of writable keys appended from
	// address lookup tables, directly after the static keys.
	NumLookupWritable int
}

// AccountRef is one account of an instruction with its consensus-derived
// signer/writable classification. The flags are never stored on the wire;
// they are a pure function of header counts and list position.
type AccountRef struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// CompiledInstruction is one instruction as carried in a transaction message:
// the program and accounts are indexes into the merged account list.
type CompiledInstruction struct {
	ProgramIDIndex uint16
	Accounts       []uint16
	Data           []byte
}

// DecodedInstruction is a fully resolved instruction: program identity,
// ordered account references and opaque data bytes. Constructed once per
// inspection and treated as immutable.
type DecodedInstruction struct {
	ProgramID solana.PublicKey
	Accounts  []AccountRef
	Data      []byte
}

// DecodedTransaction is the validated form of a confirmed transaction,
// including any address-lookup-table expansion the RPC layer resolved.
type DecodedTransaction struct {
	Signature      solana.Signature
	Header         MessageHeader
	StaticKeys     []solana.PublicKey
	LookupWritable []solana.PublicKey
	LookupReadonly []solana.PublicKey
	Instructions   []CompiledInstruction

	// Inner maps a top-level instruction index to the inner instructions
	// the runtime recorded under it. Absent entries mean the metadata did
	// not include inner instructions for that index.
	Inner map[int][]CompiledInstruction

	merged []solana.PublicKey
}

// MergeAccounts concatenates account keys in the fixed wire order:
// static keys, then lookup-table writable keys, then lookup-table readonly
// keys. This order is part of the transaction format and must not change.
func MergeAccounts(static, lookupWritable, lookupReadonly []solana.PublicKey) []solana.PublicKey {
	merged := make([]solana.PublicKey, 0, len(static)+len(lookupWritable)+len(lookupReadonly))
	merged = append(merged, static...)
	merged = append(merged, lookupWritable...)
	merged = append(merged, lookupReadonly...)
	return merged
}

// ResolveAccountRef classifies the account at index in a merged account list.
//
// Static keys partition into four regions by the header counts: writable
// signers, readonly signers, writable non-signers, readonly non-signers.
// Lookup-resolved keys are never signers; the writable span comes first.
// This must match consensus rules exactly: a mis-tagged flag silently breaks
// forging downstream.
func ResolveAccountRef(merged []solana.PublicKey, header MessageHeader, index int) (AccountRef, error) {
	if index < 0 || index >= len(merged) {
		return AccountRef{}, common.ErrIndexOutOfRange
	}

	numStatic := header.NumStaticKeys
	if numStatic <= 0 || numStatic > len(merged) {
		numStatic = len(merged)
	}

	numSigners := int(header.NumRequiredSignatures)
	numWritableSigners := numSigners - int(header.NumReadonlySigned)

	ref := AccountRef{Pubkey: merged[index]}

	if index < numStatic {
		ref.IsSigner = index < numSigners
		if ref.IsSigner {
			ref.IsWritable = index < numWritableSigners
		} else {
			ref.IsWritable = index < numStatic-int(header.NumReadonlyUnsigned)
		}
		return ref, nil
	}

	// Lookup-table region: writable span precedes the readonly span.
	ref.IsWritable = index < numStatic+header.NumLookupWritable
	return ref, nil
}

// MergedAccounts returns the transaction's full account list in wire order.
// The slice is computed once and shared; callers must not mutate it.
func (tx *DecodedTransaction) MergedAccounts() []solana.PublicKey {
	if tx.merged == nil {
		tx.merged = MergeAccounts(tx.StaticKeys, tx.LookupWritable, tx.LookupReadonly)
	}
	return tx.merged
}

// AccountRefAt resolves the account at a merged-list index.
func (tx *DecodedTransaction) AccountRefAt(index int) (AccountRef, error) {
	return ResolveAccountRef(tx.MergedAccounts(), tx.header(), index)
}

func (tx *DecodedTransaction) header() MessageHeader {
	h := tx.Header
	if h.NumStaticKeys == 0 {
		h.NumStaticKeys = len(tx.StaticKeys)
	}
	h.NumLookupWritable = len(tx.LookupWritable)
	return h
}

// ResolveInstruction expands a compiled instruction into its decoded form.
// An index outside the merged account list is a structural violation and
// fails with IndexOutOfRange; callers treat the instruction as malformed.
func (tx *DecodedTransaction) ResolveInstruction(ci CompiledInstruction) (DecodedInstruction, error) {
	merged := tx.MergedAccounts()
	if int(ci.ProgramIDIndex) >= len(merged) {
		return DecodedInstruction{}, common.ErrIndexOutOfRange
	}

	accounts := make([]AccountRef, 0, len(ci.Accounts))
	for _, idx := range ci.Accounts {
		ref, err := tx.AccountRefAt(int(idx))
		if err != nil {
			return DecodedInstruction{}, err
		}
		accounts = append(accounts, ref)
	}

	return DecodedInstruction{
		ProgramID: merged[ci.ProgramIDIndex],
		Accounts:  accounts,
		Data:      ci.Data,
	}, nil
}

// References reports whether any account of the instruction is pk.
func (ix *DecodedInstruction) References(pk solana.PublicKey) bool {
	for _, acc := range ix.Accounts {
		if acc.Pubkey.Equals(pk) {
			return true
		}
	}
	return false
}
