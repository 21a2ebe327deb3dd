// Package registry is the static mapping from on-chain program identities to
// platform signatures: which programs are swap-shaped, which byte prefixes
// identify their buy/sell methods, and where user-specific accounts and
// numeric fields sit. All behavior differences between supported exchanges
// live in this data, not in per-exchange code.
package registry

import (
	"bytes"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"
)

const SERVICE_NAME = "platform-registry"

// DiscriminatorMatch is the result of matching instruction data against a
// platform's registered discriminators.
type DiscriminatorMatch uint8

const (
	MatchNone DiscriminatorMatch = iota
	MatchBuy
	MatchSell
)

// DataLayout describes where the caller-controlled numeric fields sit in the
// instruction data, relative to the start of the data bytes. Offsets of -1
// mean the field cannot be rewritten for this platform and the data is cloned
// verbatim.
type DataLayout struct {
	// AmountOffset is the byte offset of the u64 amount field.
	AmountOffset int

	// ThresholdOffset is the byte offset of the u64 slippage-limit field
	// (min-out for buys, max-in for sells, or vice versa per platform).
	ThresholdOffset int

	// AmountInToken marks platforms whose amount field is denominated in
	// the traded token rather than the input mint (launchpad-style
	// buy/sell methods).
	AmountInToken bool
}

// PlatformSignature identifies one exchange family. A platform may answer to
// several program ids (protocol upgrades, forks); no program id belongs to
// two platforms.
type PlatformSignature struct {
	Platform   string
	ProgramIDs []solana.PublicKey

	// BuyDiscriminator/SellDiscriminator are byte prefixes of instruction
	// data: a single opcode byte for simple programs, an 8-byte
	// hash-derived prefix for Anchor-style programs. SellDiscriminator is
	// nil for platforms whose one swap method covers both directions.
	BuyDiscriminator  []byte
	SellDiscriminator []byte

	// IsRouter marks aggregator/router programs whose instruction wraps an
	// inner, program-specific swap.
	IsRouter bool

	// WalletIndex is the account position of the trader's wallet when the
	// platform references it in a known non-signer ("owner") role; -1 when
	// the wallet is only identifiable as a signer.
	WalletIndex int

	// MintIndex is the account position of the traded token mint; -1 when
	// the mint is not carried in the account list.
	MintIndex int

	Layout DataLayout
}

// HasProgramID reports whether pk is one of the platform's program ids.
func (sig *PlatformSignature) HasProgramID(pk solana.PublicKey) bool {
	for _, id := range sig.ProgramIDs {
		if id.Equals(pk) {
			return true
		}
	}
	return false
}

// Service is the immutable post-load program-id lookup. Read concurrently by
// every detector without locking.
type Service struct {
	container.BaseDIInstance

	byProgram map[solana.PublicKey]*PlatformSignature
}

func (svc *Service) ID() string {
	return SERVICE_NAME
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.byProgram = make(map[solana.PublicKey]*PlatformSignature)
	for i := range platforms {
		sig := &platforms[i]
		for _, pk := range sig.ProgramIDs {
			svc.byProgram[pk] = sig
		}
	}
	log.Info().
		Int("platforms", len(platforms)).
		Int("program_ids", len(svc.byProgram)).
		Msg("[PlatformRegistry] loaded platform signatures")
	return nil
}

// SignatureFor returns the platform signature registered for programID.
func (svc *Service) SignatureFor(programID solana.PublicKey) (*PlatformSignature, bool) {
	sig, ok := svc.byProgram[programID]
	return sig, ok
}

// MatchDiscriminator compares instruction data against the platform's
// registered discriminators by byte prefix.
func MatchDiscriminator(data []byte, sig *PlatformSignature) DiscriminatorMatch {
	if matchPrefix(data, sig.BuyDiscriminator) {
		return MatchBuy
	}
	if matchPrefix(data, sig.SellDiscriminator) {
		return MatchSell
	}
	return MatchNone
}

func matchPrefix(data, disc []byte) bool {
	if len(disc) == 0 || len(data) < len(disc) {
		return false
	}
	return bytes.Equal(data[:len(disc)], disc)
}
