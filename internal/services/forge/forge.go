// Package forge resynthesizes a detected swap instruction for a new payer:
// the "universal cloner". It remaps trader-owned accounts, injects missing
// associated-token-account creations, rewrites the caller-controlled numeric
// fields and optionally prepends a durable-nonce advance — all without any
// per-exchange builder code.
package forge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/domain"
	"github.com/happy2099/zap-mono/internal/metrics"
	"github.com/happy2099/zap-mono/internal/services/registry"
)

const SERVICE_NAME = "forge-service"

var (
	ErrMissingTarget  = errors.New("cloning target is required")
	ErrInvalidPayer   = errors.New("invalid payer public key")
	ErrUnknownProgram = errors.New("target program is not registered")
)

// MintResolver answers mint-level questions: decimal precision (immutable
// once set, cached for hours upstream) and the owning token program.
type MintResolver interface {
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
	MintTokenProgram(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error)
}

// AccountInspector reports whether an account exists on-chain.
type AccountInspector interface {
	AccountExists(ctx context.Context, pk solana.PublicKey) (bool, error)
}

// BuilderOptions are the inputs of one clone. Amount is a UI amount; it is
// scaled to base units by the relevant mint's decimal precision.
type BuilderOptions struct {
	Target       *domain.CloningTarget
	TraderWallet solana.PublicKey
	NewPayer     solana.PublicKey
	InputMint    solana.PublicKey
	OutputMint   solana.PublicKey
	Amount       float64
	SlippageBps  uint16
	Nonce        *domain.NonceDescriptor
}

// BuildResult is the forge's output: the ordered instruction list
// ([advance-nonce?] + [create-ATA...] + [cloned swap]) plus observability
// counters. Compute-budget and fee instructions are the caller's business.
type BuildResult struct {
	Instructions        []solana.Instruction
	AtaInstructionCount int
	UsedNonce           bool
}

type Service struct {
	container.BaseDIInstance

	registry  *registry.Service
	mints     MintResolver
	inspector AccountInspector
}

func (svc *Service) ID() string {
	return SERVICE_NAME
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.registry = c.Instance(registry.SERVICE_NAME).(*registry.Service)
	resolver := c.Instance("mint-resolver-service")
	svc.mints = resolver.(MintResolver)
	svc.inspector = resolver.(AccountInspector)
	return nil
}

// NewService builds a forge outside the DI container, for tests.
func NewService(reg *registry.Service, mints MintResolver, inspector AccountInspector) *Service {
	return &Service{registry: reg, mints: mints, inspector: inspector}
}

// BuildClonedInstruction turns a cloning target into a ready-to-sign
// instruction list for opts.NewPayer. Identical inputs (without nonce) yield
// structurally identical output: same program id, same account count, same
// positions, with only trader-owned accounts substituted.
func (svc *Service) BuildClonedInstruction(ctx context.Context, opts BuilderOptions) (*BuildResult, error) {
	started := time.Now()
	res, err := svc.build(ctx, opts)
	metrics.ForgeDuration.Observe(time.Since(started).Seconds())

	platform := "unknown"
	if sig, ok := svc.registry.SignatureFor(opts.Target.ProgramID); ok {
		platform = sig.Platform
	}
	if err != nil {
		metrics.ForgedInstructions.WithLabelValues(platform, "error").Inc()
		return nil, err
	}
	metrics.ForgedInstructions.WithLabelValues(platform, "ok").Inc()
	return res, nil
}

func (svc *Service) build(ctx context.Context, opts BuilderOptions) (*BuildResult, error) {
	if opts.Target == nil {
		return nil, ErrMissingTarget
	}
	if opts.NewPayer.IsZero() {
		return nil, ErrInvalidPayer
	}

	sig, ok := svc.registry.SignatureFor(opts.Target.ProgramID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, opts.Target.ProgramID)
	}

	remapped, payerATAs, err := svc.remapAccounts(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := svc.patchAmounts(ctx, sig, remapped, opts); err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, 2+len(payerATAs))
	usedNonce := false

	if opts.Nonce != nil {
		instructions = append(instructions, advanceNonceInstruction(opts.Nonce))
		usedNonce = true
	}

	ataCount := 0
	for _, ata := range payerATAs {
		exists, err := svc.inspector.AccountExists(ctx, ata.address)
		if err != nil {
			return nil, fmt.Errorf("%w: ATA %s: %v", common.ErrAccountResolution, ata.address, err)
		}
		if exists {
			continue
		}
		instructions = append(instructions, createATAInstruction(opts.NewPayer, opts.NewPayer, ata.mint, ata.tokenProgram))
		ataCount++
		metrics.AtaCreations.Inc()
	}

	instructions = append(instructions, remapped.ToInstruction())

	log.Debug().
		Str("platform", sig.Platform).
		Str("payer", opts.NewPayer.String()).
		Int("accounts", len(remapped.Accounts)).
		Int("ata_creates", ataCount).
		Bool("nonce", usedNonce).
		Msg("[Forge] cloned instruction built")

	return &BuildResult{
		Instructions:        instructions,
		AtaInstructionCount: ataCount,
		UsedNonce:           usedNonce,
	}, nil
}

type requiredATA struct {
	address      solana.PublicKey
	mint         solana.PublicKey
	tokenProgram solana.PublicKey
}

// remapAccounts applies the cloning rule: accounts whose identity is trader
// state (the wallet itself, or the trader's ATA for one of the traded mints)
// are replaced by the new payer's equivalents; everything else — pool state,
// vaults, configs, sysvars — is protocol state and copied verbatim. Order
// and count are preserved exactly.
func (svc *Service) remapAccounts(ctx context.Context, opts BuilderOptions) (*domain.CloningTarget, []requiredATA, error) {
	remapped := opts.Target.Clone()

	type ataPair struct {
		trader solana.PublicKey
		payer  requiredATA
	}
	pairs := make([]ataPair, 0, 2)

	for _, mint := range []solana.PublicKey{opts.InputMint, opts.OutputMint} {
		if mint.IsZero() {
			continue
		}
		tokenProgram, err := svc.mints.MintTokenProgram(ctx, mint)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: token program for %s: %v", common.ErrAccountResolution, mint, err)
		}
		traderATA, _, err := GetATAAddressForMint(opts.TraderWallet, mint, tokenProgram)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to derive trader ATA: %w", err)
		}
		payerATA, _, err := GetATAAddressForMint(opts.NewPayer, mint, tokenProgram)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to derive payer ATA: %w", err)
		}
		pairs = append(pairs, ataPair{
			trader: traderATA,
			payer:  requiredATA{address: payerATA, mint: mint, tokenProgram: tokenProgram},
		})
	}

	needed := make(map[solana.PublicKey]requiredATA, len(pairs))

	for i := range remapped.Accounts {
		acc := &remapped.Accounts[i]
		if acc.Pubkey.Equals(opts.TraderWallet) {
			acc.Pubkey = opts.NewPayer
			continue
		}
		for _, pair := range pairs {
			if acc.Pubkey.Equals(pair.trader) {
				acc.Pubkey = pair.payer.address
				needed[pair.payer.address] = pair.payer
				break
			}
		}
	}

	atas := make([]requiredATA, 0, len(needed))
	for _, pair := range pairs {
		if ata, ok := needed[pair.payer.address]; ok {
			atas = append(atas, ata)
			delete(needed, pair.payer.address)
		}
	}
	return remapped, atas, nil
}
