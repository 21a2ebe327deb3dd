// Package detective locates the single instruction of a confirmed
// transaction that represents a tracked trader's actual swap, and extracts it
// as a cloning target. Most observed transactions are not swaps; "nothing to
// copy" is a routine outcome here, never a failure.
package detective

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/domain"
	"github.com/happy2099/zap-mono/internal/metrics"
	"github.com/happy2099/zap-mono/internal/services/registry"
)

const SERVICE_NAME = "detective-service"

// TransactionSource supplies confirmed transactions by signature, including
// the metadata carrying lookup-table resolutions and inner instructions.
type TransactionSource interface {
	FetchTransaction(ctx context.Context, sig solana.Signature) (*solana.Transaction, *rpc.TransactionMeta, error)
}

// Match is a detected swap instruction with its platform attribution.
type Match struct {
	Platform         *registry.PlatformSignature
	TradeType        domain.TradeType
	InstructionIndex int
	Instruction      domain.DecodedInstruction
	ViaRouter        bool
}

type Service struct {
	container.BaseDIInstance

	registry *registry.Service
	source   TransactionSource
}

func (svc *Service) ID() string {
	return SERVICE_NAME
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.registry = c.Instance(registry.SERVICE_NAME).(*registry.Service)
	svc.source = c.Instance("tx-source-service").(TransactionSource)
	return nil
}

// NewService builds a detective outside the DI container, for tests and
// embedding.
func NewService(reg *registry.Service, source TransactionSource) *Service {
	return &Service{registry: reg, source: source}
}

// AnalyzeForCopy fetches a confirmed transaction and reports whether it
// contains a swap attributable to trader that the forge can clone.
func (svc *Service) AnalyzeForCopy(ctx context.Context, sig solana.Signature, trader solana.PublicKey) (*domain.CopyAnalysis, error) {
	tx, meta, err := svc.source.FetchTransaction(ctx, sig)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			metrics.AnalyzedTransactions.WithLabelValues("not_found").Inc()
			return &domain.CopyAnalysis{IsCopyable: false, Reason: "transaction not found"}, nil
		}
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", sig, err)
	}

	decoded, err := svc.DecodeTransaction(tx, meta)
	if err != nil {
		metrics.AnalyzedTransactions.WithLabelValues("malformed").Inc()
		return &domain.CopyAnalysis{IsCopyable: false, Reason: "malformed transaction"}, nil
	}

	match, err := svc.FindCoreInstruction(decoded, trader)
	if errors.Is(err, common.ErrNotFound) {
		match, err = svc.FindRouterInstruction(decoded, trader)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			metrics.AnalyzedTransactions.WithLabelValues("not_copyable").Inc()
			return &domain.CopyAnalysis{IsCopyable: false, Reason: "no swap-shaped instruction for trader"}, nil
		}
		return nil, err
	}

	metrics.AnalyzedTransactions.WithLabelValues("copyable").Inc()
	metrics.DetectedSwaps.WithLabelValues(match.Platform.Platform, string(match.TradeType)).Inc()

	details := &domain.CopyDetails{
		DexPlatform:      match.Platform.Platform,
		TradeType:        match.TradeType,
		CloningTarget:    domain.TargetFromInstruction(match.Instruction),
		InstructionIndex: match.InstructionIndex,
		ViaRouter:        match.ViaRouter,
	}
	if idx := match.Platform.MintIndex; idx >= 0 && idx < len(match.Instruction.Accounts) {
		details.TokenMint = match.Instruction.Accounts[idx].Pubkey
	}
	return &domain.CopyAnalysis{IsCopyable: true, Details: details}, nil
}

// FindCoreInstruction scans top-level instructions in order for one that
// matches a registered non-router platform signature and references trader.
// The first match by instruction index is authoritative; further matches are
// logged as anomalies, not cloned.
func (svc *Service) FindCoreInstruction(tx *domain.DecodedTransaction, trader solana.PublicKey) (*Match, error) {
	var found *Match

	for i, ci := range tx.Instructions {
		ix, err := tx.ResolveInstruction(ci)
		if err != nil {
			// Structural inconsistency in one instruction: skip it,
			// keep analyzing the rest of the transaction.
			svc.logAnomaly(tx.Signature, i, err)
			continue
		}

		sig, ok := svc.registry.SignatureFor(ix.ProgramID)
		if !ok || sig.IsRouter {
			continue
		}

		tradeType := tradeTypeOf(registry.MatchDiscriminator(ix.Data, sig))
		if tradeType == domain.TradeTypeUnknown {
			continue
		}

		if !referencesTrader(&ix, sig, trader) {
			// Program id matched but the accounts do not involve the
			// trader: somebody else's swap co-located in the same
			// transaction. Never clone it.
			continue
		}

		if found != nil {
			log.Warn().
				Str("signature", tx.Signature.String()).
				Int("index", i).
				Str("platform", sig.Platform).
				Msg("[Detective] extra swap-shaped instruction ignored, first occurrence wins")
			metrics.DetectionAnomalies.Inc()
			continue
		}

		found = &Match{
			Platform:         sig,
			TradeType:        tradeType,
			InstructionIndex: i,
			Instruction:      ix,
		}
	}

	if found == nil {
		return nil, common.ErrNotFound
	}
	return found, nil
}

// referencesTrader checks that the trader's wallet appears among the
// instruction's accounts, either anywhere (signer or not) or specifically at
// the platform's registered wallet position.
func referencesTrader(ix *domain.DecodedInstruction, sig *registry.PlatformSignature, trader solana.PublicKey) bool {
	if sig.WalletIndex >= 0 && sig.WalletIndex < len(ix.Accounts) {
		if ix.Accounts[sig.WalletIndex].Pubkey.Equals(trader) {
			return true
		}
	}
	return ix.References(trader)
}

func tradeTypeOf(m registry.DiscriminatorMatch) domain.TradeType {
	switch m {
	case registry.MatchBuy:
		return domain.TradeTypeBuy
	case registry.MatchSell:
		return domain.TradeTypeSell
	default:
		return domain.TradeTypeUnknown
	}
}

func (svc *Service) logAnomaly(sig solana.Signature, index int, err error) {
	log.Warn().
		Str("signature", sig.String()).
		Int("index", index).
		Err(err).
		Msg("[Detective] skipping malformed instruction")
	metrics.DetectionAnomalies.Inc()
}
