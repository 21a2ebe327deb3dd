package detective

import (
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/domain"
	"github.com/happy2099/zap-mono/internal/services/registry"
)

// FindRouterInstruction handles aggregator-wrapped swaps: the top-level
// instruction belongs to a router program and the economically meaningful
// accounts live in an inner, program-specific instruction. The detective
// descends exactly one level. When the metadata carries no decoded inner
// instructions (or none of them matches a known platform), the router
// instruction itself becomes the cloning target: routers re-run their pool
// discovery at execution time, so a verbatim replay stays meaningful. That
// assumption is unverified in the general case, which is why the executor
// can gate these clones behind simulation.
func (svc *Service) FindRouterInstruction(tx *domain.DecodedTransaction, trader solana.PublicKey) (*Match, error) {
	for i, ci := range tx.Instructions {
		ix, err := tx.ResolveInstruction(ci)
		if err != nil {
			svc.logAnomaly(tx.Signature, i, err)
			continue
		}

		routerSig, ok := svc.registry.SignatureFor(ix.ProgramID)
		if !ok || !routerSig.IsRouter {
			continue
		}

		if !referencesTrader(&ix, routerSig, trader) {
			continue
		}

		if inner := svc.matchInner(tx, i, trader); inner != nil {
			return inner, nil
		}

		tradeType := tradeTypeOf(registry.MatchDiscriminator(ix.Data, routerSig))
		if tradeType == domain.TradeTypeUnknown {
			tradeType = domain.TradeTypeBuy
		}

		log.Debug().
			Str("signature", tx.Signature.String()).
			Int("index", i).
			Str("router", routerSig.Platform).
			Msg("[Detective] no inner instructions decoded, cloning router instruction verbatim")

		return &Match{
			Platform:         routerSig,
			TradeType:        tradeType,
			InstructionIndex: i,
			Instruction:      ix,
			ViaRouter:        true,
		}, nil
	}

	return nil, common.ErrNotFound
}

// matchInner looks for a registered platform swap among the inner
// instructions recorded under top-level index. The trader-reference check
// already happened on the wrapping router instruction; inner instructions
// are typically authorized by router PDAs, not the trader's wallet.
func (svc *Service) matchInner(tx *domain.DecodedTransaction, index int, trader solana.PublicKey) *Match {
	inner, ok := tx.Inner[index]
	if !ok || len(inner) == 0 {
		return nil
	}

	for _, ci := range inner {
		ix, err := tx.ResolveInstruction(ci)
		if err != nil {
			svc.logAnomaly(tx.Signature, index, err)
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

		return &Match{
			Platform:         sig,
			TradeType:        tradeType,
			InstructionIndex: index,
			Instruction:      ix,
			ViaRouter:        true,
		}
	}

	return nil
}
