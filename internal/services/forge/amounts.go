package forge

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/domain"
	"github.com/happy2099/zap-mono/internal/services/registry"
)

const bpsDenominator = 10_000

// patchAmounts rewrites the two caller-controlled u64 fields of the cloned
// data: the amount at Layout.AmountOffset and the limit at
// Layout.ThresholdOffset. Layouts with negative offsets (routers, unknown
// byte layouts) are cloned verbatim.
func (svc *Service) patchAmounts(ctx context.Context, sig *registry.PlatformSignature, target *domain.CloningTarget, opts BuilderOptions) error {
	layout := sig.Layout
	if layout.AmountOffset < 0 {
		return nil
	}
	if len(target.Data) < layout.AmountOffset+8 {
		return fmt.Errorf("%w: data too short for amount field", common.ErrMalformedInput)
	}

	scalingMint := opts.InputMint
	if layout.AmountInToken {
		scalingMint = nonWSOLMint(opts.InputMint, opts.OutputMint)
	}
	if scalingMint.IsZero() {
		return fmt.Errorf("%w: no mint to scale against", common.ErrDecimalsUnavailable)
	}

	decimals, err := svc.mints.MintDecimals(ctx, scalingMint)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrDecimalsUnavailable, scalingMint, err)
	}

	origBase := binary.LittleEndian.Uint64(target.Data[layout.AmountOffset:])
	newBase := scaleToBaseUnits(opts.Amount, decimals)
	binary.LittleEndian.PutUint64(target.Data[layout.AmountOffset:], newBase)

	if layout.ThresholdOffset < 0 {
		return nil
	}
	if len(target.Data) < layout.ThresholdOffset+8 {
		return fmt.Errorf("%w: data too short for threshold field", common.ErrMalformedInput)
	}

	origThreshold := binary.LittleEndian.Uint64(target.Data[layout.ThresholdOffset:])
	match := registry.MatchDiscriminator(target.Data, sig)
	threshold := rescaleThreshold(origThreshold, origBase, newBase, opts.SlippageBps, thresholdIsUpperBound(layout, match))
	binary.LittleEndian.PutUint64(target.Data[layout.ThresholdOffset:], threshold)

	return nil
}

// thresholdIsUpperBound reports whether the limit field caps spend (loosen
// up) rather than floors proceeds (loosen down). Pump-style layouts quote
// the amount in tokens and the threshold in SOL, so a buy's threshold is a
// maximum cost; everywhere else the threshold is a minimum-out.
func thresholdIsUpperBound(layout registry.DataLayout, match registry.DiscriminatorMatch) bool {
	return layout.AmountInToken && match == registry.MatchBuy
}

// rescaleThreshold preserves the observed price ratio of the template
// (threshold/amount), then widens it by the slippage tolerance in the
// direction that keeps the trade executable.
func rescaleThreshold(origThreshold, origBase, newBase uint64, slippageBps uint16, upperBound bool) uint64 {
	var scaled *big.Int
	if origBase == 0 {
		scaled = new(big.Int).SetUint64(newBase)
	} else {
		scaled = new(big.Int).SetUint64(origThreshold)
		scaled.Mul(scaled, new(big.Int).SetUint64(newBase))
		scaled.Div(scaled, new(big.Int).SetUint64(origBase))
	}

	factor := int64(bpsDenominator) - int64(slippageBps)
	if upperBound {
		factor = int64(bpsDenominator) + int64(slippageBps)
	}
	scaled.Mul(scaled, big.NewInt(factor))
	scaled.Div(scaled, big.NewInt(bpsDenominator))

	if !scaled.IsUint64() {
		return ^uint64(0)
	}
	return scaled.Uint64()
}

// scaleToBaseUnits converts a UI amount into base units at the mint's
// precision, clamping to u64 on overflow.
func scaleToBaseUnits(amount float64, decimals uint8) uint64 {
	f := new(big.Float).SetPrec(128).SetFloat64(amount)
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f.Mul(f, new(big.Float).SetPrec(128).SetInt(pow))

	base, _ := f.Int(nil)
	if base.Sign() < 0 {
		return 0
	}
	u, overflow := uint256.FromBig(base)
	if overflow || !u.IsUint64() {
		return ^uint64(0)
	}
	return u.Uint64()
}

func nonWSOLMint(a, b solana.PublicKey) solana.PublicKey {
	if a.Equals(common.WSOLMint) {
		return b
	}
	return a
}
