package detective

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/domain"
	"github.com/happy2099/zap-mono/internal/metrics"
)

// DecodeTransaction converts a fetched transaction plus its metadata into the
// validated domain form. Address-table entries arrive in two representations
// depending on the RPC path: raw table keys with numeric index arrays inside
// the message, or already-resolved keys in the metadata's loaded addresses.
// Both normalize into the same merged account list; disagreement between the
// two is a data-quality anomaly, logged and survived.
func (svc *Service) DecodeTransaction(tx *solana.Transaction, meta *rpc.TransactionMeta) (*domain.DecodedTransaction, error) {
	if tx == nil || len(tx.Message.AccountKeys) == 0 {
		return nil, common.ErrMalformedInput
	}

	msg := &tx.Message

	decoded := &domain.DecodedTransaction{
		Header: domain.MessageHeader{
			NumRequiredSignatures: msg.Header.NumRequiredSignatures,
			NumReadonlySigned:     msg.Header.NumReadonlySignedAccounts,
			NumReadonlyUnsigned:   msg.Header.NumReadonlyUnsignedAccounts,
			NumStaticKeys:         len(msg.AccountKeys),
		},
		StaticKeys: msg.AccountKeys,
	}
	if len(tx.Signatures) > 0 {
		decoded.Signature = tx.Signatures[0]
	}

	if meta != nil {
		decoded.LookupWritable = meta.LoadedAddresses.Writable
		decoded.LookupReadonly = meta.LoadedAddresses.ReadOnly
	}
	decoded.Header.NumLookupWritable = len(decoded.LookupWritable)

	if rawWritable, rawReadonly := countRawLookups(msg); rawWritable+rawReadonly > 0 {
		resolved := len(decoded.LookupWritable) + len(decoded.LookupReadonly)
		if resolved == 0 {
			// Raw index arrays without table contents cannot be
			// resolved here; instructions reaching past the static
			// keys will be skipped as malformed.
			log.Warn().
				Str("signature", decoded.Signature.String()).
				Int("raw_lookups", rawWritable+rawReadonly).
				Msg("[Detective] lookup tables not resolved in metadata")
			metrics.DetectionAnomalies.Inc()
		} else if resolved != rawWritable+rawReadonly ||
			rawWritable != len(decoded.LookupWritable) {
			log.Warn().
				Str("signature", decoded.Signature.String()).
				Int("raw_writable", rawWritable).
				Int("raw_readonly", rawReadonly).
				Int("resolved_writable", len(decoded.LookupWritable)).
				Int("resolved_readonly", len(decoded.LookupReadonly)).
				Msg("[Detective] mixed lookup representations disagree, trusting resolved keys")
			metrics.DetectionAnomalies.Inc()
		}
	}

	decoded.Instructions = make([]domain.CompiledInstruction, len(msg.Instructions))
	for i, ci := range msg.Instructions {
		decoded.Instructions[i] = normalizeInstruction(ci)
	}

	if meta != nil && len(meta.InnerInstructions) > 0 {
		decoded.Inner = make(map[int][]domain.CompiledInstruction, len(meta.InnerInstructions))
		for _, group := range meta.InnerInstructions {
			inner := make([]domain.CompiledInstruction, len(group.Instructions))
			for i, ci := range group.Instructions {
				inner[i] = normalizeInstruction(ci)
			}
			decoded.Inner[int(group.Index)] = inner
		}
	}

	return decoded, nil
}

func normalizeInstruction(ci solana.CompiledInstruction) domain.CompiledInstruction {
	accounts := make([]uint16, len(ci.Accounts))
	copy(accounts, ci.Accounts)
	return domain.CompiledInstruction{
		ProgramIDIndex: ci.ProgramIDIndex,
		Accounts:       accounts,
		Data:           []byte(ci.Data),
	}
}

func countRawLookups(msg *solana.Message) (writable, readonly int) {
	for _, lookup := range msg.AddressTableLookups {
		writable += len(lookup.WritableIndexes)
		readonly += len(lookup.ReadonlyIndexes)
	}
	return writable, readonly
}
