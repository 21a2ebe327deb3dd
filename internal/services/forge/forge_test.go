package forge

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/domain"
	"github.com/happy2099/zap-mono/internal/services/registry"
)

var (
	pumpProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	pumpBuyDisc  = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	pumpSellDisc = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

type fakeChain struct {
	decimals map[solana.PublicKey]uint8
	existing map[solana.PublicKey]bool
	mintErr  error
}

func (f *fakeChain) MintDecimals(_ context.Context, mint solana.PublicKey) (uint8, error) {
	if f.mintErr != nil {
		return 0, f.mintErr
	}
	d, ok := f.decimals[mint]
	if !ok {
		return 0, errors.New("unknown mint")
	}
	return d, nil
}

func (f *fakeChain) MintTokenProgram(_ context.Context, _ solana.PublicKey) (solana.PublicKey, error) {
	if f.mintErr != nil {
		return solana.PublicKey{}, f.mintErr
	}
	return common.TokenProgramID, nil
}

func (f *fakeChain) AccountExists(_ context.Context, pk solana.PublicKey) (bool, error) {
	return f.existing[pk], nil
}

func testForge(t *testing.T, chain *fakeChain) *Service {
	t.Helper()
	reg := &registry.Service{}
	if err := reg.Configure(nil); err != nil {
		t.Fatalf("registry Configure: %v", err)
	}
	return NewService(reg, chain, chain)
}

// pumpFixture builds a pump.fun buy/sell target in the program's account
// layout, with the trader's wallet at position 6 and the trader's token ATA at
// position 5.
type pumpFixture struct {
	trader    solana.PublicKey
	payer     solana.PublicKey
	tokenMint solana.PublicKey
	traderATA solana.PublicKey
	payerATA  solana.PublicKey
	target    *domain.CloningTarget
}

func newPumpFixture(t *testing.T, disc []byte, amount, threshold uint64) *pumpFixture {
	t.Helper()

	fx := &pumpFixture{
		trader:    solana.NewWallet().PublicKey(),
		payer:     solana.NewWallet().PublicKey(),
		tokenMint: solana.NewWallet().PublicKey(),
	}

	var err error
	fx.traderATA, _, err = GetATAAddressForMint(fx.trader, fx.tokenMint, common.TokenProgramID)
	if err != nil {
		t.Fatalf("derive trader ATA: %v", err)
	}
	fx.payerATA, _, err = GetATAAddressForMint(fx.payer, fx.tokenMint, common.TokenProgramID)
	if err != nil {
		t.Fatalf("derive payer ATA: %v", err)
	}

	data := make([]byte, 24)
	copy(data, disc)
	binary.LittleEndian.PutUint64(data[8:], amount)
	binary.LittleEndian.PutUint64(data[16:], threshold)

	accounts := []domain.TargetAccount{
		{Pubkey: solana.NewWallet().PublicKey()},                 // global
		{Pubkey: solana.NewWallet().PublicKey(), IsWritable: true}, // fee recipient
		{Pubkey: fx.tokenMint},                                   // mint
		{Pubkey: solana.NewWallet().PublicKey(), IsWritable: true}, // bonding curve
		{Pubkey: solana.NewWallet().PublicKey(), IsWritable: true}, // curve ATA
		{Pubkey: fx.traderATA, IsWritable: true},                 // trader token account
		{Pubkey: fx.trader, IsSigner: true, IsWritable: true},    // trader wallet
		{Pubkey: common.SystemProgramID},
		{Pubkey: common.TokenProgramID},
	}

	fx.target = &domain.CloningTarget{
		ProgramID: pumpProgramID,
		Accounts:  accounts,
		Data:      data,
	}
	return fx
}

func clonedInstruction(t *testing.T, res *BuildResult) solana.Instruction {
	t.Helper()
	if len(res.Instructions) == 0 {
		t.Fatal("empty instruction list")
	}
	return res.Instructions[len(res.Instructions)-1]
}

func TestBuildClonedInstructionRemapsTraderState(t *testing.T) {
	fx := newPumpFixture(t, pumpBuyDisc, 1_000_000, 5_000_000_000)
	chain := &fakeChain{
		decimals: map[solana.PublicKey]uint8{fx.tokenMint: 6},
		existing: map[solana.PublicKey]bool{fx.payerATA: true},
	}
	svc := testForge(t, chain)

	res, err := svc.BuildClonedInstruction(context.Background(), BuilderOptions{
		Target:       fx.target,
		TraderWallet: fx.trader,
		NewPayer:     fx.payer,
		InputMint:    common.WSOLMint,
		OutputMint:   fx.tokenMint,
		Amount:       2.5,
		SlippageBps:  50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Payer ATA already exists: no creations, the clone is the sole output.
	if res.AtaInstructionCount != 0 {
		t.Errorf("ata creations = %d, want 0", res.AtaInstructionCount)
	}
	if len(res.Instructions) != 1 {
		t.Fatalf("instruction count = %d, want 1", len(res.Instructions))
	}

	ix := clonedInstruction(t, res)
	if !ix.ProgramID().Equals(pumpProgramID) {
		t.Errorf("program id = %s, want pumpfun", ix.ProgramID())
	}

	metas := ix.Accounts()
	if len(metas) != len(fx.target.Accounts) {
		t.Fatalf("account count changed: %d, want %d", len(metas), len(fx.target.Accounts))
	}
	if !metas[6].PublicKey.Equals(fx.payer) {
		t.Errorf("wallet position = %s, want new payer %s", metas[6].PublicKey, fx.payer)
	}
	if !metas[5].PublicKey.Equals(fx.payerATA) {
		t.Errorf("ATA position = %s, want payer ATA %s", metas[5].PublicKey, fx.payerATA)
	}
	// Protocol state untouched.
	for _, i := range []int{0, 1, 2, 3, 4, 7, 8} {
		if !metas[i].PublicKey.Equals(fx.target.Accounts[i].Pubkey) {
			t.Errorf("account %d was rewritten: %s", i, metas[i].PublicKey)
		}
	}
}

func TestBuildClonedInstructionPatchesAmounts(t *testing.T) {
	// Template: bought 1.0 tokens for at most 5 SOL. Cloning at 2.5 tokens
	// must scale the max cost by the same ratio then widen it up by 50 bps.
	fx := newPumpFixture(t, pumpBuyDisc, 1_000_000, 5_000_000_000)
	chain := &fakeChain{
		decimals: map[solana.PublicKey]uint8{fx.tokenMint: 6},
		existing: map[solana.PublicKey]bool{fx.payerATA: true},
	}
	svc := testForge(t, chain)

	res, err := svc.BuildClonedInstruction(context.Background(), BuilderOptions{
		Target:       fx.target,
		TraderWallet: fx.trader,
		NewPayer:     fx.payer,
		InputMint:    common.WSOLMint,
		OutputMint:   fx.tokenMint,
		Amount:       2.5,
		SlippageBps:  50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := clonedInstruction(t, res).Data()
	if err != nil {
		t.Fatalf("instruction data: %v", err)
	}

	if got := binary.LittleEndian.Uint64(data[8:]); got != 2_500_000 {
		t.Errorf("patched amount = %d, want 2500000", got)
	}
	// 5e9 * 2.5 * 1.0050 = 12_562_500_000
	if got := binary.LittleEndian.Uint64(data[16:]); got != 12_562_500_000 {
		t.Errorf("patched max cost = %d, want 12562500000", got)
	}

	// The caller's target must survive unmutated.
	if got := binary.LittleEndian.Uint64(fx.target.Data[8:]); got != 1_000_000 {
		t.Errorf("source target amount mutated to %d", got)
	}
}

func TestBuildClonedInstructionSellThresholdWidensDown(t *testing.T) {
	// Sell: threshold is a minimum-out, widened down by the slippage.
	fx := newPumpFixture(t, pumpSellDisc, 1_000_000, 5_000_000_000)
	chain := &fakeChain{
		decimals: map[solana.PublicKey]uint8{fx.tokenMint: 6},
		existing: map[solana.PublicKey]bool{fx.payerATA: true},
	}
	svc := testForge(t, chain)

	res, err := svc.BuildClonedInstruction(context.Background(), BuilderOptions{
		Target:       fx.target,
		TraderWallet: fx.trader,
		NewPayer:     fx.payer,
		InputMint:    fx.tokenMint,
		OutputMint:   common.WSOLMint,
		Amount:       1.0,
		SlippageBps:  100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := clonedInstruction(t, res).Data()
	if err != nil {
		t.Fatalf("instruction data: %v", err)
	}
	// Same size trade, so the ratio holds: 5e9 * 0.99 = 4_950_000_000.
	if got := binary.LittleEndian.Uint64(data[16:]); got != 4_950_000_000 {
		t.Errorf("patched min out = %d, want 4950000000", got)
	}
}

func TestBuildClonedInstructionInjectsMissingATA(t *testing.T) {
	fx := newPumpFixture(t, pumpBuyDisc, 1_000_000, 5_000_000_000)
	chain := &fakeChain{
		decimals: map[solana.PublicKey]uint8{fx.tokenMint: 6},
		existing: map[solana.PublicKey]bool{}, // payer ATA missing
	}
	svc := testForge(t, chain)

	res, err := svc.BuildClonedInstruction(context.Background(), BuilderOptions{
		Target:       fx.target,
		TraderWallet: fx.trader,
		NewPayer:     fx.payer,
		InputMint:    common.WSOLMint,
		OutputMint:   fx.tokenMint,
		Amount:       1.0,
		SlippageBps:  50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.AtaInstructionCount != 1 {
		t.Fatalf("ata creations = %d, want 1", res.AtaInstructionCount)
	}
	if len(res.Instructions) != 2 {
		t.Fatalf("instruction count = %d, want create-ATA + clone", len(res.Instructions))
	}

	create := res.Instructions[0]
	if !create.ProgramID().Equals(common.ATAProgramID) {
		t.Errorf("first instruction program = %s, want ATA program", create.ProgramID())
	}
	data, _ := create.Data()
	if len(data) != 1 || data[0] != 1 {
		t.Errorf("create-ATA data = %v, want the idempotent opcode {1}", data)
	}
	metas := create.Accounts()
	if !metas[0].PublicKey.Equals(fx.payer) || !metas[0].IsSigner {
		t.Error("payer must fund and sign the ATA creation")
	}
	if !metas[1].PublicKey.Equals(fx.payerATA) {
		t.Errorf("created account = %s, want %s", metas[1].PublicKey, fx.payerATA)
	}
}

func TestBuildClonedInstructionNonceLeads(t *testing.T) {
	fx := newPumpFixture(t, pumpBuyDisc, 1_000_000, 5_000_000_000)
	chain := &fakeChain{
		decimals: map[solana.PublicKey]uint8{fx.tokenMint: 6},
		existing: map[solana.PublicKey]bool{fx.payerATA: true},
	}
	svc := testForge(t, chain)

	nonce := &domain.NonceDescriptor{
		NoncePubkey: solana.NewWallet().PublicKey(),
		Authority:   fx.payer,
	}
	res, err := svc.BuildClonedInstruction(context.Background(), BuilderOptions{
		Target:       fx.target,
		TraderWallet: fx.trader,
		NewPayer:     fx.payer,
		InputMint:    common.WSOLMint,
		OutputMint:   fx.tokenMint,
		Amount:       1.0,
		SlippageBps:  50,
		Nonce:        nonce,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.UsedNonce {
		t.Error("UsedNonce not reported")
	}
	first := res.Instructions[0]
	if !first.ProgramID().Equals(common.SystemProgramID) {
		t.Errorf("first instruction program = %s, want system program", first.ProgramID())
	}
	data, _ := first.Data()
	if binary.LittleEndian.Uint32(data) != 4 {
		t.Errorf("system instruction index = %d, want 4 (advance nonce)", binary.LittleEndian.Uint32(data))
	}
	metas := first.Accounts()
	if !metas[0].PublicKey.Equals(nonce.NoncePubkey) || !metas[0].IsWritable {
		t.Error("advance-nonce must write the nonce account first")
	}
	if !metas[2].PublicKey.Equals(nonce.Authority) || !metas[2].IsSigner {
		t.Error("nonce authority must sign")
	}
}

func TestBuildClonedInstructionErrors(t *testing.T) {
	fx := newPumpFixture(t, pumpBuyDisc, 1_000_000, 5_000_000_000)
	chain := &fakeChain{
		decimals: map[solana.PublicKey]uint8{fx.tokenMint: 6},
		existing: map[solana.PublicKey]bool{fx.payerATA: true},
	}
	svc := testForge(t, chain)

	base := BuilderOptions{
		Target:       fx.target,
		TraderWallet: fx.trader,
		NewPayer:     fx.payer,
		InputMint:    common.WSOLMint,
		OutputMint:   fx.tokenMint,
		Amount:       1.0,
	}

	t.Run("missing target", func(t *testing.T) {
		opts := base
		opts.Target = nil
		if _, err := svc.BuildClonedInstruction(context.Background(), opts); !errors.Is(err, ErrMissingTarget) {
			t.Errorf("error = %v, want ErrMissingTarget", err)
		}
	})

	t.Run("zero payer", func(t *testing.T) {
		opts := base
		opts.NewPayer = solana.PublicKey{}
		if _, err := svc.BuildClonedInstruction(context.Background(), opts); !errors.Is(err, ErrInvalidPayer) {
			t.Errorf("error = %v, want ErrInvalidPayer", err)
		}
	})

	t.Run("unregistered program", func(t *testing.T) {
		opts := base
		opts.Target = fx.target.Clone()
		opts.Target.ProgramID = solana.NewWallet().PublicKey()
		if _, err := svc.BuildClonedInstruction(context.Background(), opts); !errors.Is(err, ErrUnknownProgram) {
			t.Errorf("error = %v, want ErrUnknownProgram", err)
		}
	})

	t.Run("decimals unavailable", func(t *testing.T) {
		failing := &fakeChain{mintErr: errors.New("rpc down")}
		failingSvc := testForge(t, failing)
		_, err := failingSvc.BuildClonedInstruction(context.Background(), base)
		if !errors.Is(err, common.ErrAccountResolution) && !errors.Is(err, common.ErrDecimalsUnavailable) {
			t.Errorf("error = %v, want a resolution failure", err)
		}
	})
}

func TestScaleToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		decimals uint8
		want     uint64
	}{
		{"whole sol", 1, 9, 1_000_000_000},
		{"fractional", 0.5, 6, 500_000},
		{"zero", 0, 9, 0},
		{"negative clamps to zero", -3, 6, 0},
		{"sub-precision truncates", 0.0000001, 6, 0},
		{"overflow clamps to max", 1e30, 9, ^uint64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scaleToBaseUnits(tt.amount, tt.decimals); got != tt.want {
				t.Errorf("scaleToBaseUnits(%v, %d) = %d, want %d", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestRescaleThreshold(t *testing.T) {
	tests := []struct {
		name          string
		origThreshold uint64
		origBase      uint64
		newBase       uint64
		slippageBps   uint16
		upperBound    bool
		want          uint64
	}{
		{"ratio preserved no slippage", 2_000, 1_000, 500, 0, false, 1_000},
		{"min-out widens down", 10_000, 1_000, 1_000, 100, false, 9_900},
		{"max-cost widens up", 10_000, 1_000, 1_000, 100, true, 10_100},
		{"zero orig base falls back to new base", 999, 0, 5_000, 0, false, 5_000},
		{"overflow clamps", ^uint64(0), 1, ^uint64(0), 0, true, ^uint64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rescaleThreshold(tt.origThreshold, tt.origBase, tt.newBase, tt.slippageBps, tt.upperBound)
			if got != tt.want {
				t.Errorf("rescaleThreshold = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetATAAddressForMintDeterministic(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	a1, bump1, err := GetATAAddressForMint(wallet, mint, common.TokenProgramID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a2, bump2, err := GetATAAddressForMint(wallet, mint, common.TokenProgramID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a1.Equals(a2) || bump1 != bump2 {
		t.Error("derivation must be deterministic (and memoized)")
	}

	// The legacy and 2022 token programs derive different addresses.
	a3, _, err := GetATAAddressForMint(wallet, mint, common.Token2022ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a1.Equals(a3) {
		t.Error("token program must participate in the derivation")
	}
}
