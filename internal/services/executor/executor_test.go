package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/happy2099/zap-mono/internal/adapters/blockchain"
	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/config"
	"github.com/happy2099/zap-mono/internal/domain"
)

type fakeSubmitter struct {
	mu        sync.Mutex
	sent      int
	sendErr   error
	simRPCErr error
	simTxErr  interface{}
	statusErr interface{}
	neverSeen bool
}

func (f *fakeSubmitter) SendTransactionWithOpts(_ context.Context, _ *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	f.sent++
	f.mu.Unlock()
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return solana.Signature{1}, nil
}

func (f *fakeSubmitter) SimulateTransactionWithOpts(_ context.Context, _ *solana.Transaction, _ *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error) {
	if f.simRPCErr != nil {
		return nil, f.simRPCErr
	}
	return &rpc.SimulateTransactionResponse{
		Value: &rpc.SimulateTransactionResult{Err: f.simTxErr},
	}, nil
}

func (f *fakeSubmitter) GetSignatureStatuses(_ context.Context, _ bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	if f.neverSeen {
		return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}, nil
	}
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{
			{Err: f.statusErr, ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		},
	}, nil
}

func (f *fakeSubmitter) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

type fakeBlockhash struct {
	height uint64
}

func (f *fakeBlockhash) GetBlockhash(_ context.Context) (solana.Hash, uint64, error) {
	return solana.Hash{7}, 100, nil
}

func (f *fakeBlockhash) Current() (blockchain.CachedBlockhash, bool) {
	return blockchain.CachedBlockhash{BlockHeight: f.height, LastValidBlockHeight: f.height + 150}, true
}

type fakeStore struct {
	mu    sync.Mutex
	saved []domain.TradeResult
}

func (f *fakeStore) SaveTradeOutcome(_ *domain.QueuedTrade, result domain.TradeResult) error {
	f.mu.Lock()
	f.saved = append(f.saved, result)
	f.mu.Unlock()
	return nil
}

func testEngineConfig() *config.EngineConfig {
	return &config.EngineConfig{
		MaxConcurrentExecutions: 2,
		ConfirmTimeout:          5 * time.Second,
		ValidityWindow:          time.Minute,
		ComputeUnitLimit:        200_000,
		PriorityFee:             1_000,
		SimulateBeforeSubmit:    true,
	}
}

func testExecutor(t *testing.T, submitter *fakeSubmitter) (*Service, solana.PrivateKey, *fakeStore) {
	t.Helper()
	wallet := solana.NewWallet()
	store := &fakeStore{}
	svc := NewService(testEngineConfig(), wallet.PrivateKey, submitter, &fakeBlockhash{height: 10}, store)
	return svc, wallet.PrivateKey, store
}

func noopInstruction(signer solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{solana.NewAccountMeta(signer, true, true)},
		[]byte("x"),
	)
}

func awaitResult(t *testing.T, trade *domain.QueuedTrade) domain.TradeResult {
	t.Helper()
	select {
	case res := <-trade.Result:
		return res
	case <-time.After(10 * time.Second):
		t.Fatal("no result delivered")
		return domain.TradeResult{}
	}
}

func TestEnqueueRejectsEmptyPayload(t *testing.T) {
	svc, _, _ := testExecutor(t, &fakeSubmitter{})

	err := svc.Enqueue(&domain.QueuedTrade{})
	if !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("error = %v, want ErrEmptyPayload", err)
	}
}

func TestEnqueueAssignsDefaults(t *testing.T) {
	svc, signer, _ := testExecutor(t, &fakeSubmitter{})

	trade := &domain.QueuedTrade{
		Payload: domain.ExecutionPayload{
			Instructions: []solana.Instruction{noopInstruction(signer.PublicKey())},
		},
	}
	if err := svc.Enqueue(trade); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trade.ID == "" {
		t.Error("trade ID not assigned")
	}
	if trade.EnqueuedAt.IsZero() {
		t.Error("EnqueuedAt not assigned")
	}
	if trade.Result == nil {
		t.Error("result channel not assigned")
	}
	if trade.Status != domain.StatusQueued {
		t.Errorf("status = %v, want queued", trade.Status)
	}
	if svc.Size() != 1 {
		t.Errorf("size = %d, want 1", svc.Size())
	}
}

func TestDrainResolvesWaitingTrades(t *testing.T) {
	svc, signer, _ := testExecutor(t, &fakeSubmitter{})

	trades := make([]*domain.QueuedTrade, 3)
	for i := range trades {
		trades[i] = &domain.QueuedTrade{
			Payload: domain.ExecutionPayload{
				Instructions: []solana.Instruction{noopInstruction(signer.PublicKey())},
			},
		}
		if err := svc.Enqueue(trades[i]); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	if drained := svc.Drain(); drained != 3 {
		t.Fatalf("drained = %d, want 3", drained)
	}
	if svc.Size() != 0 {
		t.Errorf("size after drain = %d, want 0", svc.Size())
	}

	for i, trade := range trades {
		res := awaitResult(t, trade)
		if res.Status != domain.StatusFailed || !errors.Is(res.Err, ErrQueueDrained) {
			t.Errorf("trade %d: status=%v err=%v, want failed/drained", i, res.Status, res.Err)
		}
	}
}

func TestExecuteConfirmedFlow(t *testing.T) {
	submitter := &fakeSubmitter{}
	svc, signer, store := testExecutor(t, submitter)

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	trade := &domain.QueuedTrade{
		Payload: domain.ExecutionPayload{
			Instructions: []solana.Instruction{noopInstruction(signer.PublicKey())},
		},
		Priority: 5,
	}
	if err := svc.Enqueue(trade); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res := awaitResult(t, trade)
	if res.Status != domain.StatusConfirmed {
		t.Fatalf("status = %v (err %v), want confirmed", res.Status, res.Err)
	}
	if res.TxSignature.IsZero() {
		t.Error("confirmed result must carry the signature")
	}
	if submitter.sentCount() != 1 {
		t.Errorf("submissions = %d, want exactly one", submitter.sentCount())
	}

	// Terminal result is queryable and persisted.
	got, ok := svc.Status(trade.ID)
	if !ok || got.Status != domain.StatusConfirmed {
		t.Errorf("Status(%s) = %v/%v, want confirmed", trade.ID, got.Status, ok)
	}
	store.mu.Lock()
	saved := len(store.saved)
	store.mu.Unlock()
	if saved != 1 {
		t.Errorf("persisted outcomes = %d, want 1", saved)
	}
}

func TestExecuteSimulationFailure(t *testing.T) {
	submitter := &fakeSubmitter{simTxErr: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}}
	svc, signer, _ := testExecutor(t, submitter)

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	trade := &domain.QueuedTrade{
		Payload: domain.ExecutionPayload{
			Instructions: []solana.Instruction{noopInstruction(signer.PublicKey())},
		},
	}
	if err := svc.Enqueue(trade); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res := awaitResult(t, trade)
	if res.Status != domain.StatusFailed || !errors.Is(res.Err, ErrSimulationFailed) {
		t.Errorf("status=%v err=%v, want failed/simulation", res.Status, res.Err)
	}
	if submitter.sentCount() != 0 {
		t.Errorf("submissions = %d, a failed simulation must block submission", submitter.sentCount())
	}
}

func TestExecuteSimulationUnavailableStillSubmits(t *testing.T) {
	submitter := &fakeSubmitter{simRPCErr: errors.New("rpc overloaded")}
	svc, signer, _ := testExecutor(t, submitter)

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	trade := &domain.QueuedTrade{
		Payload: domain.ExecutionPayload{
			Instructions: []solana.Instruction{noopInstruction(signer.PublicKey())},
		},
	}
	if err := svc.Enqueue(trade); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res := awaitResult(t, trade)
	if res.Status != domain.StatusConfirmed {
		t.Errorf("status = %v (err %v), want confirmed despite unavailable simulation", res.Status, res.Err)
	}
	if submitter.sentCount() != 1 {
		t.Errorf("submissions = %d, want 1", submitter.sentCount())
	}
}

func TestExecuteSubmissionRejected(t *testing.T) {
	submitter := &fakeSubmitter{sendErr: errors.New("blockhash not found")}
	svc, signer, _ := testExecutor(t, submitter)

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	trade := &domain.QueuedTrade{
		Payload: domain.ExecutionPayload{
			Instructions: []solana.Instruction{noopInstruction(signer.PublicKey())},
		},
	}
	if err := svc.Enqueue(trade); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res := awaitResult(t, trade)
	if res.Status != domain.StatusFailed {
		t.Errorf("status = %v, want failed", res.Status)
	}
}

func TestExecuteExpiresStaleBlockhashTrade(t *testing.T) {
	submitter := &fakeSubmitter{}
	svc, signer, _ := testExecutor(t, submitter)

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	// Sat in the queue past the validity window before execution.
	trade := &domain.QueuedTrade{
		Payload: domain.ExecutionPayload{
			Instructions: []solana.Instruction{noopInstruction(signer.PublicKey())},
		},
		EnqueuedAt: time.Now().Add(-2 * time.Minute),
	}
	if err := svc.Enqueue(trade); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res := awaitResult(t, trade)
	if res.Status != domain.StatusExpired {
		t.Errorf("status = %v, want expired", res.Status)
	}
	if submitter.sentCount() != 0 {
		t.Errorf("submissions = %d, expired trades must not be submitted", submitter.sentCount())
	}
}

func TestExecuteNonceTradeIgnoresValidityWindow(t *testing.T) {
	submitter := &fakeSubmitter{}
	svc, signer, _ := testExecutor(t, submitter)

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	nonceWallet := solana.NewWallet()
	advance := solana.NewInstruction(
		solana.SystemProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(nonceWallet.PublicKey(), true, false),
			solana.NewAccountMeta(solana.SysVarRecentBlockHashesPubkey, false, false),
			solana.NewAccountMeta(signer.PublicKey(), false, true),
		},
		[]byte{4, 0, 0, 0},
	)

	trade := &domain.QueuedTrade{
		Payload: domain.ExecutionPayload{
			Instructions: []solana.Instruction{advance, noopInstruction(signer.PublicKey())},
			Nonce: &domain.NonceDescriptor{
				NoncePubkey: nonceWallet.PublicKey(),
				Authority:   signer.PublicKey(),
				NonceValue:  solana.Hash{9},
			},
		},
		EnqueuedAt: time.Now().Add(-2 * time.Minute),
	}
	if err := svc.Enqueue(trade); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res := awaitResult(t, trade)
	if res.Status != domain.StatusConfirmed {
		t.Errorf("status = %v (err %v), durable-nonce trades do not age out in the queue", res.Status, res.Err)
	}
}

func TestConfirmOnChainFailure(t *testing.T) {
	submitter := &fakeSubmitter{statusErr: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}}
	svc, signer, _ := testExecutor(t, submitter)

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	trade := &domain.QueuedTrade{
		Payload: domain.ExecutionPayload{
			Instructions: []solana.Instruction{noopInstruction(signer.PublicKey())},
		},
	}
	if err := svc.Enqueue(trade); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res := awaitResult(t, trade)
	if res.Status != domain.StatusFailed {
		t.Errorf("status = %v, want failed for an on-chain error", res.Status)
	}
	if res.TxSignature.IsZero() {
		t.Error("failed result should still carry the submitted signature")
	}
}

func TestConfirmExpiresWhenChainPassesValidHeight(t *testing.T) {
	// The signature is never observed and the chain's block height is already
	// past the blockhash's last valid height: the trade expires instead of
	// polling until the timeout.
	submitter := &fakeSubmitter{neverSeen: true}
	wallet := solana.NewWallet()
	svc := NewService(testEngineConfig(), wallet.PrivateKey, submitter, &fakeBlockhash{height: 500}, &fakeStore{})

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	trade := &domain.QueuedTrade{
		Payload: domain.ExecutionPayload{
			Instructions: []solana.Instruction{noopInstruction(wallet.PublicKey())},
		},
	}
	if err := svc.Enqueue(trade); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res := awaitResult(t, trade)
	if res.Status != domain.StatusExpired {
		t.Errorf("status = %v (err %v), want expired", res.Status, res.Err)
	}
	if !errors.Is(res.Err, common.ErrExpired) {
		t.Errorf("err = %v, want ErrExpired", res.Err)
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	svc, signer, _ := testExecutor(t, &fakeSubmitter{})
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	err := svc.Enqueue(&domain.QueuedTrade{
		Payload: domain.ExecutionPayload{
			Instructions: []solana.Instruction{noopInstruction(signer.PublicKey())},
		},
	})
	if !errors.Is(err, ErrQueueStopped) {
		t.Errorf("error = %v, want ErrQueueStopped", err)
	}
}

func TestPriorityOrderUnderSingleSlot(t *testing.T) {
	// One execution slot forces strictly serial execution, exposing pop order.
	submitter := &fakeSubmitter{}
	wallet := solana.NewWallet()
	store := &fakeStore{}
	cfg := testEngineConfig()
	cfg.MaxConcurrentExecutions = 1
	svc := NewService(cfg, wallet.PrivateKey, submitter, &fakeBlockhash{height: 10}, store)

	var orderMu sync.Mutex
	var order []string
	trades := make([]*domain.QueuedTrade, 0, 3)
	for _, tc := range []struct {
		id       string
		priority int
	}{
		{"low", 1},
		{"high", 9},
		{"mid", 5},
	} {
		trade := &domain.QueuedTrade{
			ID:       tc.id,
			Priority: tc.priority,
			Payload: domain.ExecutionPayload{
				Instructions: []solana.Instruction{noopInstruction(wallet.PublicKey())},
			},
		}
		trades = append(trades, trade)
		if err := svc.Enqueue(trade); err != nil {
			t.Fatalf("enqueue %s: %v", tc.id, err)
		}
	}

	// Start after all enqueues so the dispatcher sees the full heap.
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	var wg sync.WaitGroup
	for _, trade := range trades {
		wg.Add(1)
		go func(tr *domain.QueuedTrade) {
			defer wg.Done()
			res := awaitResult(t, tr)
			if res.Status != domain.StatusConfirmed {
				t.Errorf("%s: status = %v (err %v)", tr.ID, res.Status, res.Err)
			}
			orderMu.Lock()
			order = append(order, tr.ID)
			orderMu.Unlock()
		}(trade)
	}
	wg.Wait()

	// The highest priority must resolve first.
	if len(order) != 3 || order[0] != "high" {
		t.Errorf("resolution order = %v, want high first", order)
	}
}
