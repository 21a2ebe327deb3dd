// Package executor is the execution queue: it orders forged trades by
// priority, runs at most a configured number of submissions concurrently,
// and drives each trade through its state machine to exactly one terminal
// result.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/happy2099/zap-mono/internal/adapters/blockchain"
	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/config"
	"github.com/happy2099/zap-mono/internal/domain"
	"github.com/happy2099/zap-mono/internal/metrics"
	"github.com/happy2099/zap-mono/internal/services"
	"github.com/happy2099/zap-mono/internal/services/artifact"
)

const SERVICE_NAME = "executor-service"

var (
	ErrEmptyPayload     = errors.New("trade has no instructions or signed transaction")
	ErrQueueStopped     = errors.New("execution queue is stopped")
	ErrQueueDrained     = errors.New("trade removed by queue drain")
	ErrSimulationFailed = errors.New("transaction simulation failed")
)

// Submitter is the slice of the RPC client the executor talks to.
type Submitter interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// BlockhashProvider supplies fresh blockhashes and the chain's observed
// block height for expiry judgment.
type BlockhashProvider interface {
	GetBlockhash(ctx context.Context) (solana.Hash, uint64, error)
	Current() (blockchain.CachedBlockhash, bool)
}

// OutcomeStore records terminal results for the ops surface.
type OutcomeStore interface {
	SaveTradeOutcome(trade *domain.QueuedTrade, result domain.TradeResult) error
}

type Service struct {
	container.BaseDIInstance

	config    *config.EngineConfig
	logger    *services.ServiceLogger
	signer    solana.PrivateKey
	rpcClient Submitter
	blockhash BlockhashProvider
	store     OutcomeStore

	mu      sync.Mutex
	heap    tradeHeap
	seq     uint64
	stopped bool

	notify chan struct{}
	sem    chan struct{}
	stop   chan struct{}
	wg     sync.WaitGroup

	recentMu sync.RWMutex
	recent   map[string]domain.TradeResult
}

func (svc *Service) ID() string {
	return SERVICE_NAME
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.config = c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)

	signer, err := solana.PrivateKeyFromBase58(rpcConfig.ExecutorKey)
	if err != nil {
		return fmt.Errorf("invalid executor key: %w", err)
	}
	svc.signer = signer

	svc.logger = services.NewServiceLogger(svc)
	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	svc.blockhash = c.Instance(blockchain.BLOCKHASH_CACHE_SERVICE).(*blockchain.BlockhashCacheService)
	svc.store = c.Instance(artifact.SERVICE_NAME).(*artifact.Service).Storage()

	svc.initQueue()
	return nil
}

// NewService builds an executor outside the DI container, for tests.
func NewService(cfg *config.EngineConfig, signer solana.PrivateKey, client Submitter, blockhash BlockhashProvider, store OutcomeStore) *Service {
	svc := &Service{
		config:    cfg,
		signer:    signer,
		rpcClient: client,
		blockhash: blockhash,
		store:     store,
	}
	svc.logger = services.NewServiceLogger(svc)
	svc.initQueue()
	return svc
}

func (svc *Service) initQueue() {
	svc.heap = make(tradeHeap, 0, 64)
	svc.notify = make(chan struct{}, 1)
	svc.sem = make(chan struct{}, svc.config.MaxConcurrentExecutions)
	svc.stop = make(chan struct{})
	svc.recent = make(map[string]domain.TradeResult)
}

func (svc *Service) Start() error {
	svc.wg.Add(1)
	go svc.dispatcher()

	svc.logger.Info().
		Int("max_concurrent", svc.config.MaxConcurrentExecutions).
		Dur("confirm_timeout", svc.config.ConfirmTimeout).
		Dur("validity_window", svc.config.ValidityWindow).
		Msg("[Executor] started")
	return nil
}

func (svc *Service) Stop() error {
	svc.mu.Lock()
	svc.stopped = true
	svc.mu.Unlock()

	close(svc.stop)
	svc.Drain()
	svc.wg.Wait()
	return nil
}

// Enqueue admits a trade into the queue. The trade's Result channel receives
// exactly one terminal result, whatever happens after this call returns.
func (svc *Service) Enqueue(trade *domain.QueuedTrade) error {
	if len(trade.Payload.Instructions) == 0 && len(trade.Payload.SignedTx) == 0 {
		return ErrEmptyPayload
	}

	svc.mu.Lock()
	if svc.stopped {
		svc.mu.Unlock()
		return ErrQueueStopped
	}
	if trade.EnqueuedAt.IsZero() {
		trade.EnqueuedAt = time.Now()
	}
	if trade.ID == "" {
		trade.ID = fmt.Sprintf("trade-%d-%d", trade.EnqueuedAt.UnixNano(), svc.seq)
	}
	if trade.Result == nil {
		trade.Result = make(chan domain.TradeResult, 1)
	}
	trade.Status = domain.StatusQueued

	item := &queuedItem{trade: trade, seq: svc.seq}
	svc.seq++
	heapPush(&svc.heap, item)
	depth := svc.heap.Len()
	svc.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))

	select {
	case svc.notify <- struct{}{}:
	default:
	}
	return nil
}

// Size returns the number of trades waiting for an execution slot.
func (svc *Service) Size() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.heap.Len()
}

// Status returns the last known terminal result for a trade ID.
func (svc *Service) Status(id string) (domain.TradeResult, bool) {
	svc.recentMu.RLock()
	defer svc.recentMu.RUnlock()
	res, ok := svc.recent[id]
	return res, ok
}

// Drain removes every waiting trade without executing it, resolving each
// with a failed result. Trades already executing run to completion.
func (svc *Service) Drain() int {
	svc.mu.Lock()
	drained := make([]*queuedItem, len(svc.heap))
	copy(drained, svc.heap)
	svc.heap = svc.heap[:0]
	svc.mu.Unlock()

	now := time.Now()
	for _, item := range drained {
		svc.finish(item.trade, domain.TradeResult{
			Status:      domain.StatusFailed,
			Err:         ErrQueueDrained,
			CompletedAt: now,
		})
	}
	metrics.QueueDepth.Set(0)
	return len(drained)
}

func (svc *Service) dispatcher() {
	defer svc.wg.Done()
	for {
		select {
		case <-svc.stop:
			return
		case <-svc.notify:
		}

		for {
			trade := svc.pop()
			if trade == nil {
				break
			}

			select {
			case svc.sem <- struct{}{}:
			case <-svc.stop:
				svc.finish(trade, domain.TradeResult{
					Status:      domain.StatusFailed,
					Err:         ErrQueueDrained,
					CompletedAt: time.Now(),
				})
				return
			}

			svc.wg.Add(1)
			go svc.execute(trade)
		}
	}
}

func (svc *Service) pop() *domain.QueuedTrade {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.heap.Len() == 0 {
		return nil
	}
	item := heapPop(&svc.heap)
	metrics.QueueDepth.Set(float64(svc.heap.Len()))
	return item.trade
}

func (svc *Service) execute(trade *domain.QueuedTrade) {
	defer svc.wg.Done()
	defer func() { <-svc.sem }()

	started := time.Now()

	// blockhash-bound trades that sat in the queue past the validity window
	// can no longer land; durable-nonce trades do not age
	if trade.Payload.Nonce == nil && time.Since(trade.EnqueuedAt) > svc.config.ValidityWindow {
		svc.finish(trade, domain.TradeResult{
			Status:      domain.StatusExpired,
			Err:         fmt.Errorf("validity window elapsed before execution: %w", common.ErrExpired),
			CompletedAt: time.Now(),
		})
		return
	}

	trade.Status = domain.StatusExecuting
	metrics.InFlightExecutions.Inc()
	defer metrics.InFlightExecutions.Dec()

	ctx, cancel := context.WithTimeout(context.Background(), svc.config.ConfirmTimeout)
	defer cancel()

	result := svc.submitAndConfirm(ctx, trade)
	result.CompletedAt = time.Now()
	metrics.ExecutionDuration.Observe(result.CompletedAt.Sub(started).Seconds())
	svc.finish(trade, result)
}

func (svc *Service) submitAndConfirm(ctx context.Context, trade *domain.QueuedTrade) domain.TradeResult {
	tx, lastValidHeight, err := svc.assemble(ctx, trade.Payload)
	if err != nil {
		return domain.TradeResult{Status: domain.StatusFailed, Err: err}
	}

	if svc.config.SimulateBeforeSubmit && !trade.Payload.SkipSimulation {
		if err := svc.simulate(ctx, tx, trade.Payload.Nonce == nil); err != nil {
			return domain.TradeResult{Status: domain.StatusFailed, Err: err}
		}
	}

	// one submission, no resubmit: a copied trade either lands in its window
	// or is worthless
	sig, err := svc.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return domain.TradeResult{
			Status: domain.StatusFailed,
			Err:    fmt.Errorf("submission rejected: %w", err),
		}
	}

	svc.logger.Info().
		Str("trade_id", trade.ID).
		Str("signature", sig.String()).
		Int("priority", trade.Priority).
		Msg("[Executor] submitted")

	return svc.confirm(ctx, trade, sig, lastValidHeight)
}

// assemble turns the payload into a signed transaction. A cached signed
// transaction is replayed verbatim; otherwise compute-budget instructions are
// added and the whole thing is signed with the executor key. For durable
// nonce trades the advance-nonce instruction keeps position zero, which the
// runtime requires.
func (svc *Service) assemble(ctx context.Context, payload domain.ExecutionPayload) (*solana.Transaction, uint64, error) {
	if len(payload.SignedTx) > 0 {
		tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(payload.SignedTx))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to decode signed transaction: %w", err)
		}
		return tx, 0, nil
	}

	budget := make([]solana.Instruction, 0, 2)
	if payload.ComputeUnitLimit > 0 {
		budget = append(budget, computebudget.NewSetComputeUnitLimitInstruction(payload.ComputeUnitLimit).Build())
	}
	if payload.PriorityFee > 0 {
		budget = append(budget, computebudget.NewSetComputeUnitPriceInstruction(payload.PriorityFee).Build())
	}

	ixs := make([]solana.Instruction, 0, len(payload.Instructions)+len(budget))
	if payload.Nonce != nil && len(payload.Instructions) > 0 {
		ixs = append(ixs, payload.Instructions[0])
		ixs = append(ixs, budget...)
		ixs = append(ixs, payload.Instructions[1:]...)
	} else {
		ixs = append(ixs, budget...)
		ixs = append(ixs, payload.Instructions...)
	}

	var blockhash solana.Hash
	var lastValidHeight uint64
	if payload.Nonce != nil {
		blockhash = payload.Nonce.NonceValue
	} else {
		var err error
		blockhash, lastValidHeight, err = svc.blockhash.GetBlockhash(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get blockhash: %w", err)
		}
	}

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(svc.signer.PublicKey()))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(svc.signer.PublicKey()) {
			return &svc.signer
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return tx, lastValidHeight, nil
}

func (svc *Service) simulate(ctx context.Context, tx *solana.Transaction, replaceBlockhash bool) error {
	result, err := svc.rpcClient.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		Commitment:             rpc.CommitmentProcessed,
		ReplaceRecentBlockhash: replaceBlockhash,
	})
	if err != nil {
		// simulation unavailability is not a verdict on the trade
		svc.logger.Warn().Err(err).Msg("[Executor] simulation unavailable, submitting anyway")
		return nil
	}
	if result.Value.Err != nil {
		return fmt.Errorf("%w: %v", ErrSimulationFailed, result.Value.Err)
	}
	return nil
}

func (svc *Service) confirm(ctx context.Context, trade *domain.QueuedTrade, sig solana.Signature, lastValidHeight uint64) domain.TradeResult {
	ticker := time.NewTicker(400 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.TradeResult{
				Status:      domain.StatusFailed,
				TxSignature: sig,
				Err:         fmt.Errorf("confirmation timed out after %s", svc.config.ConfirmTimeout),
			}
		case <-ticker.C:
		}

		res, err := svc.rpcClient.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			svc.logger.Warn().Err(err).Str("signature", sig.String()).Msg("[Executor] status poll failed")
			continue
		}
		if len(res.Value) == 0 || res.Value[0] == nil {
			// not seen yet; expire blockhash-bound trades once the chain
			// moved past their last valid height
			if trade.Payload.Nonce == nil && lastValidHeight > 0 {
				if cur, ok := svc.blockhash.Current(); ok && cur.BlockHeight > lastValidHeight {
					return domain.TradeResult{
						Status:      domain.StatusExpired,
						TxSignature: sig,
						Err:         common.ErrExpired,
					}
				}
			}
			continue
		}

		status := res.Value[0]
		if status.Err != nil {
			return domain.TradeResult{
				Status:      domain.StatusFailed,
				TxSignature: sig,
				Err:         fmt.Errorf("transaction failed on-chain: %v", status.Err),
			}
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return domain.TradeResult{
				Status:      domain.StatusConfirmed,
				TxSignature: sig,
			}
		}
	}
}

// finish resolves the trade exactly once: state, result channel, metrics,
// persisted outcome.
func (svc *Service) finish(trade *domain.QueuedTrade, result domain.TradeResult) {
	trade.Status = result.Status

	select {
	case trade.Result <- result:
	default:
	}

	svc.recentMu.Lock()
	svc.recent[trade.ID] = result
	svc.recentMu.Unlock()

	metrics.TradeOutcomes.WithLabelValues(result.Status.String()).Inc()

	if svc.store != nil {
		if err := svc.store.SaveTradeOutcome(trade, result); err != nil {
			svc.logger.Warn().Err(err).Str("trade_id", trade.ID).Msg("[Executor] failed to persist outcome")
		}
	}

	evt := svc.logger.Info()
	if result.Err != nil {
		evt = svc.logger.Warn().Err(result.Err)
	}
	evt.Str("trade_id", trade.ID).
		Str("status", result.Status.String()).
		Msg("[Executor] trade resolved")
}
