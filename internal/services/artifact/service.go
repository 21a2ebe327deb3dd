// Package artifact is the trade-ready cache: forged templates and pre-signed
// transactions parked between detection and the decision to fire. Entries are
// keyed by opportunity identity (token mint + platform) and expire on a
// per-class TTL.
package artifact

import (
	"time"

	"github.com/gagliardetto/solana-go"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/happy2099/zap-mono/internal/adapters/persistence"
	"github.com/happy2099/zap-mono/internal/config"
	"github.com/happy2099/zap-mono/internal/domain"
	"github.com/happy2099/zap-mono/internal/metrics"
	"github.com/happy2099/zap-mono/internal/services"
)

const SERVICE_NAME = "artifact-cache-service"

type Service struct {
	container.BaseDIInstance

	config  *config.ArtifactConfig
	logger  *services.ServiceLogger
	cache   *ShardedCache
	storage *persistence.Storage

	stopSweeper chan struct{}
}

func (svc *Service) ID() string {
	return SERVICE_NAME
}

func (svc *Service) Configure(c container.IContainer) error {
	var err error
	svc.config = c.GetConfig(config.ARTIFACT_CONFIG_KEY).(*config.ArtifactConfig)
	svc.logger = services.NewServiceLogger(svc)
	svc.cache = NewShardedCache()
	svc.stopSweeper = make(chan struct{})

	svc.storage, err = persistence.NewStorage(svc.config.SnapshotPath)
	if err != nil {
		return err
	}
	return nil
}

func (svc *Service) Start() error {
	loaded := svc.restoreSnapshot()
	go svc.sweeper()

	svc.logger.Info().
		Int("restored", loaded).
		Dur("template_ttl", svc.config.TemplateTTL).
		Dur("signed_tx_ttl", svc.config.SignedTxTTL).
		Msg("[ArtifactCache] started")
	return nil
}

func (svc *Service) Stop() error {
	close(svc.stopSweeper)
	svc.persistSnapshot()
	return svc.storage.Close()
}

// NewService builds a cache service outside the DI container, for tests.
// No snapshot storage and no sweeper; expiry still applies on read.
func NewService(cfg *config.ArtifactConfig) *Service {
	svc := &Service{
		config:      cfg,
		cache:       NewShardedCache(),
		stopSweeper: make(chan struct{}),
	}
	svc.logger = services.NewServiceLogger(svc)
	return svc
}

// Storage exposes the process-wide bolt handle. Bolt allows one writer per
// file, so other services record through this handle instead of opening
// their own.
func (svc *Service) Storage() *persistence.Storage {
	return svc.storage
}

// CacheKey is the opportunity identity entries are stored under.
func CacheKey(tokenMint solana.PublicKey, platform string) string {
	return tokenMint.String() + ":" + platform
}

func classOf(entry *domain.TradeReadyEntry) Class {
	if len(entry.SignedTx) > 0 {
		return ClassSignedTx
	}
	return ClassTemplate
}

func (svc *Service) ttlFor(class Class) time.Duration {
	if class == ClassSignedTx {
		return svc.config.SignedTxTTL
	}
	return svc.config.TemplateTTL
}

// Put stores an entry, replacing any previous one under the same key. The
// TTL class follows the entry shape: signed bytes get the short TTL.
func (svc *Service) Put(key string, entry *domain.TradeReadyEntry) {
	class := classOf(entry)
	now := time.Now()
	svc.cache.Set(key, entry, class, now.Add(svc.ttlFor(class)))
	metrics.CacheSize.Set(float64(svc.cache.Len(now)))
}

// PutIfAbsent stores the entry only if no live entry exists under key.
// Racing detectors of the same opportunity converge on the first writer.
func (svc *Service) PutIfAbsent(key string, entry *domain.TradeReadyEntry) bool {
	class := classOf(entry)
	now := time.Now()
	stored := svc.cache.SetIfAbsent(key, entry, class, now.Add(svc.ttlFor(class)), now)
	if stored {
		metrics.CacheSize.Set(float64(svc.cache.Len(now)))
	}
	return stored
}

// Get returns the live entry for key. Expired entries are misses.
func (svc *Service) Get(key string) (*domain.TradeReadyEntry, bool) {
	entry, class, ok := svc.cache.Get(key, time.Now())
	if !ok {
		// attribute the miss to the class a hit would have had, if knowable
		metrics.CacheMisses.WithLabelValues(string(ClassTemplate)).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(string(class)).Inc()
	return entry, true
}

// Invalidate removes the entry for key, reporting whether one existed.
func (svc *Service) Invalidate(key string) bool {
	ok := svc.cache.Delete(key)
	metrics.CacheSize.Set(float64(svc.cache.Len(time.Now())))
	return ok
}

// ListKeys returns the keys of all live entries, in no particular order.
func (svc *Service) ListKeys() []string {
	return svc.cache.Keys(time.Now())
}

// Size returns the number of live entries.
func (svc *Service) Size() int {
	return svc.cache.Len(time.Now())
}

func (svc *Service) sweeper() {
	ticker := time.NewTicker(svc.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-svc.stopSweeper:
			return
		case now := <-ticker.C:
			evicted := svc.cache.Sweep(now)
			if evicted > 0 {
				metrics.CacheEvictions.Add(float64(evicted))
				svc.logger.Debug().Int("evicted", evicted).Msg("[ArtifactCache] sweep completed")
			}
			metrics.CacheSize.Set(float64(svc.cache.Len(now)))
		}
	}
}

// persistSnapshot writes all live entries to disk so a restart does not start
// cold. Signed transactions are included with their remaining lifetime; the
// restore discards anything already expired.
func (svc *Service) persistSnapshot() {
	if svc.storage == nil {
		return
	}
	now := time.Now()
	artifacts := make([]*persistence.StoredArtifact, 0, svc.cache.Len(now))

	svc.cache.Range(now, func(key string, entry *domain.TradeReadyEntry, class Class) bool {
		stored := &persistence.StoredArtifact{
			Key:         key,
			TokenMint:   entry.TokenMint.String(),
			DexPlatform: entry.DexPlatform,
			SignedTx:    entry.SignedTx,
			Class:       string(class),
			CreatedAt:   entry.CreatedAt,
			ExpiresAt:   entry.CreatedAt.Add(svc.ttlFor(class)),
		}
		if entry.Target != nil {
			encoded, err := entry.Target.EncodeBase64()
			if err != nil {
				svc.logger.Warn().Str("key", key).Err(err).Msg("[ArtifactCache] failed to encode target, skipping")
				return true
			}
			stored.Target = encoded
		}
		artifacts = append(artifacts, stored)
		return true
	})

	if err := svc.storage.SaveArtifactBatch(artifacts); err != nil {
		svc.logger.Error().Err(err).Msg("[ArtifactCache] snapshot persist failed")
		return
	}
	svc.logger.Info().Int("count", len(artifacts)).Msg("[ArtifactCache] snapshot persisted")
}

func (svc *Service) restoreSnapshot() int {
	if svc.storage == nil {
		return 0
	}
	artifacts, err := svc.storage.LoadAllArtifacts()
	if err != nil {
		svc.logger.Error().Err(err).Msg("[ArtifactCache] snapshot restore failed")
		return 0
	}

	now := time.Now()
	restored := 0
	for _, stored := range artifacts {
		if now.After(stored.ExpiresAt) {
			continue
		}
		tokenMint, err := solana.PublicKeyFromBase58(stored.TokenMint)
		if err != nil {
			svc.logger.Warn().Str("key", stored.Key).Err(err).Msg("[ArtifactCache] invalid mint in snapshot, skipping")
			continue
		}

		entry := &domain.TradeReadyEntry{
			TokenMint:   tokenMint,
			DexPlatform: stored.DexPlatform,
			SignedTx:    stored.SignedTx,
			CreatedAt:   stored.CreatedAt,
		}
		if stored.Target != "" {
			target, err := domain.DecodeCloningTarget(stored.Target)
			if err != nil {
				svc.logger.Warn().Str("key", stored.Key).Err(err).Msg("[ArtifactCache] invalid target in snapshot, skipping")
				continue
			}
			entry.Target = target
		}

		svc.cache.Set(stored.Key, entry, Class(stored.Class), stored.ExpiresAt)
		restored++
	}

	metrics.CacheSize.Set(float64(svc.cache.Len(now)))
	return restored
}
