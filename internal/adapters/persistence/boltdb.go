package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/happy2099/zap-mono/internal/domain"
)

const (
	ArtifactsBucket = "artifacts"
	TradesBucket    = "trades"

	DefaultDBPath = "./data/zap-mono.db"
)

// StoredArtifact is the on-disk shape of one cache entry. The cloning target
// travels as its base64 JSON encoding so the snapshot stays schema-stable
// across target layout changes.
type StoredArtifact struct {
	Key         string    `json:"key"`
	TokenMint   string    `json:"tokenMint"`
	DexPlatform string    `json:"dexPlatform"`
	Target      string    `json:"target,omitempty"`
	SignedTx    []byte    `json:"signedTx,omitempty"`
	Class       string    `json:"class"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// StoredTrade is a terminal trade outcome kept for the ops surface.
type StoredTrade struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	TxSignature string    `json:"txSignature,omitempty"`
	Error       string    `json:"error,omitempty"`
	Priority    int       `json:"priority"`
	EnqueuedAt  time.Time `json:"enqueuedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[Storage] opened database")

	return &Storage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveArtifactBatch replaces the artifact snapshot contents with the given
// entries in one batch write.
func (s *Storage) SaveArtifactBatch(artifacts []*StoredArtifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	for _, artifact := range artifacts {
		data, err := sonic.Marshal(artifact)
		if err != nil {
			return fmt.Errorf("failed to marshal artifact %s: %w", artifact.Key, err)
		}

		value := data
		op := &boltdb.WriteOperation{
			Bucket: []byte(ArtifactsBucket),
			Key:    []byte(artifact.Key),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add artifact %s to batch: %w", artifact.Key, err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(artifacts)).Msg("[Storage] FAILED to execute artifact batch")
		return err
	}

	log.Info().Int("count", len(artifacts)).Msg("[Storage] saved artifact batch")
	return nil
}

// LoadAllArtifacts reads the snapshot back, skipping rows that no longer
// unmarshal. Expiry filtering is the cache's job, not storage's.
func (s *Storage) LoadAllArtifacts() ([]*StoredArtifact, error) {
	data, err := s.db.List(ArtifactsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	artifacts := make([]*StoredArtifact, 0, len(data))
	failed := 0

	for key, value := range data {
		var stored StoredArtifact
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Error().Str("key", key).Err(err).Msg("[Storage] failed to unmarshal artifact, skipping")
			failed++
			continue
		}
		artifacts = append(artifacts, &stored)
	}

	if failed > 0 {
		log.Error().
			Int("total_in_db", len(data)).
			Int("loaded", len(artifacts)).
			Int("unmarshal_failed", failed).
			Msg("[Storage] artifact loading completed with errors")
	} else {
		log.Info().
			Int("total_in_db", len(data)).
			Int("loaded", len(artifacts)).
			Msg("[Storage] artifact loading completed successfully")
	}

	return artifacts, nil
}

// SaveTradeOutcome records one terminal trade result.
func (s *Storage) SaveTradeOutcome(trade *domain.QueuedTrade, result domain.TradeResult) error {
	stored := StoredTrade{
		ID:          trade.ID,
		Status:      result.Status.String(),
		Priority:    trade.Priority,
		EnqueuedAt:  trade.EnqueuedAt,
		CompletedAt: result.CompletedAt,
	}
	if !result.TxSignature.IsZero() {
		stored.TxSignature = result.TxSignature.String()
	}
	if result.Err != nil {
		stored.Error = result.Err.Error()
	}

	data, err := sonic.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal trade outcome: %w", err)
	}

	return s.db.Set(TradesBucket, []byte(trade.ID), data)
}

func (s *Storage) LoadAllTradeOutcomes() ([]*StoredTrade, error) {
	data, err := s.db.List(TradesBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}

	trades := make([]*StoredTrade, 0, len(data))
	for id, value := range data {
		var stored StoredTrade
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Warn().Str("id", id).Err(err).Msg("[Storage] failed to unmarshal trade, skipping")
			continue
		}
		trades = append(trades, &stored)
	}
	return trades, nil
}
