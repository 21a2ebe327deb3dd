package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type ArtifactConfig struct {
	// TemplateTTL bounds forged-but-unsigned instruction templates, which
	// can be re-signed with a fresh blockhash at read time.
	TemplateTTL time.Duration

	// SignedTxTTL bounds fully signed transaction byte strings, which go
	// stale with their blockhash/nonce context.
	SignedTxTTL time.Duration

	// SweepInterval is the active-expiry sweep period.
	SweepInterval time.Duration

	// SnapshotPath is the boltdb file used to persist trade-ready entries
	// and terminal trade outcomes across restarts.
	SnapshotPath string
}

func (c *ArtifactConfig) Key() string {
	return ARTIFACT_CONFIG_KEY
}

func (c *ArtifactConfig) Load() error {
	c.TemplateTTL = envDuration("ARTIFACT_TEMPLATE_TTL", 5*time.Minute)
	c.SignedTxTTL = envDuration("ARTIFACT_SIGNED_TX_TTL", 90*time.Second)
	c.SweepInterval = envDuration("ARTIFACT_SWEEP_INTERVAL", 10*time.Second)
	c.SnapshotPath = common.GetEnvOrDefault("ARTIFACT_DB_PATH", "./data/zap-mono.db")
	return c.Validate()
}

func (c *ArtifactConfig) Validate() error {
	if c.TemplateTTL <= 0 || c.SignedTxTTL <= 0 {
		return errors.New("invalid artifact config: TTLs must be positive")
	}
	return nil
}
