package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type EngineConfig struct {
	// MaxConcurrentExecutions bounds in-flight on-chain submissions.
	MaxConcurrentExecutions int

	// ConfirmTimeout bounds the confirmation poll per execution.
	ConfirmTimeout time.Duration

	// ValidityWindow is how long a blockhash-based trade may sit in the
	// queue before it is reported Expired instead of executed.
	ValidityWindow time.Duration

	// ComputeUnitLimit / PriorityFee shape the compute-budget instructions
	// the executor prepends to every assembled transaction.
	ComputeUnitLimit uint32
	PriorityFee      uint64

	// SimulateBeforeSubmit gates forged transactions behind a simulation
	// pass. Router-verbatim clones in particular should keep this on.
	SimulateBeforeSubmit bool

	// NonceAccounts lists durable nonce accounts (base58) available to the
	// forge; empty disables the durable-nonce path.
	NonceAccounts []string
}

func (e *EngineConfig) Key() string {
	return ENGINE_CONFIG_KEY
}

func (e *EngineConfig) Load() error {
	e.MaxConcurrentExecutions = envInt("MAX_CONCURRENT_EXECUTIONS", 10)
	e.ConfirmTimeout = envDuration("CONFIRM_TIMEOUT", 45*time.Second)
	e.ValidityWindow = envDuration("VALIDITY_WINDOW", 60*time.Second)
	e.ComputeUnitLimit = uint32(envInt("COMPUTE_UNIT_LIMIT", 400_000))
	e.PriorityFee = uint64(envInt("PRIORITY_FEE_MICROLAMPORTS", 100_000))
	e.SimulateBeforeSubmit = common.GetEnvOrDefault("SIMULATE_BEFORE_SUBMIT", "true") == "true"

	if raw := os.Getenv("NONCE_ACCOUNTS"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				e.NonceAccounts = append(e.NonceAccounts, p)
			}
		}
	}
	return e.Validate()
}

func (e *EngineConfig) Validate() error {
	if e.MaxConcurrentExecutions <= 0 {
		return errors.New("invalid engine config: concurrency must be positive")
	}
	return nil
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func envDuration(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return v
}
