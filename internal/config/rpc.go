package config

import (
	"errors"
	"os"
	"slices"
)

type RPCConfig struct {
	RPCUrl    string
	WSUrl     string
	RPCApiKey string

	// ExecutorKey is the base58-encoded private key that signs and pays for
	// cloned transactions.
	ExecutorKey string
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = os.Getenv("RPC_URL")
	r.WSUrl = os.Getenv("WS_URL")
	r.RPCApiKey = os.Getenv("RPC_KEY")
	r.ExecutorKey = os.Getenv("EXECUTOR_KEY")
	return nil
}

func (r *RPCConfig) Validate() error {
	if slices.Contains([]string{r.RPCUrl, r.ExecutorKey}, "") {
		return errors.New("invalid rpc config")
	}
	return nil
}
