package blockchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/config"
	"github.com/happy2099/zap-mono/internal/domain"
)

const NONCE_SOURCE_SERVICE = "nonce-source-service"

// System nonce account layout: u32 version, u32 state, authority pubkey,
// durable nonce hash, u64 fee calculator.
const (
	nonceAccountSize      = 80
	nonceAuthorityOffset  = 8
	nonceBlockhashOffset  = 40
	nonceStateInitialized = 1
)

// NonceSourceService reads durable nonce accounts so the executor can build
// transactions that survive blockhash expiry.
type NonceSourceService struct {
	container.BaseDIInstance

	rpcClient *rpc.Client
}

func (svc *NonceSourceService) ID() string {
	return NONCE_SOURCE_SERVICE
}

func (svc *NonceSourceService) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	return nil
}

// NewNonceSource builds a nonce source against an existing client, for tests.
func NewNonceSource(client *rpc.Client) *NonceSourceService {
	return &NonceSourceService{rpcClient: client}
}

// FetchNonce reads and validates a nonce account, returning its current
// authority and nonce value.
func (svc *NonceSourceService) FetchNonce(ctx context.Context, noncePubkey solana.PublicKey) (*domain.NonceDescriptor, error) {
	res, err := svc.rpcClient.GetAccountInfo(ctx, noncePubkey)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: nonce account %s", common.ErrNotFound, noncePubkey)
		}
		return nil, fmt.Errorf("failed to fetch nonce account %s: %w", noncePubkey, err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("%w: nonce account %s", common.ErrNotFound, noncePubkey)
	}
	if !res.Value.Owner.Equals(common.SystemProgramID) {
		return nil, fmt.Errorf("%w: account %s is not system-owned", common.ErrMalformedInput, noncePubkey)
	}

	data := res.Value.Data.GetBinary()
	if len(data) < nonceAccountSize {
		return nil, fmt.Errorf("%w: nonce account %s too small (%d bytes)", common.ErrMalformedInput, noncePubkey, len(data))
	}

	return &domain.NonceDescriptor{
		NoncePubkey: noncePubkey,
		Authority:   solana.PublicKeyFromBytes(data[nonceAuthorityOffset : nonceAuthorityOffset+32]),
		NonceValue:  solana.Hash(solana.PublicKeyFromBytes(data[nonceBlockhashOffset : nonceBlockhashOffset+32])),
	}, nil
}
