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
)

const TX_SOURCE_SERVICE = "tx-source-service"

// TransactionSourceService fetches confirmed transactions with their metadata.
// Versioned transactions are requested explicitly; without the max-version
// opt the RPC refuses anything using address lookup tables.
type TransactionSourceService struct {
	container.BaseDIInstance

	rpcClient *rpc.Client
}

func (svc *TransactionSourceService) ID() string {
	return TX_SOURCE_SERVICE
}

func (svc *TransactionSourceService) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	return nil
}

// NewTransactionSource builds a source against an existing client, for tests.
func NewTransactionSource(client *rpc.Client) *TransactionSourceService {
	return &TransactionSourceService{rpcClient: client}
}

func (svc *TransactionSourceService) FetchTransaction(ctx context.Context, signature solana.Signature) (*solana.Transaction, *rpc.TransactionMeta, error) {
	maxVersion := uint64(0)
	res, err := svc.rpcClient.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, signature)
		}
		return nil, nil, fmt.Errorf("failed to fetch transaction %s: %w", signature, err)
	}
	if res == nil || res.Transaction == nil {
		return nil, nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, signature)
	}

	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to decode transaction %s: %v", common.ErrMalformedInput, signature, err)
	}

	return tx, res.Meta, nil
}
