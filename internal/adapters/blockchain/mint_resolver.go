package blockchain

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/config"
	"github.com/happy2099/zap-mono/internal/services"
)

const MINT_RESOLVER_SERVICE = "mint-resolver-service"

const mintCacheSize = 8192

type mintInfo struct {
	decimals     uint8
	tokenProgram solana.PublicKey
}

// MintResolverService answers mint metadata queries for the forge. Decimals
// and the owning token program are immutable once a mint exists, so resolved
// entries are cached for the process lifetime (bounded LRU).
type MintResolverService struct {
	container.BaseDIInstance

	logger    *services.ServiceLogger
	rpcClient *rpc.Client
	mints     *BoundedLRUCache[solana.PublicKey, mintInfo]
}

func (svc *MintResolverService) ID() string {
	return MINT_RESOLVER_SERVICE
}

func (svc *MintResolverService) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.logger = services.NewServiceLogger(svc)
	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	svc.mints = NewBoundedLRUCache[solana.PublicKey, mintInfo](mintCacheSize)
	return nil
}

// NewMintResolver builds a resolver against an existing client, for tests.
func NewMintResolver(client *rpc.Client) *MintResolverService {
	svc := &MintResolverService{
		rpcClient: client,
		mints:     NewBoundedLRUCache[solana.PublicKey, mintInfo](mintCacheSize),
	}
	svc.logger = services.NewServiceLogger(svc)
	return svc
}

func (svc *MintResolverService) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	info, err := svc.resolve(ctx, mint)
	if err != nil {
		return 0, err
	}
	return info.decimals, nil
}

func (svc *MintResolverService) MintTokenProgram(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	info, err := svc.resolve(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return info.tokenProgram, nil
}

// AccountExists reports whether the account is funded on-chain.
func (svc *MintResolverService) AccountExists(ctx context.Context, pk solana.PublicKey) (bool, error) {
	res, err := svc.rpcClient.GetAccountInfo(ctx, pk)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to fetch account %s: %w", pk, err)
	}
	return res != nil && res.Value != nil, nil
}

func (svc *MintResolverService) resolve(ctx context.Context, mint solana.PublicKey) (mintInfo, error) {
	if info, ok := svc.mints.Get(mint); ok {
		return info, nil
	}

	res, err := svc.rpcClient.GetAccountInfo(ctx, mint)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return mintInfo{}, fmt.Errorf("%w: mint %s", common.ErrNotFound, mint)
		}
		return mintInfo{}, fmt.Errorf("failed to fetch mint %s: %w", mint, err)
	}
	if res == nil || res.Value == nil {
		return mintInfo{}, fmt.Errorf("%w: mint %s", common.ErrNotFound, mint)
	}

	data := res.Value.Data.GetBinary()
	if len(data) < common.MintAccountSize {
		return mintInfo{}, fmt.Errorf("%w: mint %s account too small (%d bytes)", common.ErrMalformedInput, mint, len(data))
	}

	var parsed token.Mint
	if err := bin.NewBinDecoder(data).Decode(&parsed); err != nil {
		return mintInfo{}, fmt.Errorf("%w: mint %s: %v", common.ErrMalformedInput, mint, err)
	}

	info := mintInfo{
		decimals:     parsed.Decimals,
		tokenProgram: res.Value.Owner,
	}
	svc.mints.Set(mint, info)

	svc.logger.Debug().
		Str("mint", mint.String()).
		Uint8("decimals", info.decimals).
		Str("token_program", info.tokenProgram.String()).
		Msg("[MintResolver] resolved mint")

	return info, nil
}
