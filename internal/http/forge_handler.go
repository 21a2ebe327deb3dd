package http

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/happy2099/zap-mono/internal/adapters/blockchain"
	"github.com/happy2099/zap-mono/internal/common"
	"github.com/happy2099/zap-mono/internal/config"
	"github.com/happy2099/zap-mono/internal/domain"
	"github.com/happy2099/zap-mono/internal/http/httputil"
	"github.com/happy2099/zap-mono/internal/services/artifact"
	"github.com/happy2099/zap-mono/internal/services/executor"
	"github.com/happy2099/zap-mono/internal/services/forge"
)

type ForgeHandler struct {
	forgeSvc    *forge.Service
	executorSvc *executor.Service
	artifactSvc *artifact.Service
	nonceSvc    *blockchain.NonceSourceService
	engineConf  *config.EngineConfig
}

func NewForgeHandler(
	forgeSvc *forge.Service,
	executorSvc *executor.Service,
	artifactSvc *artifact.Service,
	nonceSvc *blockchain.NonceSourceService,
	engineConf *config.EngineConfig,
) *ForgeHandler {
	return &ForgeHandler{
		forgeSvc:    forgeSvc,
		executorSvc: executorSvc,
		artifactSvc: artifactSvc,
		nonceSvc:    nonceSvc,
		engineConf:  engineConf,
	}
}

func (h *ForgeHandler) Root() string {
	return "/forge"
}

func (h *ForgeHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.forgeClone)
}

// ForgeRequest asks for a detected swap to be re-synthesized for a new payer.
// The template comes either from the artifact cache (CacheKey) or inline
// (Target, base64 as produced by analysis).
type ForgeRequest struct {
	// Artifact cache key of a stored template
	CacheKey string `json:"cacheKey"`

	// Inline base64 cloning target, alternative to CacheKey
	Target string `json:"target"`

	// Wallet of the trader observed in the template (base58)
	TraderWallet string `json:"traderWallet" binding:"required"`

	// Wallet the clone should trade for (base58)
	NewPayer string `json:"newPayer" binding:"required"`

	// Input token mint of the swap (base58)
	InputMint string `json:"inputMint" binding:"required"`

	// Output token mint of the swap (base58)
	OutputMint string `json:"outputMint" binding:"required"`

	// UI amount, scaled to base units by the relevant mint's decimals
	Amount float64 `json:"amount" binding:"required"`

	// Slippage tolerance in basis points, default 50
	SlippageBps uint16 `json:"slippageBps"`

	// Durable nonce account to build against instead of a recent blockhash
	NonceAccount string `json:"nonceAccount"`

	// Hand the forged instructions straight to the execution queue
	Enqueue bool `json:"enqueue"`

	// Execution priority, higher runs first
	Priority int `json:"priority"`
}

// ForgedInstruction is the wire form of one output instruction.
type ForgedInstruction struct {
	ProgramID string   `json:"programId"`
	Accounts  []string `json:"accounts"`
	Data      string   `json:"data"` // base64
}

type ForgeResponse struct {
	Instructions        []ForgedInstruction `json:"instructions"`
	AtaInstructionCount int                 `json:"ataInstructionCount"`
	UsedNonce           bool                `json:"usedNonce"`

	// Set when Enqueue was requested
	TradeID string `json:"tradeId,omitempty"`
}

// @Summary Forge a cloned swap for a new payer
// @Description Rebuild a detected swap instruction with the caller's wallet substituted for the trader's, missing
// @Description associated token accounts created idempotently, and amount/threshold fields rewritten for the
// @Description requested size. Optionally enqueues the result for execution.
// @Tags forge
// @Accept json
// @Produce json
// @Param request body ForgeRequest true "Forge request"
// @Success 200 {object} httputil.Response{data=ForgeResponse}
// @Failure 400 {object} httputil.Response "Malformed keys or missing template"
// @Failure 404 {object} httputil.Response "Cache key not found or expired"
// @Router /api/v1/forge [post]
func (h *ForgeHandler) forgeClone(c *gin.Context) {
	var req ForgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	target, err := h.resolveTarget(&req)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			httputil.NotFound(c, err.Error())
		} else {
			httputil.BadRequest(c, err.Error())
		}
		return
	}

	trader, err := solana.PublicKeyFromBase58(req.TraderWallet)
	if err != nil {
		httputil.BadRequest(c, "invalid trader wallet: "+err.Error())
		return
	}
	newPayer, err := solana.PublicKeyFromBase58(req.NewPayer)
	if err != nil {
		httputil.BadRequest(c, "invalid new payer: "+err.Error())
		return
	}
	inputMint, err := solana.PublicKeyFromBase58(req.InputMint)
	if err != nil {
		httputil.BadRequest(c, "invalid input mint: "+err.Error())
		return
	}
	outputMint, err := solana.PublicKeyFromBase58(req.OutputMint)
	if err != nil {
		httputil.BadRequest(c, "invalid output mint: "+err.Error())
		return
	}

	slippage := req.SlippageBps
	if slippage == 0 {
		slippage = 50
	}

	var nonce *domain.NonceDescriptor
	if req.NonceAccount != "" {
		noncePubkey, err := solana.PublicKeyFromBase58(req.NonceAccount)
		if err != nil {
			httputil.BadRequest(c, "invalid nonce account: "+err.Error())
			return
		}
		nonce, err = h.nonceSvc.FetchNonce(c.Request.Context(), noncePubkey)
		if err != nil {
			httputil.BadRequest(c, "failed to read nonce account: "+err.Error())
			return
		}
	}

	result, err := h.forgeSvc.BuildClonedInstruction(c.Request.Context(), forge.BuilderOptions{
		Target:       target,
		TraderWallet: trader,
		NewPayer:     newPayer,
		InputMint:    inputMint,
		OutputMint:   outputMint,
		Amount:       req.Amount,
		SlippageBps:  slippage,
		Nonce:        nonce,
	})
	if err != nil {
		if errors.Is(err, forge.ErrMissingTarget) ||
			errors.Is(err, forge.ErrInvalidPayer) ||
			errors.Is(err, forge.ErrUnknownProgram) {
			httputil.BadRequest(c, err.Error())
		} else {
			httputil.ServiceError(c, err)
		}
		return
	}

	resp := ForgeResponse{
		Instructions:        renderInstructions(result.Instructions),
		AtaInstructionCount: result.AtaInstructionCount,
		UsedNonce:           result.UsedNonce,
	}

	if req.Enqueue {
		trade := &domain.QueuedTrade{
			Payload: domain.ExecutionPayload{
				Instructions:     result.Instructions,
				Nonce:            nonce,
				ComputeUnitLimit: h.engineConf.ComputeUnitLimit,
				PriorityFee:      h.engineConf.PriorityFee,
			},
			Priority:   req.Priority,
			EnqueuedAt: time.Now(),
		}
		if err := h.executorSvc.Enqueue(trade); err != nil {
			httputil.InternalError(c, "forged but failed to enqueue: "+err.Error())
			return
		}
		resp.TradeID = trade.ID
	}

	httputil.Success(c, resp)
}

func (h *ForgeHandler) resolveTarget(req *ForgeRequest) (*domain.CloningTarget, error) {
	switch {
	case req.CacheKey != "":
		entry, ok := h.artifactSvc.Get(req.CacheKey)
		if !ok || entry.Target == nil {
			return nil, common.ErrNotFound
		}
		return entry.Target, nil
	case req.Target != "":
		return domain.DecodeCloningTarget(req.Target)
	default:
		return nil, errors.New("either cacheKey or target is required")
	}
}

func renderInstructions(ixs []solana.Instruction) []ForgedInstruction {
	out := make([]ForgedInstruction, 0, len(ixs))
	for _, ix := range ixs {
		accounts := ix.Accounts()
		rendered := ForgedInstruction{
			ProgramID: ix.ProgramID().String(),
			Accounts:  make([]string, 0, len(accounts)),
		}
		for _, acc := range accounts {
			rendered.Accounts = append(rendered.Accounts, acc.PublicKey.String())
		}
		if data, err := ix.Data(); err == nil {
			rendered.Data = base64.StdEncoding.EncodeToString(data)
		}
		out = append(out, rendered)
	}
	return out
}
