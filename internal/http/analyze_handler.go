package http

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/happy2099/zap-mono/internal/domain"
	"github.com/happy2099/zap-mono/internal/http/httputil"
	"github.com/happy2099/zap-mono/internal/services/artifact"
	"github.com/happy2099/zap-mono/internal/services/detective"
)

type AnalyzeHandler struct {
	detectiveSvc *detective.Service
	artifactSvc  *artifact.Service
}

func NewAnalyzeHandler(detectiveSvc *detective.Service, artifactSvc *artifact.Service) *AnalyzeHandler {
	return &AnalyzeHandler{detectiveSvc: detectiveSvc, artifactSvc: artifactSvc}
}

func (h *AnalyzeHandler) Root() string {
	return "/analyze"
}

func (h *AnalyzeHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.analyze)
}

// AnalyzeRequest identifies a confirmed transaction and the tracked trader
// whose swap should be extracted from it.
type AnalyzeRequest struct {
	// Confirmed transaction signature (base58)
	Signature string `json:"signature" binding:"required" example:"5UfDuX94A1QfqkQvg5WBvM7V3AEX6DSLhXLRY8NrCFUJMVsZTcVLqnLM1Lho8LjM5zVSCcVzAGtHZZ8SY7Yg4HF8"`

	// Tracked trader wallet (base58 public key)
	TraderWallet string `json:"traderWallet" binding:"required" example:"7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"`

	// Store a trade-ready template in the artifact cache when copyable
	Store bool `json:"store"`
}

// AnalyzeResponse wraps the analysis result plus cache bookkeeping.
type AnalyzeResponse struct {
	Analysis *domain.CopyAnalysis `json:"analysis"`

	// Cache key the template was stored under, when Store was requested
	CacheKey string `json:"cacheKey,omitempty"`

	// Whether this request actually stored the template (false when another
	// detection of the same opportunity got there first)
	Stored bool `json:"stored,omitempty"`
}

// @Summary Analyze a transaction for copyability
// @Description Fetch a confirmed transaction and decide whether it contains a swap by the tracked trader that can be cloned.
// @Description A non-copyable transaction is a normal result, not an error; the reason field says why.
// @Tags analyze
// @Accept json
// @Produce json
// @Param request body AnalyzeRequest true "Analysis request"
// @Success 200 {object} httputil.Response{data=AnalyzeResponse}
// @Failure 400 {object} httputil.Response "Malformed signature or wallet"
// @Router /api/v1/analyze [post]
func (h *AnalyzeHandler) analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	sig, err := solana.SignatureFromBase58(req.Signature)
	if err != nil {
		httputil.BadRequest(c, "invalid signature: "+err.Error())
		return
	}
	trader, err := solana.PublicKeyFromBase58(req.TraderWallet)
	if err != nil {
		httputil.BadRequest(c, "invalid trader wallet: "+err.Error())
		return
	}

	analysis, err := h.detectiveSvc.AnalyzeForCopy(c.Request.Context(), sig, trader)
	if err != nil {
		httputil.InternalError(c, err.Error())
		return
	}

	resp := AnalyzeResponse{Analysis: analysis}
	if req.Store && analysis.IsCopyable && !analysis.Details.TokenMint.IsZero() {
		key := artifact.CacheKey(analysis.Details.TokenMint, analysis.Details.DexPlatform)
		resp.CacheKey = key
		resp.Stored = h.artifactSvc.PutIfAbsent(key, &domain.TradeReadyEntry{
			TokenMint:   analysis.Details.TokenMint,
			DexPlatform: analysis.Details.DexPlatform,
			Target:      analysis.Details.CloningTarget,
			CreatedAt:   time.Now(),
		})
	}

	httputil.Success(c, resp)
}
