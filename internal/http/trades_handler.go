package http

import (
	"github.com/gin-gonic/gin"

	"github.com/happy2099/zap-mono/internal/http/httputil"
	"github.com/happy2099/zap-mono/internal/services/executor"
)

type TradesHandler struct {
	executorSvc *executor.Service
}

func NewTradesHandler(executorSvc *executor.Service) *TradesHandler {
	return &TradesHandler{executorSvc: executorSvc}
}

func (h *TradesHandler) Root() string {
	return "/trades"
}

func (h *TradesHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/queue", h.queueStats)
	pub.GET("/:id", h.tradeStatus)
	admin.POST("/drain", h.drain)
}

type QueueStatsResponse struct {
	Depth int `json:"depth"`
}

type TradeStatusResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	TxSignature string `json:"txSignature,omitempty"`
	Error       string `json:"error,omitempty"`
}

// @Summary Execution queue depth
// @Tags trades
// @Produce json
// @Success 200 {object} httputil.Response{data=QueueStatsResponse}
// @Router /api/v1/trades/queue [get]
func (h *TradesHandler) queueStats(c *gin.Context) {
	httputil.Success(c, QueueStatsResponse{Depth: h.executorSvc.Size()})
}

// @Summary Terminal status of a trade
// @Tags trades
// @Produce json
// @Param id path string true "Trade ID"
// @Success 200 {object} httputil.Response{data=TradeStatusResponse}
// @Failure 404 {object} httputil.Response "Unknown or still running"
// @Router /api/v1/trades/{id} [get]
func (h *TradesHandler) tradeStatus(c *gin.Context) {
	id := c.Param("id")
	result, ok := h.executorSvc.Status(id)
	if !ok {
		httputil.NotFound(c, "no terminal result for trade")
		return
	}

	resp := TradeStatusResponse{
		ID:     id,
		Status: result.Status.String(),
	}
	if !result.TxSignature.IsZero() {
		resp.TxSignature = result.TxSignature.String()
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	httputil.Success(c, resp)
}

// @Summary Drain the execution queue
// @Description Remove every waiting trade without executing it. In-flight executions finish normally.
// @Tags trades
// @Produce json
// @Success 200 {object} httputil.Response
// @Router /api/v1/admin/trades/drain [post]
func (h *TradesHandler) drain(c *gin.Context) {
	drained := h.executorSvc.Drain()
	httputil.Success(c, gin.H{"drained": drained})
}
