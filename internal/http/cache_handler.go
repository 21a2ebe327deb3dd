package http

import (
	"github.com/gin-gonic/gin"

	"github.com/happy2099/zap-mono/internal/http/httputil"
	"github.com/happy2099/zap-mono/internal/services/artifact"
)

type CacheHandler struct {
	artifactSvc *artifact.Service
}

func NewCacheHandler(artifactSvc *artifact.Service) *CacheHandler {
	return &CacheHandler{artifactSvc: artifactSvc}
}

func (h *CacheHandler) Root() string {
	return "/cache"
}

func (h *CacheHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/keys", h.listKeys)
	pub.GET("/entry/:key", h.getEntry)
	admin.DELETE("/entry/:key", h.invalidate)
}

type CacheKeysResponse struct {
	Keys []string `json:"keys"`
	Size int      `json:"size"`
}

// @Summary List live artifact cache keys
// @Tags cache
// @Produce json
// @Success 200 {object} httputil.Response{data=CacheKeysResponse}
// @Router /api/v1/cache/keys [get]
func (h *CacheHandler) listKeys(c *gin.Context) {
	keys := h.artifactSvc.ListKeys()
	httputil.Success(c, CacheKeysResponse{Keys: keys, Size: len(keys)})
}

// @Summary Get one artifact cache entry
// @Tags cache
// @Produce json
// @Param key path string true "Cache key (mint:platform)"
// @Success 200 {object} httputil.Response{data=domain.TradeReadyEntry}
// @Failure 404 {object} httputil.Response "No live entry"
// @Router /api/v1/cache/entry/{key} [get]
func (h *CacheHandler) getEntry(c *gin.Context) {
	key := c.Param("key")
	entry, ok := h.artifactSvc.Get(key)
	if !ok {
		httputil.NotFound(c, "no live entry for key")
		return
	}
	httputil.Success(c, entry)
}

// @Summary Invalidate an artifact cache entry
// @Tags cache
// @Produce json
// @Param key path string true "Cache key (mint:platform)"
// @Success 200 {object} httputil.Response
// @Failure 404 {object} httputil.Response "Nothing to invalidate"
// @Router /api/v1/admin/cache/entry/{key} [delete]
func (h *CacheHandler) invalidate(c *gin.Context) {
	key := c.Param("key")
	if !h.artifactSvc.Invalidate(key) {
		httputil.NotFound(c, "nothing to invalidate")
		return
	}
	httputil.Success(c, gin.H{"invalidated": key})
}
