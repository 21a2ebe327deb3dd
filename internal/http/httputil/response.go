// Package httputil is the shared JSON envelope and error mapping of the API
// surface.
package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/happy2099/zap-mono/internal/common"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, err string) {
	c.JSON(status, Response{
		Success: false,
		Error:   err,
	})
}

func BadRequest(c *gin.Context, err string) {
	Error(c, http.StatusBadRequest, err)
}

func InternalError(c *gin.Context, err string) {
	Error(c, http.StatusInternalServerError, err)
}

func NotFound(c *gin.Context, err string) {
	Error(c, http.StatusNotFound, err)
}

// ServiceError maps a pipeline error to its HTTP status: absent things are
// 404, expected domain failures are the caller's fault, everything else is
// ours.
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		NotFound(c, err.Error())
	case common.IsExpected(err),
		errors.Is(err, common.ErrMalformedInput),
		errors.Is(err, common.ErrDecimalsUnavailable):
		BadRequest(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}
