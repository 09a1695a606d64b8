package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/docuseek/docqa/internal/pkg/errors"
	"github.com/docuseek/docqa/internal/pkg/response"
)

// sessionID identifies the caller without authentication. Header first,
// query parameter as a fallback for plain links.
func sessionID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader("X-Session-Id")); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("session_id"))
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, appErr.ErrNotConfigured):
		response.Error(c, http.StatusServiceUnavailable, "backend not configured")
	default:
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}
