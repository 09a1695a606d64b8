package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuseek/docqa/internal/metrics"
)

type RouterDeps struct {
	Documents *DocumentHandler
	QA        *QAHandler
	// RateLimit guards the expensive endpoints (upload, ask). Nil means
	// no limiting.
	RateLimit gin.HandlerFunc
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	rate := deps.RateLimit
	if rate == nil {
		rate = func(c *gin.Context) { c.Next() }
	}

	api.POST("/upload", rate, deps.Documents.Upload)
	api.GET("/documents", deps.Documents.List)
	api.GET("/documents/:id", deps.Documents.Get)
	api.GET("/documents/:id/status", deps.Documents.Status)
	api.DELETE("/documents/:id", deps.Documents.Delete)

	api.POST("/indexer/trigger", deps.Documents.TriggerIndexer)
	api.GET("/indexer/status", deps.Documents.IndexerStatus)

	api.POST("/ask", rate, deps.QA.Ask)
	api.GET("/ask", rate, deps.QA.AskGet)

	api.GET("/files/*key", deps.Documents.File)

	api.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.GET("/metrics", gin.WrapH(metrics.Handler()))
}
