package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docuseek/docqa/internal/filestore"
	appErr "github.com/docuseek/docqa/internal/pkg/errors"
	"github.com/docuseek/docqa/internal/pkg/response"
	"github.com/docuseek/docqa/internal/service"
)

type DocumentHandler struct {
	docs  *service.DocumentService
	files filestore.Store
}

func NewDocumentHandler(docs *service.DocumentService, files filestore.Store) *DocumentHandler {
	return &DocumentHandler{docs: docs, files: files}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		handleError(c, fmt.Errorf("%w: file is required", appErr.ErrInvalid))
		return
	}
	opened, err := file.Open()
	if err != nil {
		handleError(c, fmt.Errorf("%w: failed to open file", appErr.ErrInvalid))
		return
	}
	defer opened.Close()

	result, err := h.docs.Upload(c.Request.Context(), sessionID(c), file.Filename, file.Size, opened)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.List(c.Request.Context(), sessionID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.docs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Status(c *gin.Context) {
	status, err := h.docs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.docs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *DocumentHandler) TriggerIndexer(c *gin.Context) {
	if err := h.docs.TriggerIndexer(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"triggered": true})
}

func (h *DocumentHandler) IndexerStatus(c *gin.Context) {
	status, err := h.docs.IndexerStatus(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}

// File streams a locally stored document back to the caller. Remote
// stores publish their own URLs, so this only serves the local type.
func (h *DocumentHandler) File(c *gin.Context) {
	if h.files.Type() != "local" {
		c.Status(http.StatusNotFound)
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	file, err := h.files.Open(c.Request.Context(), key)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	_, _ = io.Copy(c.Writer, file)
}
