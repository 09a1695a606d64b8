package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErr "github.com/docuseek/docqa/internal/pkg/errors"
	"github.com/docuseek/docqa/internal/service"
)

type QAHandler struct {
	qa *service.QAService
}

type askRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id"`
	SessionID  string `json:"session_id"`
}

func NewQAHandler(qa *service.QAService) *QAHandler {
	return &QAHandler{qa: qa}
}

// Ask answers a question posted as JSON. The result envelope is returned
// as-is: soft failures ride inside it with HTTP 200.
func (h *QAHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, fmt.Errorf("%w: invalid request body", appErr.ErrInvalid))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		handleError(c, fmt.Errorf("%w: question is required", appErr.ErrInvalid))
		return
	}
	if req.SessionID == "" {
		req.SessionID = sessionID(c)
	}
	result := h.qa.Ask(c.Request.Context(), req.Question, req.DocumentID, req.SessionID)
	c.JSON(http.StatusOK, result)
}

// AskGet answers a question passed as query parameters, for quick manual
// checks without a JSON body.
func (h *QAHandler) AskGet(c *gin.Context) {
	question := strings.TrimSpace(c.Query("question"))
	if question == "" {
		question = strings.TrimSpace(c.Query("q"))
	}
	if question == "" {
		handleError(c, fmt.Errorf("%w: question is required", appErr.ErrInvalid))
		return
	}
	result := h.qa.Ask(c.Request.Context(), question, strings.TrimSpace(c.Query("document_id")), sessionID(c))
	c.JSON(http.StatusOK, result)
}
