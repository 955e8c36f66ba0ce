package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/src/core/answer"
)

type generateCompletionRequest struct {
	Question string `json:"question" binding:"required"`
	Mode     string `json:"mode"`
}

// GenerateCompletion godoc
// @Summary Answer a question against the ingested documents
// @Tags chat
// @Accept json
// @Produce json
// @Param body body generateCompletionRequest true "Question and answer mode"
// @Success 200 {object} answer.Result
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /chat/completions [post]
func (h *Handler) GenerateCompletion(c *gin.Context) {
	var req generateCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	mode := answer.ModeHybrid
	if req.Mode != "" {
		var ok bool
		mode, ok = answer.ParseMode(req.Mode)
		if !ok {
			sendError(c, http.StatusBadRequest, fmt.Errorf("unknown mode %q", req.Mode))
			return
		}
	}

	result, err := h.session.Ask(c.Request.Context(), req.Question, mode)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, result)
}

// GetChatHistory godoc
// @Summary Get the session's chat history
// @Tags chat
// @Produce json
// @Success 200 {array} session.ChatMessage
// @Router /chat/history [get]
func (h *Handler) GetChatHistory(c *gin.Context) {
	sendJSON(c, http.StatusOK, h.session.History())
}

// ResetSession godoc
// @Summary Drop the active index, documents, and chat history
// @Tags documents
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /documents [delete]
func (h *Handler) ResetSession(c *gin.Context) {
	h.session.Reset()
	sendJSON(c, http.StatusOK, gin.H{"status": "reset"})
}
