package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListDocuments godoc
// @Summary List the documents of the active batch
// @Tags documents
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /documents [get]
func (h *Handler) ListDocuments(c *gin.Context) {
	sendJSON(c, http.StatusOK, gin.H{
		"documents":   h.session.Documents(),
		"chunk_count": h.session.ChunkCount(),
	})
}

// documentTool runs one full-text utility against a named document of the
// active batch.
func (h *Handler) documentTool(c *gin.Context, run func(ctx context.Context, text string) (string, error)) {
	name := c.Param("name")
	text, ok := h.session.DocumentText(name)
	if !ok {
		sendError(c, http.StatusNotFound, fmt.Errorf("document not found: %s", name))
		return
	}

	result, err := run(c.Request.Context(), text)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, gin.H{"document": name, "result": result})
}

// SummarizeDocument godoc
// @Summary Summarize one document of the active batch
// @Tags documents
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /documents/{name}/summary [post]
func (h *Handler) SummarizeDocument(c *gin.Context) {
	h.documentTool(c, h.tools.Summarize)
}

// ExtractKeyPoints godoc
// @Summary Extract the key points of one document
// @Tags documents
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /documents/{name}/key-points [post]
func (h *Handler) ExtractKeyPoints(c *gin.Context) {
	h.documentTool(c, h.tools.KeyPoints)
}

// FindKeywords godoc
// @Summary List the most important terms of one document
// @Tags documents
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /documents/{name}/keywords [post]
func (h *Handler) FindKeywords(c *gin.Context) {
	h.documentTool(c, h.tools.Keywords)
}

type explainConceptRequest struct {
	Concept string `json:"concept" binding:"required"`
}

// ExplainConcept godoc
// @Summary Explain a concept using one document as context
// @Tags documents
// @Accept json
// @Produce json
// @Param body body explainConceptRequest true "Concept to explain"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /documents/{name}/explain [post]
func (h *Handler) ExplainConcept(c *gin.Context) {
	var req explainConceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	h.documentTool(c, func(ctx context.Context, text string) (string, error) {
		return h.tools.ExplainConcept(ctx, text, req.Concept)
	})
}

// GenerateMeetingMinutes godoc
// @Summary Render one document as structured meeting minutes
// @Tags documents
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /documents/{name}/meeting-minutes [post]
func (h *Handler) GenerateMeetingMinutes(c *gin.Context) {
	h.documentTool(c, h.tools.MeetingMinutes)
}
