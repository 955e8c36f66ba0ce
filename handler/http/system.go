package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CheckHealth godoc
// @Summary Check system health status
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	sendJSON(c, http.StatusOK, gin.H{
		"status":      "ok",
		"chunk_count": h.session.ChunkCount(),
	})
}
