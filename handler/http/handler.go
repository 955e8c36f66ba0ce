package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/src/core/docqa"
	"docqa/src/core/doctools"
	"docqa/src/core/session"
	"docqa/src/infrastructure/job"
	"docqa/src/storage/minioctrl"
	"docqa/src/storage/postgres/batchctrl"
)

// Handler serves the document question-answering API. The object storage,
// batch record, and job services are optional; without them uploads are
// processed synchronously and nothing is persisted across restarts.
type Handler struct {
	session      *session.Session
	tools        *doctools.Tools
	minioService *minioctrl.MinioService
	batchService *batchctrl.BatchService
	jobService   *job.JobService
	bucketName   string
}

func NewHandler(
	sess *session.Session,
	tools *doctools.Tools,
	minioService *minioctrl.MinioService,
	batchService *batchctrl.BatchService,
	jobService *job.JobService,
	bucketName string,
) *Handler {
	if bucketName == "" {
		bucketName = minioctrl.DocumentsBucket
	}
	return &Handler{
		session:      sess,
		tools:        tools,
		minioService: minioService,
		batchService: batchService,
		jobService:   jobService,
		bucketName:   bucketName,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	// Document routes
	v1.POST("/documents", h.IngestDocuments)
	v1.GET("/documents", h.ListDocuments)
	v1.DELETE("/documents", h.ResetSession)

	// Batch routes (async ingestion)
	if h.jobService != nil {
		v1.POST("/batches", h.EnqueueBatch)
		v1.GET("/batches/:id", h.GetBatch)
	}

	// Chat routes
	v1.POST("/chat/completions", h.GenerateCompletion)
	v1.GET("/chat/history", h.GetChatHistory)

	// Document utility routes
	v1.POST("/documents/:name/summary", h.SummarizeDocument)
	v1.POST("/documents/:name/key-points", h.ExtractKeyPoints)
	v1.POST("/documents/:name/keywords", h.FindKeywords)
	v1.POST("/documents/:name/explain", h.ExplainConcept)
	v1.POST("/documents/:name/meeting-minutes", h.GenerateMeetingMinutes)

	// System routes
	v1.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	switch {
	case errors.Is(err, docqa.ErrUnsupportedFormat):
		code = "UNSUPPORTED_FORMAT"
		status = http.StatusBadRequest
	case errors.Is(err, docqa.ErrMissingCredentials):
		code = "MISSING_CREDENTIALS"
		status = http.StatusInternalServerError
	case errors.Is(err, docqa.ErrEmbeddingModelMismatch):
		code = "EMBEDDING_MODEL_MISMATCH"
		status = http.StatusConflict
	case errors.Is(err, docqa.ErrIndexBuild), errors.Is(err, docqa.ErrRerank):
		code = "UPSTREAM_FAILURE"
		status = http.StatusBadGateway
	case status == http.StatusBadRequest:
		code = "BAD_REQUEST"
	case status == http.StatusNotFound:
		code = "NOT_FOUND"
	default:
		code = "INTERNAL_ERROR"
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
