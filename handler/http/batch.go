package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docqa/src/core/docqa"
	"docqa/src/infrastructure/job"
)

// readUpload pulls one multipart file into memory and resolves its format
// from the extension.
func readUpload(c *gin.Context, fieldName string) ([]docqa.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	uploads := form.File[fieldName]
	if len(uploads) == 0 {
		return nil, fmt.Errorf("no files uploaded")
	}

	files := make([]docqa.File, 0, len(uploads))
	for _, header := range uploads {
		ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
		format, ok := docqa.ParseFormat(strings.ToLower(ext))
		if !ok {
			return nil, fmt.Errorf("%w: %s", docqa.ErrUnsupportedFormat, header.Filename)
		}

		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", header.Filename, err)
		}

		files = append(files, docqa.File{Name: header.Filename, Format: format, Data: data})
	}
	return files, nil
}

// IngestDocuments godoc
// @Summary Ingest a document batch synchronously
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} docqa.BatchResult
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /documents [post]
func (h *Handler) IngestDocuments(c *gin.Context) {
	files, err := readUpload(c, "files")
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	result, err := h.session.Ingest(c.Request.Context(), files)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, result)
}

// EnqueueBatch godoc
// @Summary Upload a document batch and ingest it asynchronously
// @Tags batches
// @Accept multipart/form-data
// @Produce json
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /batches [post]
func (h *Handler) EnqueueBatch(c *gin.Context) {
	files, err := readUpload(c, "files")
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()

	batch, err := h.batchService.CreateBatch(ctx)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	if err := h.minioService.EnsureBucketExists(ctx, h.bucketName); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	documents := make([]job.IngestDocument, 0, len(files))
	for _, f := range files {
		objectName := fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(f.Name))
		if err := h.minioService.PutObject(ctx, h.bucketName, objectName, f.Data); err != nil {
			sendError(c, http.StatusInternalServerError, err)
			return
		}

		minioURL := fmt.Sprintf("%s/%s", h.bucketName, objectName)
		if _, err := h.batchService.AddDocument(ctx, batch.ID, f.Name, string(f.Format), minioURL); err != nil {
			sendError(c, http.StatusInternalServerError, err)
			return
		}

		documents = append(documents, job.IngestDocument{
			Name:     f.Name,
			Format:   string(f.Format),
			MinioURL: minioURL,
		})
	}

	payload, err := json.Marshal(job.IngestPayload{BatchID: batch.ID, Documents: documents})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	if _, err := h.jobService.EnqueueJob(ctx, job.TaskTypeIngest, payload); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusAccepted, gin.H{
		"batch_id": strconv.FormatInt(batch.ID, 10),
		"status":   batch.Status,
	})
}

// GetBatch godoc
// @Summary Get the status of an asynchronously ingested batch
// @Tags batches
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /batches/{id} [get]
func (h *Handler) GetBatch(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid batch id"))
		return
	}

	batch, err := h.batchService.GetBatch(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if batch == nil {
		sendError(c, http.StatusNotFound, fmt.Errorf("batch not found"))
		return
	}

	documents, err := h.batchService.GetDocuments(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, gin.H{
		"batch":     batch,
		"documents": documents,
	})
}
