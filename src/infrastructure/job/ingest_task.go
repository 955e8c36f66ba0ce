package job

import (
	"context"
	"encoding/json"
	"fmt"

	"docqa/src/core/docqa"
	"docqa/src/core/session"
)

const TaskTypeIngest = "ingest"

// IngestDocument is one file of an async ingest payload, already uploaded
// to object storage by the HTTP handler.
type IngestDocument struct {
	Name     string `json:"name"`
	Format   string `json:"format"`
	MinioURL string `json:"minio_url"`
}

type IngestPayload struct {
	BatchID   int64            `json:"batch_id"`
	Documents []IngestDocument `json:"documents"`
}

// ObjectStore fetches uploaded files back out of object storage.
type ObjectStore interface {
	GetObject(ctx context.Context, bucketName, objectName string) ([]byte, error)
	GetBucketAndObjectFromURL(minioURL string) (string, string)
}

// BatchRecorder records the outcome of one ingest batch.
type BatchRecorder interface {
	MarkReady(ctx context.Context, batchID int64, chunkCount int) error
	MarkFailed(ctx context.Context, batchID int64, reason string) error
	MarkDocumentError(ctx context.Context, batchID int64, name, reason string) error
}

// IngestTask runs a document batch through the ingestion pipeline: it
// fetches the uploaded files from object storage, feeds them to the
// session, and records the outcome on the batch. It must run in the same
// process as the session that serves queries, since the index it installs
// lives in that session.
type IngestTask struct {
	session *session.Session
	objects ObjectStore
	batches BatchRecorder
}

func NewIngestTask(sess *session.Session, objects ObjectStore, batches BatchRecorder) *IngestTask {
	return &IngestTask{
		session: sess,
		objects: objects,
		batches: batches,
	}
}

func (task *IngestTask) HandleIngestTask(ctx context.Context, payload json.RawMessage) error {
	var ingestPayload IngestPayload
	if err := json.Unmarshal(payload, &ingestPayload); err != nil {
		return fmt.Errorf("failed to unmarshal ingest payload: %w", err)
	}

	files := make([]docqa.File, 0, len(ingestPayload.Documents))
	for _, doc := range ingestPayload.Documents {
		bucket, objectName := task.objects.GetBucketAndObjectFromURL(doc.MinioURL)
		data, err := task.objects.GetObject(ctx, bucket, objectName)
		if err != nil {
			return fmt.Errorf("failed to get document %s: %w", doc.Name, err)
		}

		// The format was validated at upload time; an unknown value here is
		// still handled per-file by the extractor.
		format, _ := docqa.ParseFormat(doc.Format)
		files = append(files, docqa.File{Name: doc.Name, Format: format, Data: data})
	}

	result, err := task.session.Ingest(ctx, files)
	if err != nil {
		if markErr := task.batches.MarkFailed(ctx, ingestPayload.BatchID, err.Error()); markErr != nil {
			return fmt.Errorf("failed to mark batch failed: %v (ingest error: %w)", markErr, err)
		}
		return fmt.Errorf("ingest failed: %w", err)
	}

	for _, fe := range result.FileErrors {
		if err := task.batches.MarkDocumentError(ctx, ingestPayload.BatchID, fe.Name, fe.Err); err != nil {
			return fmt.Errorf("failed to record document error: %w", err)
		}
	}

	if err := task.batches.MarkReady(ctx, ingestPayload.BatchID, result.ChunkCount); err != nil {
		return fmt.Errorf("failed to mark batch ready: %w", err)
	}

	return nil
}
