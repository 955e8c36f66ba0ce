package batchctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Batch statuses.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

type Batch struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	Status     string    `gorm:"not null" json:"status"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Document struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	BatchID  int64  `gorm:"not null;index" json:"batch_id"`
	Name     string `gorm:"not null" json:"name"`
	Format   string `gorm:"not null" json:"format"`
	MinioURL string `gorm:"not null;column:minio_url" json:"minio_url"` // bucket name + object name
	// Error is set when the file was skipped during extraction.
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BatchService records ingested document batches and their files.
type BatchService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewBatchService(db *gorm.DB) (*BatchService, error) {
	node, err := snowflake.NewNode(3) // Node number 3 for batches
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &BatchService{
		db:        db,
		snowflake: node,
	}, nil
}

func (s *BatchService) CreateBatch(ctx context.Context) (*Batch, error) {
	batch := &Batch{
		ID:     s.snowflake.Generate().Int64(),
		Status: StatusProcessing,
	}

	result := s.db.WithContext(ctx).Create(batch)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create batch: %v", result.Error)
	}

	return batch, nil
}

func (s *BatchService) AddDocument(ctx context.Context, batchID int64, name, format, minioURL string) (*Document, error) {
	doc := &Document{
		ID:       s.snowflake.Generate().Int64(),
		BatchID:  batchID,
		Name:     name,
		Format:   format,
		MinioURL: minioURL,
	}

	result := s.db.WithContext(ctx).Create(doc)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create document: %v", result.Error)
	}

	return doc, nil
}

// MarkReady records a successful build and the resulting chunk count.
func (s *BatchService) MarkReady(ctx context.Context, batchID int64, chunkCount int) error {
	result := s.db.WithContext(ctx).Model(&Batch{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{"status": StatusReady, "chunk_count": chunkCount})
	if result.Error != nil {
		return fmt.Errorf("failed to update batch: %v", result.Error)
	}
	return nil
}

func (s *BatchService) MarkFailed(ctx context.Context, batchID int64, reason string) error {
	result := s.db.WithContext(ctx).Model(&Batch{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{"status": StatusFailed, "error": reason})
	if result.Error != nil {
		return fmt.Errorf("failed to update batch: %v", result.Error)
	}
	return nil
}

// MarkDocumentError records a per-file extraction failure without failing
// the batch.
func (s *BatchService) MarkDocumentError(ctx context.Context, batchID int64, name, reason string) error {
	result := s.db.WithContext(ctx).Model(&Document{}).
		Where("batch_id = ? AND name = ?", batchID, name).
		Update("error", reason)
	if result.Error != nil {
		return fmt.Errorf("failed to update document: %v", result.Error)
	}
	return nil
}

func (s *BatchService) GetBatch(ctx context.Context, id int64) (*Batch, error) {
	var batch Batch
	result := s.db.WithContext(ctx).First(&batch, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch: %v", result.Error)
	}
	return &batch, nil
}

func (s *BatchService) GetDocuments(ctx context.Context, batchID int64) ([]Document, error) {
	var docs []Document
	result := s.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("name").Find(&docs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get documents: %v", result.Error)
	}
	return docs, nil
}

func (s *BatchService) GetDocumentByName(ctx context.Context, batchID int64, name string) (*Document, error) {
	var doc Document
	result := s.db.WithContext(ctx).Where("batch_id = ? AND name = ?", batchID, name).First(&doc)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %v", result.Error)
	}
	return &doc, nil
}
