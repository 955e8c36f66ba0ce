package weaviate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate/entities/models"

	"docqa/src/core/docqa"
)

const DefaultClassName = "DocumentChunk"

var chunkProperties = []*models.Property{
	{Name: "content", DataType: []string{"text"}},
	{Name: "overlap", DataType: []string{"text"}},
	{Name: "source", DataType: []string{"text"}},
	{Name: "positionKind", DataType: []string{"text"}},
	{Name: "position", DataType: []string{"int"}},
}

// Store is the persistent vector store backed by one Weaviate class. The
// class description records the embedding model the vectors were built
// with; opening a class built with a different model is rejected.
type Store struct {
	sdk        *SDK
	className  string
	embedModel string
}

func NewStore(sdk *SDK, className, embedModel string) *Store {
	if className == "" {
		className = DefaultClassName
	}
	return &Store{
		sdk:        sdk,
		className:  className,
		embedModel: embedModel,
	}
}

// NewBatchStore returns a Store over a fresh, uniquely named class. Each
// ingested batch gets its own class so loading it never disturbs the class
// a live retriever is still querying; the caller drops the store once a
// newer batch has replaced it.
func NewBatchStore(sdk *SDK, classPrefix, embedModel string) *Store {
	if classPrefix == "" {
		classPrefix = DefaultClassName
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return NewStore(sdk, fmt.Sprintf("%s_%s", classPrefix, suffix), embedModel)
}

// ClassName reports the Weaviate class this store reads and writes.
func (s *Store) ClassName() string {
	return s.className
}

// Ensure creates the class when missing and verifies the embedding model
// when present.
func (s *Store) Ensure(ctx context.Context) error {
	class, err := s.sdk.GetClass(ctx, s.className)
	if err != nil {
		return err
	}
	if class == nil {
		return s.sdk.CreateSchema(ctx, s.className, s.embedModel, chunkProperties)
	}
	if class.Description != s.embedModel {
		return fmt.Errorf("%w: class %s was built with %q, configured model is %q",
			docqa.ErrEmbeddingModelMismatch, s.className, class.Description, s.embedModel)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, chunks []docqa.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}
	if err := s.Ensure(ctx); err != nil {
		return err
	}

	objects := make([]VectorObject, len(chunks))
	for i, c := range chunks {
		objects[i] = VectorObject{
			Vector: vectors[i],
			Properties: map[string]interface{}{
				"content":      c.Content,
				"overlap":      c.Overlap,
				"source":       c.Meta.Source,
				"positionKind": string(c.Meta.Kind),
				"position":     c.Meta.Position,
			},
		}
	}
	return s.sdk.BatchAddVectors(ctx, s.className, objects)
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]docqa.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	fields := []string{"content", "overlap", "source", "positionKind", "position"}
	results, err := s.sdk.QueryVectors(ctx, s.className, vector, fields, k)
	if err != nil {
		return nil, err
	}

	scored := make([]docqa.ScoredChunk, 0, len(results))
	for _, r := range results {
		scored = append(scored, docqa.ScoredChunk{
			Chunk: chunkFromProperties(r.Properties),
			// cosine distance to similarity
			Score: 1 - r.Distance,
		})
	}
	return scored, nil
}

// Drop deletes the store's class and every vector in it. A missing class
// is not an error.
func (s *Store) Drop(ctx context.Context) error {
	class, err := s.sdk.GetClass(ctx, s.className)
	if err != nil {
		return err
	}
	if class == nil {
		return nil
	}
	return s.sdk.DeleteSchema(ctx, s.className)
}

// Reset drops and recreates the class, clearing every stored vector.
func (s *Store) Reset(ctx context.Context) error {
	class, err := s.sdk.GetClass(ctx, s.className)
	if err != nil {
		return err
	}
	if class != nil {
		if err := s.sdk.DeleteSchema(ctx, s.className); err != nil {
			return err
		}
	}
	return s.sdk.CreateSchema(ctx, s.className, s.embedModel, chunkProperties)
}

func chunkFromProperties(props map[string]interface{}) docqa.Chunk {
	c := docqa.Chunk{}
	if v, ok := props["content"].(string); ok {
		c.Content = v
	}
	if v, ok := props["overlap"].(string); ok {
		c.Overlap = v
	}
	if v, ok := props["source"].(string); ok {
		c.Meta.Source = v
	}
	if v, ok := props["positionKind"].(string); ok {
		c.Meta.Kind = docqa.PositionKind(v)
	}
	// graphql numbers decode as float64
	if v, ok := props["position"].(float64); ok {
		c.Meta.Position = int(v)
	}
	return c
}
