package index

import (
	"context"
	"fmt"
	"math"

	"docqa/src/core/docqa"
	"docqa/src/infrastructure/log"
)

// Embedder is the external embedding capability: text in, fixed-length
// vector out. It may fail with credential or quota errors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore holds chunk vectors for similarity search. Implementations
// must return scores comparable under "higher is more similar" and preserve
// insertion order for equal scores.
type VectorStore interface {
	Add(ctx context.Context, chunks []docqa.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]docqa.ScoredChunk, error)
	Reset(ctx context.Context) error
}

// Semantic is the nearest-neighbor index over chunk embeddings. Vectors are
// L2-normalized before storage so inner product equals cosine similarity at
// both build and query time.
type Semantic struct {
	embedder Embedder
	store    VectorStore
}

// BuildSemantic embeds every chunk and loads the store. Any embedding
// failure is fatal for the batch: the error is wrapped with ErrIndexBuild
// and no index is returned, so callers never install a partially embedded
// index.
func BuildSemantic(ctx context.Context, embedder Embedder, store VectorStore, chunks []docqa.Chunk) (*Semantic, error) {
	vectors := make([][]float32, 0, len(chunks))
	for i, c := range chunks {
		vec, err := embedder.Embed(ctx, c.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: embedding chunk %d of %d: %v", docqa.ErrIndexBuild, i+1, len(chunks), err)
		}
		vectors = append(vectors, normalize(vec))
	}

	if err := store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("%w: resetting vector store: %v", docqa.ErrIndexBuild, err)
	}
	if err := store.Add(ctx, chunks, vectors); err != nil {
		return nil, fmt.Errorf("%w: loading vector store: %v", docqa.ErrIndexBuild, err)
	}

	log.Debug("semantic index built", "chunks", len(chunks))
	return &Semantic{embedder: embedder, store: store}, nil
}

// Query embeds the text and returns the top-k most similar chunks,
// descending, with stable ties.
func (s *Semantic) Query(ctx context.Context, text string, k int) ([]docqa.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.store.Search(ctx, normalize(vec), k)
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
