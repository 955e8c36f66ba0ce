package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docqa/src/core/docqa"
)

// MemoryStore is the default in-process vector store: brute-force inner
// product over normalized vectors, scoped to one document batch.
type MemoryStore struct {
	mu      sync.RWMutex
	chunks  []docqa.Chunk
	vectors [][]float32
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Add(ctx context.Context, chunks []docqa.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	m.vectors = append(m.vectors, vectors...)
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, vector []float32, k int) ([]docqa.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make([]docqa.ScoredChunk, 0, len(m.vectors))
	for i, v := range m.vectors {
		scored = append(scored, docqa.ScoredChunk{Chunk: m.chunks[i], Score: dot(v, vector)})
	}

	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (m *MemoryStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	m.vectors = nil
	return nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
