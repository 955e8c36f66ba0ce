package index_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"docqa/src/core/docqa"
	"docqa/src/core/index"
)

// axisEmbedder maps known words to unit axes so similarity is exact and
// predictable.
type axisEmbedder struct {
	failOn string
	calls  int
}

func (e *axisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding backend unavailable")
	}

	vec := make([]float32, 3)
	if strings.Contains(text, "cat") {
		vec[0] = 1
	}
	if strings.Contains(text, "dog") {
		vec[1] = 1
	}
	if strings.Contains(text, "bird") {
		vec[2] = 1
	}
	return vec, nil
}

func TestSemanticBuildAndQuery(t *testing.T) {
	chunks := []docqa.Chunk{
		chunk("all about cat care"),
		chunk("training your dog"),
		chunk("bird watching basics"),
	}

	embedder := &axisEmbedder{}
	sem, err := index.BuildSemantic(context.Background(), embedder, index.NewMemoryStore(), chunks)
	if err != nil {
		t.Fatalf("BuildSemantic returned error: %v", err)
	}
	if embedder.calls != len(chunks) {
		t.Errorf("expected %d embedding calls, got %d", len(chunks), embedder.calls)
	}

	results, err := sem.Query(context.Background(), "my dog", 2)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.Content != "training your dog" {
		t.Errorf("nearest chunk = %q, want the dog chunk", results[0].Chunk.Content)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("results not in descending score order: %f then %f", results[0].Score, results[1].Score)
	}
}

func TestSemanticBuildFailureSurfaced(t *testing.T) {
	chunks := []docqa.Chunk{
		chunk("fine chunk about cats"),
		chunk("poison chunk"),
		chunk("another fine chunk"),
	}

	embedder := &axisEmbedder{failOn: "poison"}
	_, err := index.BuildSemantic(context.Background(), embedder, index.NewMemoryStore(), chunks)
	if err == nil {
		t.Fatal("expected build error, got nil")
	}
	if !errors.Is(err, docqa.ErrIndexBuild) {
		t.Errorf("error %v does not wrap ErrIndexBuild", err)
	}
	if !strings.Contains(err.Error(), "chunk 2 of 3") {
		t.Errorf("error %q does not identify the failing chunk", err)
	}
}

func TestSemanticQueryEmbedFailure(t *testing.T) {
	sem, err := index.BuildSemantic(context.Background(), &axisEmbedder{}, index.NewMemoryStore(),
		[]docqa.Chunk{chunk("cat chunk")})
	if err != nil {
		t.Fatalf("BuildSemantic returned error: %v", err)
	}

	failing := &axisEmbedder{failOn: "poison"}
	sem2, err := index.BuildSemantic(context.Background(), failing, index.NewMemoryStore(),
		[]docqa.Chunk{chunk("cat chunk")})
	if err != nil {
		t.Fatalf("BuildSemantic returned error: %v", err)
	}

	if _, err := sem2.Query(context.Background(), "poison query", 1); err == nil {
		t.Error("expected query embedding failure to surface")
	}
	if _, err := sem.Query(context.Background(), "cat", 1); err != nil {
		t.Errorf("unexpected query error: %v", err)
	}
}

func TestMemoryStoreCountMismatch(t *testing.T) {
	store := index.NewMemoryStore()
	err := store.Add(context.Background(), []docqa.Chunk{chunk("a")}, [][]float32{{1}, {2}})
	if err == nil {
		t.Fatal("expected count mismatch error, got nil")
	}
}

func TestMemoryStoreReset(t *testing.T) {
	store := index.NewMemoryStore()
	chunks := make([]docqa.Chunk, 3)
	vectors := make([][]float32, 3)
	for i := range chunks {
		chunks[i] = chunk(fmt.Sprintf("chunk %d", i))
		vectors[i] = []float32{float32(i + 1)}
	}

	if err := store.Add(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := store.Reset(context.Background()); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}

	results, err := store.Search(context.Background(), []float32{1}, 10)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty store after reset, got %d results", len(results))
	}
}
