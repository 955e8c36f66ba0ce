package session_test

import (
	"context"
	"errors"
	"testing"

	"docqa/src/core/answer"
	"docqa/src/core/chunker"
	"docqa/src/core/docqa"
	"docqa/src/core/extract"
	"docqa/src/core/index"
	"docqa/src/core/retrieval"
	"docqa/src/core/session"
)

// hashEmbedder emits a deterministic vector per text so semantic search is
// exercised without a model.
type hashEmbedder struct {
	fail bool
}

func (e *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, errors.New("embedding service down")
	}
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r % 31)
	}
	return vec, nil
}

type identityReranker struct{}

func (identityReranker) Rerank(ctx context.Context, query string, documents []string, topN int) ([]docqa.RankedDocument, error) {
	n := len(documents)
	if n > topN {
		n = topN
	}
	out := make([]docqa.RankedDocument, n)
	for i := range out {
		out[i] = docqa.RankedDocument{Index: i, Score: float64(n - i)}
	}
	return out, nil
}

type textParser struct{}

func (textParser) Parse(ctx context.Context, name string, data []byte) ([]extract.Segment, error) {
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}
	return []extract.Segment{{Text: string(data), Page: 1}}, nil
}

type cannedGenerator struct {
	result docqa.GenerateResult
}

func (g *cannedGenerator) Generate(ctx context.Context, prompt string) docqa.GenerateResult {
	return g.result
}

func newSession(t *testing.T, embedder index.Embedder, gen answer.Generator) *session.Session {
	t.Helper()

	extractor := extract.NewExtractor(map[docqa.Format]extract.Parser{
		docqa.FormatPDF: textParser{},
	})

	sess, err := session.New(session.Deps{
		Extractor:    extractor,
		ChunkConfig:  chunker.Config{MaxChunkSize: 200, OverlapSize: 40},
		Embedder:     embedder,
		StoreFactory: func() index.VectorStore { return index.NewMemoryStore() },
		Reranker:     identityReranker{},
		Retrieval:    retrieval.DefaultConfig(),
		Controller:   answer.NewController(gen),
	})
	if err != nil {
		t.Fatalf("session.New returned error: %v", err)
	}
	return sess
}

func pdf(name, content string) docqa.File {
	return docqa.File{Name: name, Format: docqa.FormatPDF, Data: []byte(content)}
}

func TestAskBeforeIngest(t *testing.T) {
	sess := newSession(t, &hashEmbedder{}, &cannedGenerator{result: docqa.GenerateResult{Status: docqa.GenerateOK, Text: "unused"}})

	res, err := sess.Ask(context.Background(), "what is in my documents?", answer.ModeHybrid)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if res.Answer != answer.NoIndexGuidance {
		t.Errorf("Ask = %q, want upload guidance", res.Answer)
	}
}

func TestIngestThenAsk(t *testing.T) {
	gen := &cannedGenerator{result: docqa.GenerateResult{Status: docqa.GenerateOK, Text: "The revenue was $4.2M."}}
	sess := newSession(t, &hashEmbedder{}, gen)

	result, err := sess.Ingest(context.Background(), []docqa.File{
		pdf("report.pdf", "Total revenue: $4.2M for the year."),
	})
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if result.ChunkCount == 0 {
		t.Fatal("ingest produced no chunks")
	}
	if sess.ChunkCount() != result.ChunkCount {
		t.Errorf("ChunkCount() = %d, result reported %d", sess.ChunkCount(), result.ChunkCount)
	}

	res, err := sess.Ask(context.Background(), "what was the revenue?", answer.ModeDocumentOnly)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if res.Answer != "The revenue was $4.2M." {
		t.Errorf("Ask = %q", res.Answer)
	}
	if len(res.Sources) == 0 {
		t.Error("grounded answer carries no sources")
	}

	history := sess.History()
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "ai" {
		t.Errorf("history roles = %q, %q", history[0].Role, history[1].Role)
	}
}

func TestIngestEmptyBatchKeepsIndex(t *testing.T) {
	gen := &cannedGenerator{result: docqa.GenerateResult{Status: docqa.GenerateOK, Text: "answer"}}
	sess := newSession(t, &hashEmbedder{}, gen)

	if _, err := sess.Ingest(context.Background(), []docqa.File{pdf("a.pdf", "usable content here")}); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	before := sess.ChunkCount()

	// Every file fails to parse; the batch yields zero chunks.
	result, err := sess.Ingest(context.Background(), []docqa.File{pdf("empty.pdf", "")})
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if result.ChunkCount != 0 {
		t.Errorf("chunk count = %d, want 0", result.ChunkCount)
	}
	if len(result.FileErrors) != 1 {
		t.Errorf("file errors = %v, want one entry", result.FileErrors)
	}
	if sess.ChunkCount() != before {
		t.Errorf("empty batch replaced the active index: %d != %d", sess.ChunkCount(), before)
	}
}

func TestIngestBuildFailureKeepsIndex(t *testing.T) {
	embedder := &hashEmbedder{}
	gen := &cannedGenerator{result: docqa.GenerateResult{Status: docqa.GenerateOK, Text: "answer"}}
	sess := newSession(t, embedder, gen)

	if _, err := sess.Ingest(context.Background(), []docqa.File{pdf("a.pdf", "first batch content")}); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	before := sess.ChunkCount()

	embedder.fail = true
	_, err := sess.Ingest(context.Background(), []docqa.File{pdf("b.pdf", "second batch content")})
	if !errors.Is(err, docqa.ErrIndexBuild) {
		t.Fatalf("got %v, want ErrIndexBuild", err)
	}
	if sess.ChunkCount() != before {
		t.Errorf("failed build replaced the active index")
	}

	// The previous index still answers.
	embedder.fail = false
	if _, err := sess.Ask(context.Background(), "still working?", answer.ModeHybrid); err != nil {
		t.Errorf("Ask after failed ingest returned error: %v", err)
	}
}

func TestIngestFreshSessionZeroChunksThenAsk(t *testing.T) {
	gen := &cannedGenerator{result: docqa.GenerateResult{Status: docqa.GenerateOK, Text: "unused"}}
	sess := newSession(t, &hashEmbedder{}, gen)

	result, err := sess.Ingest(context.Background(), nil)
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if result.ChunkCount != 0 {
		t.Errorf("chunk count = %d, want 0", result.ChunkCount)
	}

	res, err := sess.Ask(context.Background(), "anything there?", answer.ModeHybrid)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if res.Answer != answer.NoIndexGuidance {
		t.Errorf("Ask = %q, want upload guidance", res.Answer)
	}
}

func TestResetDropsEverything(t *testing.T) {
	gen := &cannedGenerator{result: docqa.GenerateResult{Status: docqa.GenerateOK, Text: "answer"}}
	sess := newSession(t, &hashEmbedder{}, gen)

	if _, err := sess.Ingest(context.Background(), []docqa.File{pdf("a.pdf", "some content")}); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if _, err := sess.Ask(context.Background(), "question", answer.ModeHybrid); err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}

	sess.Reset()

	if sess.ChunkCount() != 0 {
		t.Errorf("ChunkCount() = %d after reset", sess.ChunkCount())
	}
	if len(sess.History()) != 0 {
		t.Errorf("history survived reset")
	}
	if len(sess.Documents()) != 0 {
		t.Errorf("documents survived reset")
	}

	res, err := sess.Ask(context.Background(), "question", answer.ModeHybrid)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if res.Answer != answer.NoIndexGuidance {
		t.Errorf("Ask after reset = %q, want upload guidance", res.Answer)
	}
}

// trackingStore wraps the in-memory store to observe which store a batch
// build writes to and when a replaced store is released.
type trackingStore struct {
	*index.MemoryStore
	resets  int
	adds    int
	dropped bool
}

func (s *trackingStore) Reset(ctx context.Context) error {
	s.resets++
	return s.MemoryStore.Reset(ctx)
}

func (s *trackingStore) Add(ctx context.Context, chunks []docqa.Chunk, vectors [][]float32) error {
	s.adds++
	return s.MemoryStore.Add(ctx, chunks, vectors)
}

func (s *trackingStore) Drop(ctx context.Context) error {
	s.dropped = true
	return nil
}

func newTrackedSession(t *testing.T, embedder index.Embedder, gen answer.Generator) (*session.Session, *[]*trackingStore) {
	t.Helper()

	extractor := extract.NewExtractor(map[docqa.Format]extract.Parser{
		docqa.FormatPDF: textParser{},
	})

	stores := &[]*trackingStore{}
	sess, err := session.New(session.Deps{
		Extractor:   extractor,
		ChunkConfig: chunker.Config{MaxChunkSize: 200, OverlapSize: 40},
		Embedder:    embedder,
		StoreFactory: func() index.VectorStore {
			st := &trackingStore{MemoryStore: index.NewMemoryStore()}
			*stores = append(*stores, st)
			return st
		},
		Reranker:   identityReranker{},
		Retrieval:  retrieval.DefaultConfig(),
		Controller: answer.NewController(gen),
	})
	if err != nil {
		t.Fatalf("session.New returned error: %v", err)
	}
	return sess, stores
}

func TestRebuildNeverTouchesActiveStore(t *testing.T) {
	gen := &cannedGenerator{result: docqa.GenerateResult{Status: docqa.GenerateOK, Text: "answer"}}
	sess, stores := newTrackedSession(t, &hashEmbedder{}, gen)

	if _, err := sess.Ingest(context.Background(), []docqa.File{pdf("a.pdf", "first batch content")}); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if len(*stores) != 1 {
		t.Fatalf("first ingest created %d stores, want 1", len(*stores))
	}
	first := (*stores)[0]
	firstResets, firstAdds := first.resets, first.adds

	if _, err := sess.Ingest(context.Background(), []docqa.File{pdf("b.pdf", "second batch content")}); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if len(*stores) != 2 {
		t.Fatalf("second ingest reused a store: %d stores total", len(*stores))
	}

	// The store behind the previously active retriever saw no writes from
	// the rebuild; it was released only after the swap.
	if first.resets != firstResets || first.adds != firstAdds {
		t.Errorf("rebuild wrote into the active store: resets %d->%d, adds %d->%d",
			firstResets, first.resets, firstAdds, first.adds)
	}
	if !first.dropped {
		t.Error("replaced store was not released")
	}
	if (*stores)[1].dropped {
		t.Error("active store was released")
	}

	if _, err := sess.Ask(context.Background(), "still answering?", answer.ModeHybrid); err != nil {
		t.Errorf("Ask after rebuild returned error: %v", err)
	}
}

func TestFailedBuildReleasesOnlyItsOwnStore(t *testing.T) {
	embedder := &hashEmbedder{}
	gen := &cannedGenerator{result: docqa.GenerateResult{Status: docqa.GenerateOK, Text: "answer"}}
	sess, stores := newTrackedSession(t, embedder, gen)

	if _, err := sess.Ingest(context.Background(), []docqa.File{pdf("a.pdf", "first batch content")}); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}

	embedder.fail = true
	if _, err := sess.Ingest(context.Background(), []docqa.File{pdf("b.pdf", "second batch content")}); !errors.Is(err, docqa.ErrIndexBuild) {
		t.Fatalf("got %v, want ErrIndexBuild", err)
	}

	if len(*stores) != 2 {
		t.Fatalf("got %d stores, want 2", len(*stores))
	}
	if !(*stores)[1].dropped {
		t.Error("failed build left its store behind")
	}
	if (*stores)[0].dropped {
		t.Error("failed build released the active store")
	}
}

func TestResetReleasesActiveStore(t *testing.T) {
	gen := &cannedGenerator{result: docqa.GenerateResult{Status: docqa.GenerateOK, Text: "answer"}}
	sess, stores := newTrackedSession(t, &hashEmbedder{}, gen)

	if _, err := sess.Ingest(context.Background(), []docqa.File{pdf("a.pdf", "some content")}); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}

	sess.Reset()
	if !(*stores)[0].dropped {
		t.Error("reset did not release the active store")
	}
}

func TestDocumentTexts(t *testing.T) {
	gen := &cannedGenerator{result: docqa.GenerateResult{Status: docqa.GenerateOK, Text: "answer"}}
	sess := newSession(t, &hashEmbedder{}, gen)

	if _, err := sess.Ingest(context.Background(), []docqa.File{
		pdf("b.pdf", "second document"),
		pdf("a.pdf", "first document"),
	}); err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}

	docs := sess.Documents()
	if len(docs) != 2 || docs[0] != "a.pdf" || docs[1] != "b.pdf" {
		t.Errorf("Documents() = %v, want sorted names", docs)
	}

	text, ok := sess.DocumentText("a.pdf")
	if !ok || text != "first document" {
		t.Errorf("DocumentText(a.pdf) = (%q, %v)", text, ok)
	}
	if _, ok := sess.DocumentText("missing.pdf"); ok {
		t.Error("DocumentText returned ok for unknown document")
	}
}
