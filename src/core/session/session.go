package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"docqa/src/core/answer"
	"docqa/src/core/chunker"
	"docqa/src/core/docqa"
	"docqa/src/core/index"
	"docqa/src/core/retrieval"
	"docqa/src/infrastructure/log"
)

// Extractor converts uploaded files to provenance-tagged text units.
type Extractor interface {
	Extract(ctx context.Context, files []docqa.File) ([]docqa.TextUnit, []docqa.FileError)
}

// ChatMessage is one turn of the session's conversation history.
type ChatMessage struct {
	Role    string            `json:"role"` // "user" or "ai"
	Content string            `json:"content"`
	Sources []docqa.SourceRef `json:"sources,omitempty"`
}

// Deps are the capabilities a session is wired with at construction.
type Deps struct {
	Extractor    Extractor
	ChunkConfig  chunker.Config
	Embedder     index.Embedder
	StoreFactory func() index.VectorStore
	Reranker     retrieval.Reranker
	Retrieval    retrieval.Config
	Controller   *answer.Controller

	// LexicalBuilder builds the lexical index for one batch. Nil selects
	// the in-process BM25 index.
	LexicalBuilder func(ctx context.Context, chunks []docqa.Chunk) (retrieval.Searcher, error)
}

// Session owns one conversation's document state: the active index pair,
// the per-document full texts, and the chat history. Queries proceed
// against the current index while a new batch is being ingested; the swap
// to the new index is atomic.
type Session struct {
	deps Deps

	mu         sync.RWMutex
	retriever  *retrieval.HybridRetriever
	store      index.VectorStore // the active retriever's vector store
	chunkCount int
	documents  map[string]string // file name -> full extracted text
	history    []ChatMessage
}

// droppable is implemented by vector stores whose batch data lives outside
// the process and must be deleted once no retriever can reach it.
type droppable interface {
	Drop(ctx context.Context) error
}

// dropStore releases a store that no retriever points at anymore. In-process
// stores are collected by the runtime and need no release.
func dropStore(ctx context.Context, store index.VectorStore) {
	d, ok := store.(droppable)
	if !ok {
		return
	}
	if err := d.Drop(ctx); err != nil {
		log.Error(err, "failed to drop replaced vector store")
	}
}

func New(deps Deps) (*Session, error) {
	if deps.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.StoreFactory == nil {
		return nil, fmt.Errorf("vector store factory is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("answer controller is required")
	}
	return &Session{
		deps:      deps,
		documents: make(map[string]string),
	}, nil
}

// Ingest processes one document batch end to end and, on success, replaces
// the session's active index. Each batch is built into its own vector store
// from the factory; the previous batch's store is released only after the
// swap, so queries against the old index never observe the rebuild. A batch
// that yields zero chunks reports its per-file errors without touching the
// active index. Build failures leave the previous index serving queries.
func (s *Session) Ingest(ctx context.Context, files []docqa.File) (docqa.BatchResult, error) {
	units, fileErrs := s.deps.Extractor.Extract(ctx, files)

	chunks, err := chunker.Split(units, s.deps.ChunkConfig)
	if err != nil {
		return docqa.BatchResult{}, fmt.Errorf("chunking failed: %w", err)
	}

	if len(chunks) == 0 {
		log.Info("ingest produced no chunks, keeping current index",
			"files", len(files), "file_errors", len(fileErrs))
		return docqa.BatchResult{ChunkCount: 0, FileErrors: fileErrs}, nil
	}

	var lexical retrieval.Searcher
	if s.deps.LexicalBuilder != nil {
		lexical, err = s.deps.LexicalBuilder(ctx, chunks)
		if err != nil {
			return docqa.BatchResult{}, fmt.Errorf("lexical index build failed: %w", err)
		}
	} else {
		lexical = index.BuildLexical(chunks)
	}

	store := s.deps.StoreFactory()
	semantic, err := index.BuildSemantic(ctx, s.deps.Embedder, store, chunks)
	if err != nil {
		dropStore(ctx, store)
		return docqa.BatchResult{}, err
	}

	retriever, err := retrieval.New(lexical, semantic, s.deps.Reranker, len(chunks), s.deps.Retrieval)
	if err != nil {
		dropStore(ctx, store)
		return docqa.BatchResult{}, err
	}

	s.mu.Lock()
	replaced := s.store
	s.retriever = retriever
	s.store = store
	s.chunkCount = len(chunks)
	s.documents = documentTexts(units)
	s.mu.Unlock()
	dropStore(ctx, replaced)

	log.Info("document batch ingested",
		"files", len(files),
		"units", len(units),
		"chunks", len(chunks),
		"file_errors", len(fileErrs))
	return docqa.BatchResult{ChunkCount: len(chunks), FileErrors: fileErrs}, nil
}

// Ask answers one question against the currently active index and records
// both turns in the chat history. A session with no ingested batch yields
// the upload guidance via the controller.
func (s *Session) Ask(ctx context.Context, question string, mode answer.Mode) (answer.Result, error) {
	s.mu.RLock()
	retriever := s.retriever
	s.mu.RUnlock()

	var r answer.Retriever
	if retriever != nil {
		r = retriever
	}

	res, err := s.deps.Controller.Ask(ctx, r, question, mode)
	if err != nil {
		return answer.Result{}, err
	}

	s.mu.Lock()
	s.history = append(s.history,
		ChatMessage{Role: "user", Content: question},
		ChatMessage{Role: "ai", Content: res.Answer, Sources: res.Sources},
	)
	s.mu.Unlock()
	return res, nil
}

// Reset drops the active index, document texts, and chat history.
func (s *Session) Reset() {
	s.mu.Lock()
	replaced := s.store
	s.retriever = nil
	s.store = nil
	s.chunkCount = 0
	s.documents = make(map[string]string)
	s.history = nil
	s.mu.Unlock()
	dropStore(context.Background(), replaced)
}

// ChunkCount reports the size of the active index, 0 when none.
func (s *Session) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunkCount
}

// History returns a copy of the conversation so far.
func (s *Session) History() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Documents lists the names of the files in the active batch, sorted.
func (s *Session) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.documents))
	for name := range s.documents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DocumentText returns the full extracted text of one file in the active
// batch, for the document-level utilities.
func (s *Session) DocumentText(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.documents[name]
	return text, ok
}

// documentTexts joins each file's units, in extraction order, into one full
// text per file.
func documentTexts(units []docqa.TextUnit) map[string]string {
	parts := make(map[string][]string)
	for _, u := range units {
		parts[u.Meta.Source] = append(parts[u.Meta.Source], u.Content)
	}
	texts := make(map[string]string, len(parts))
	for name, p := range parts {
		texts[name] = strings.Join(p, "\n\n")
	}
	return texts
}
