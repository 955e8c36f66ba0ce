package retrieval

import (
	"context"
	"fmt"
	"sort"

	"docqa/src/core/docqa"
	"docqa/src/infrastructure/log"
)

const (
	DefaultCandidateK = 10
	DefaultRerankTopN = 4
)

// Searcher is one retrieval sub-index (lexical or semantic).
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]docqa.ScoredChunk, error)
}

// Reranker is the external re-ranking capability: given a query and
// candidate texts it returns a relevance-ordered subset of size <= topN.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]docqa.RankedDocument, error)
}

// Config holds the fusion and truncation parameters.
type Config struct {
	CandidateK     int     // per-sub-index candidate pool size
	RerankTopN     int     // final result size after re-ranking
	LexicalWeight  float64 // weight for lexical sub-index scores
	SemanticWeight float64 // weight for semantic sub-index scores
}

func DefaultConfig() Config {
	return Config{
		CandidateK:     DefaultCandidateK,
		RerankTopN:     DefaultRerankTopN,
		LexicalWeight:  0.5,
		SemanticWeight: 0.5,
	}
}

// HybridRetriever fuses lexical and semantic results by weighted score,
// then hands the candidate pool to the re-ranker for the final ordering.
// The fusion score only selects candidates; the re-ranker's ordering is
// authoritative.
type HybridRetriever struct {
	lexical  Searcher
	semantic Searcher
	reranker Reranker
	cfg      Config
}

// New validates construction inputs up front: a retriever over zero chunks
// or without a re-ranker fails to build, before any query is attempted.
func New(lexical, semantic Searcher, reranker Reranker, chunkCount int, cfg Config) (*HybridRetriever, error) {
	if chunkCount == 0 {
		return nil, docqa.ErrEmptyChunkSet
	}
	if lexical == nil || semantic == nil {
		return nil, fmt.Errorf("both sub-indexes are required")
	}
	if reranker == nil {
		return nil, fmt.Errorf("%w: re-ranker not configured", docqa.ErrMissingCredentials)
	}
	if cfg.CandidateK <= 0 {
		cfg.CandidateK = DefaultCandidateK
	}
	if cfg.RerankTopN <= 0 {
		cfg.RerankTopN = DefaultRerankTopN
	}
	return &HybridRetriever{
		lexical:  lexical,
		semantic: semantic,
		reranker: reranker,
		cfg:      cfg,
	}, nil
}

type candidate struct {
	chunk docqa.Chunk
	score float64
	order int // first-seen position, stable tie-break
}

// Retrieve runs both sub-indexes with the same k, fuses by weighted score
// union (deduplicated by chunk identity), re-ranks the pool, and returns at
// most RerankTopN chunks paired with their re-rank scores. A re-ranker
// failure is a retrieval failure: the fusion order is never substituted.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string) ([]docqa.ScoredChunk, error) {
	lexHits, err := r.lexical.Query(ctx, query, r.cfg.CandidateK)
	if err != nil {
		return nil, fmt.Errorf("lexical query failed: %w", err)
	}
	semHits, err := r.semantic.Query(ctx, query, r.cfg.CandidateK)
	if err != nil {
		return nil, fmt.Errorf("semantic query failed: %w", err)
	}

	fused := fuse(lexHits, semHits, r.cfg.LexicalWeight, r.cfg.SemanticWeight)
	if len(fused) == 0 {
		return nil, nil
	}

	documents := make([]string, len(fused))
	for i, c := range fused {
		documents[i] = c.chunk.Content
	}

	ranked, err := r.reranker.Rerank(ctx, query, documents, r.cfg.RerankTopN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", docqa.ErrRerank, err)
	}

	results := make([]docqa.ScoredChunk, 0, len(ranked))
	for _, rd := range ranked {
		if rd.Index < 0 || rd.Index >= len(fused) {
			return nil, fmt.Errorf("%w: candidate index %d out of range", docqa.ErrRerank, rd.Index)
		}
		results = append(results, docqa.ScoredChunk{Chunk: fused[rd.Index].chunk, Score: rd.Score})
	}
	if len(results) > r.cfg.RerankTopN {
		results = results[:r.cfg.RerankTopN]
	}

	log.Debug("hybrid retrieval complete",
		"lexical_hits", len(lexHits),
		"semantic_hits", len(semHits),
		"fused", len(fused),
		"returned", len(results))
	return results, nil
}

// fuse builds the deduplicated weighted union of the two result sets. A
// chunk present in both accumulates both weighted scores; a chunk in one
// keeps its single weighted score. Ordering is fused score descending with
// first-seen stability.
func fuse(lexHits, semHits []docqa.ScoredChunk, lexWeight, semWeight float64) []candidate {
	byKey := make(map[string]*candidate)
	var candidates []*candidate

	accumulate := func(hits []docqa.ScoredChunk, weight float64) {
		for _, h := range hits {
			key := h.Chunk.Key()
			if existing, ok := byKey[key]; ok {
				existing.score += weight * h.Score
				continue
			}
			c := &candidate{chunk: h.Chunk, score: weight * h.Score, order: len(candidates)}
			byKey[key] = c
			candidates = append(candidates, c)
		}
	}
	accumulate(lexHits, lexWeight)
	accumulate(semHits, semWeight)

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		return candidates[a].order < candidates[b].order
	})

	out := make([]candidate, len(candidates))
	for i, c := range candidates {
		out[i] = *c
	}
	return out
}
