package index

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"docqa/src/core/docqa"
)

// BM25 free parameters. Standard values; retrieval quality is not a
// guarantee of this component, determinism is.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Lexical is an in-memory BM25 index over a chunk set. It is built once per
// document batch and read-only afterwards.
type Lexical struct {
	chunks    []docqa.Chunk
	termFreqs []map[string]int
	docLens   []int
	docFreq   map[string]int
	avgLen    float64
}

// BuildLexical indexes the given chunks. An empty chunk set builds an empty
// index whose queries return no results. Duplicate chunk contents are
// indexed and scored independently.
func BuildLexical(chunks []docqa.Chunk) *Lexical {
	idx := &Lexical{
		chunks:    chunks,
		termFreqs: make([]map[string]int, len(chunks)),
		docLens:   make([]int, len(chunks)),
		docFreq:   make(map[string]int),
	}

	total := 0
	for i, c := range chunks {
		tokens := tokenize(c.Content)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(tokens)
		total += len(tokens)
		for tok := range tf {
			idx.docFreq[tok]++
		}
	}
	if len(chunks) > 0 {
		idx.avgLen = float64(total) / float64(len(chunks))
	}
	return idx
}

// Query returns the top-k chunks by BM25 score, descending. Ties keep the
// chunks' input order so repeated queries return identical orderings.
func (idx *Lexical) Query(ctx context.Context, text string, k int) ([]docqa.ScoredChunk, error) {
	if len(idx.chunks) == 0 || k <= 0 {
		return nil, nil
	}

	queryTokens := tokenize(text)
	n := float64(len(idx.chunks))

	scored := make([]docqa.ScoredChunk, 0, len(idx.chunks))
	for i := range idx.chunks {
		score := 0.0
		for _, tok := range queryTokens {
			tf := idx.termFreqs[i][tok]
			if tf == 0 {
				continue
			}
			df := float64(idx.docFreq[tok])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := 1 - bm25B + bm25B*float64(idx.docLens[i])/idx.avgLen
			score += idf * float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*norm)
		}
		if score > 0 {
			scored = append(scored, docqa.ScoredChunk{Chunk: idx.chunks[i], Score: score})
		}
	}

	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Size reports the number of indexed chunks.
func (idx *Lexical) Size() int { return len(idx.chunks) }
