package index_test

import (
	"context"
	"reflect"
	"testing"

	"docqa/src/core/docqa"
	"docqa/src/core/index"
)

func chunk(content string) docqa.Chunk {
	return docqa.Chunk{Content: content, Meta: docqa.Metadata{Source: "doc.pdf", Kind: docqa.PositionPage, Position: 1}}
}

func TestLexicalRanking(t *testing.T) {
	chunks := []docqa.Chunk{
		chunk("Total revenue was 4.2 million dollars in the last quarter."),
		chunk("The weather in spring is usually mild and pleasant."),
		chunk("Revenue projections assume steady growth. Revenue doubled."),
	}

	idx := index.BuildLexical(chunks)
	results, err := idx.Query(context.Background(), "revenue", 10)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(results))
	}
	// The chunk mentioning revenue twice scores higher.
	if results[0].Chunk.Content != chunks[2].Content {
		t.Errorf("top result = %q, want the double-mention chunk", results[0].Chunk.Content)
	}
	for _, r := range results {
		if r.Score <= 0 {
			t.Errorf("match has non-positive score %f", r.Score)
		}
	}
}

func TestLexicalCaseAndPunctuation(t *testing.T) {
	idx := index.BuildLexical([]docqa.Chunk{chunk("HELLO, World! (greeting)")})

	results, err := idx.Query(context.Background(), "hello world", 5)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected tokenization to ignore case and punctuation, got %d results", len(results))
	}
}

func TestLexicalDeterminism(t *testing.T) {
	chunks := []docqa.Chunk{
		chunk("alpha beta"),
		chunk("alpha beta"),
		chunk("alpha beta"),
	}
	idx := index.BuildLexical(chunks)

	first, err := idx.Query(context.Background(), "alpha", 10)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	for range [5]struct{}{} {
		again, err := idx.Query(context.Background(), "alpha", 10)
		if err != nil {
			t.Fatalf("Query returned error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatal("identical queries returned different orderings")
		}
	}
}

func TestLexicalTruncationAndEmpty(t *testing.T) {
	idx := index.BuildLexical([]docqa.Chunk{
		chunk("shared term one"),
		chunk("shared term two"),
		chunk("shared term three"),
	})

	results, err := idx.Query(context.Background(), "shared", 2)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected truncation to k=2, got %d", len(results))
	}

	empty := index.BuildLexical(nil)
	results, err = empty.Query(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Query on empty index returned error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty index returned %d results", len(results))
	}

	if empty.Size() != 0 {
		t.Errorf("empty index Size() = %d", empty.Size())
	}
}

func TestLexicalNoMatchExcluded(t *testing.T) {
	idx := index.BuildLexical([]docqa.Chunk{
		chunk("only about cats"),
		chunk("dogs and more dogs"),
	})

	results, err := idx.Query(context.Background(), "dogs", 10)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected non-matching chunks to be excluded, got %d results", len(results))
	}
	if results[0].Chunk.Content != "dogs and more dogs" {
		t.Errorf("unexpected match %q", results[0].Chunk.Content)
	}
}
