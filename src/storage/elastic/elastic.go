package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"docqa/src/core/docqa"
	"docqa/src/infrastructure/log"
)

const DefaultIndexName = "document-chunks"

// Index is the Elasticsearch-backed lexical index, an alternative to the
// in-process one for batches too large to hold in memory. It satisfies the
// same query contract: BM25-scored matches, descending.
type Index struct {
	client *elasticsearch.Client
	name   string
}

func NewIndex(client *elasticsearch.Client, name string) *Index {
	if name == "" {
		name = DefaultIndexName
	}
	return &Index{client: client, name: name}
}

type chunkDocument struct {
	Content      string `json:"content"`
	Overlap      string `json:"overlap"`
	Source       string `json:"source"`
	PositionKind string `json:"position_kind"`
	Position     int    `json:"position"`
}

// Rebuild replaces the index contents with the given chunk set.
func (i *Index) Rebuild(ctx context.Context, chunks []docqa.Chunk) error {
	del := esapi.IndicesDeleteRequest{Index: []string{i.name}, IgnoreUnavailable: esapi.BoolPtr(true)}
	res, err := del.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	res.Body.Close()

	var buf bytes.Buffer
	for n, c := range chunks {
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":"%d"}}`, i.name, n)
		doc, err := json.Marshal(chunkDocument{
			Content:      c.Content,
			Overlap:      c.Overlap,
			Source:       c.Meta.Source,
			PositionKind: string(c.Meta.Kind),
			Position:     c.Meta.Position,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal chunk: %w", err)
		}
		buf.WriteString(meta)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	bulk := esapi.BulkRequest{Body: &buf, Refresh: "true"}
	res, err = bulk.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("bulk indexing failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("bulk indexing failed: %s: %s", res.Status(), string(body))
	}

	log.Debug("elasticsearch index rebuilt", "index", i.name, "chunks", len(chunks))
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64       `json:"_score"`
			Source chunkDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Query runs a match query on chunk content and returns the top-k hits.
func (i *Index) Query(ctx context.Context, text string, k int) ([]docqa.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	query := map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"content": text,
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.name),
		i.client.Search.WithBody(strings.NewReader(string(body))),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("search failed: %s: %s", res.Status(), string(raw))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	scored := make([]docqa.ScoredChunk, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		scored = append(scored, docqa.ScoredChunk{
			Chunk: docqa.Chunk{
				Content: h.Source.Content,
				Overlap: h.Source.Overlap,
				Meta: docqa.Metadata{
					Source:   h.Source.Source,
					Kind:     docqa.PositionKind(h.Source.PositionKind),
					Position: h.Source.Position,
				},
			},
			Score: h.Score,
		})
	}
	return scored, nil
}
