package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"docqa/src/core/docqa"
	"docqa/src/infrastructure/log"
)

const (
	DefaultURL   = "https://api.cohere.com/v2"
	DefaultModel = "rerank-english-v3.0"
)

// RerankRequest represents the request structure for re-ranking
type RerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

// RerankResult is one entry of the re-rank response
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// RerankResponse represents the response structure from re-ranking
type RerankResponse struct {
	Results []RerankResult `json:"results"`
}

// Client represents a Cohere re-rank API client
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewClient creates a new Cohere client. A missing API key is a
// construction error so it surfaces at wiring time, not on the first query.
func NewClient(baseURL, apiKey, model string, c *http.Client) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: cohere api key", docqa.ErrMissingCredentials)
	}
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	if c == nil {
		c = http.DefaultClient
	}

	return &Client{
		httpClient: c,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
	}, nil
}

// Rerank scores the documents against the query and returns at most topN of
// them, most relevant first, as indexes into the submitted list.
func (c *Client) Rerank(ctx context.Context, query string, documents []string, topN int) ([]docqa.RankedDocument, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	reqBody := RerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/rerank", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error(err, "failed to make request to cohere")
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d from cohere: %s", resp.StatusCode, string(body))
	}

	var result RerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	ranked := make([]docqa.RankedDocument, 0, len(result.Results))
	for _, r := range result.Results {
		ranked = append(ranked, docqa.RankedDocument{Index: r.Index, Score: r.RelevanceScore})
	}
	return ranked, nil
}
