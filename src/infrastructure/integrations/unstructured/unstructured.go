package unstructured

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"docqa/src/infrastructure/log"
)

// Service talks to an unstructured-io partition endpoint. It returns raw
// per-element text with page attribution; chunking happens downstream, so
// the service's own chunking is left disabled.
type Service struct {
	baseURL    string
	httpClient *http.Client
}

type Element struct {
	Type      string   `json:"type"`
	Text      string   `json:"text"`
	ElementID string   `json:"element_id"`
	Metadata  Metadata `json:"metadata"`
}

type Metadata struct {
	Filename   string `json:"filename,omitempty"`
	Filetype   string `json:"filetype,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
	TableHTML  string `json:"table_html,omitempty"`
}

func NewService(baseURL string, c *http.Client) *Service {
	if c == nil {
		c = http.DefaultClient
	}
	return &Service{
		baseURL:    baseURL,
		httpClient: c,
	}
}

// Partition sends the file to the partition endpoint and returns its
// elements in document order.
func (s *Service) Partition(ctx context.Context, filename string, content []byte) ([]Element, error) {
	var requestBody bytes.Buffer
	multipartWriter := multipart.NewWriter(&requestBody)

	fileWriter, err := multipartWriter.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err = io.Copy(fileWriter, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}

	if err := multipartWriter.WriteField("output_format", "application/json"); err != nil {
		return nil, fmt.Errorf("failed to write output format: %w", err)
	}

	multipartWriter.Close()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/general/v0/general", &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", multipartWriter.FormDataContentType())

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Error(fmt.Errorf("partition service error"), "failed to partition file",
			"file", filename, "status", resp.Status, "body", string(body))
		return nil, fmt.Errorf("partition service error: %s", resp.Status)
	}

	var elements []Element
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return elements, nil
}
