package ollama

import (
	"context"
	"errors"

	"docqa/src/core/docqa"
)

// Provider adapts the raw client to the capability interfaces the pipeline
// consumes: an embedder for index construction and a generator with typed
// outcomes for the answer controller.
type Provider struct {
	client        *Client
	embedModel    string
	generateModel string
}

func NewProvider(client *Client, embedModel, generateModel string) *Provider {
	return &Provider{
		client:        client,
		embedModel:    embedModel,
		generateModel: generateModel,
	}
}

// EmbedModel reports the embedding model name, used to key persisted
// vector indexes.
func (p *Provider) EmbedModel() string { return p.embedModel }

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.client.GetEmbedding(ctx, p.embedModel, text)
}

// Generate invokes the generation model and folds the error space into the
// typed outcome the answer controller branches on.
func (p *Provider) Generate(ctx context.Context, prompt string) docqa.GenerateResult {
	text, err := p.client.Generate(ctx, p.generateModel, "", prompt, map[string]interface{}{
		"temperature": 0.2,
	})
	if err != nil {
		if errors.Is(err, ErrOverloaded) {
			return docqa.GenerateResult{Status: docqa.GenerateOverloaded, Err: err}
		}
		return docqa.GenerateResult{Status: docqa.GenerateFailed, Err: err}
	}
	return docqa.GenerateResult{Status: docqa.GenerateOK, Text: text}
}
