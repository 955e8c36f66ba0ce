package cmd

import (
	"context"
	"fmt"
	"net/http"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/spf13/viper"
	weaviateclient "github.com/weaviate/weaviate-go-client/v4/weaviate"

	"docqa/src/core/answer"
	"docqa/src/core/chunker"
	"docqa/src/core/docqa"
	"docqa/src/core/doctools"
	"docqa/src/core/extract"
	"docqa/src/core/index"
	"docqa/src/core/retrieval"
	"docqa/src/core/session"
	"docqa/src/infrastructure/integrations/cohere"
	"docqa/src/infrastructure/integrations/ollama"
	"docqa/src/infrastructure/integrations/unstructured"
	elasticstore "docqa/src/storage/elastic"
	weaviatestore "docqa/src/storage/weaviate"
)

// buildSession wires the ingestion and answering pipeline from viper
// configuration. It is shared by the serve and ingest commands.
func buildSession() (*session.Session, *doctools.Tools, error) {
	httpClient := &http.Client{}

	ollamaClient := ollama.NewClient(viper.GetString("ollama.url"), httpClient)
	provider := ollama.NewProvider(
		ollamaClient,
		viper.GetString("ollama.embed_model"),
		viper.GetString("ollama.generate_model"),
	)

	cohereClient, err := cohere.NewClient(
		viper.GetString("cohere.url"),
		viper.GetString("cohere.api_key"),
		viper.GetString("cohere.model"),
		httpClient,
	)
	if err != nil {
		return nil, nil, err
	}

	partition := unstructured.NewService(viper.GetString("unstructured.url"), httpClient)
	parser := unstructured.NewParser(partition)
	extractor := extract.NewExtractor(map[docqa.Format]extract.Parser{
		docqa.FormatPDF:  parser,
		docqa.FormatDOCX: parser,
		docqa.FormatPPTX: parser,
	})

	storeFactory, err := semanticStoreFactory(provider.EmbedModel())
	if err != nil {
		return nil, nil, err
	}

	lexicalBuilder, err := lexicalIndexBuilder()
	if err != nil {
		return nil, nil, err
	}

	sess, err := session.New(session.Deps{
		Extractor: extractor,
		ChunkConfig: chunker.Config{
			MaxChunkSize: viper.GetInt("chunk.max_size"),
			OverlapSize:  viper.GetInt("chunk.overlap"),
		},
		Embedder:     provider,
		StoreFactory: storeFactory,
		Reranker:     cohereClient,
		Retrieval: retrieval.Config{
			CandidateK:     viper.GetInt("retrieval.candidate_k"),
			RerankTopN:     viper.GetInt("retrieval.top_n"),
			LexicalWeight:  viper.GetFloat64("retrieval.lexical_weight"),
			SemanticWeight: viper.GetFloat64("retrieval.semantic_weight"),
		},
		Controller:     answer.NewController(provider),
		LexicalBuilder: lexicalBuilder,
	})
	if err != nil {
		return nil, nil, err
	}

	return sess, doctools.New(provider), nil
}

// semanticStoreFactory selects the vector store backend: the in-process one
// by default, Weaviate when configured. Either way the factory yields a
// fresh store per batch, so a rebuild never writes into the store the
// current retriever is querying.
func semanticStoreFactory(embedModel string) (func() index.VectorStore, error) {
	switch backend := viper.GetString("index.semantic_backend"); backend {
	case "memory":
		return func() index.VectorStore { return index.NewMemoryStore() }, nil

	case "weaviate":
		client := weaviateclient.New(weaviateclient.Config{
			Host:   viper.GetString("weaviate.host"),
			Scheme: "http",
		})
		sdk := weaviatestore.NewSDK(client)
		classPrefix := viper.GetString("weaviate.class")
		return func() index.VectorStore {
			return weaviatestore.NewBatchStore(sdk, classPrefix, embedModel)
		}, nil

	default:
		return nil, fmt.Errorf("unknown semantic backend %q", backend)
	}
}

// lexicalIndexBuilder selects the lexical backend: nil for the in-process
// BM25 index, an Elasticsearch-backed builder when configured.
func lexicalIndexBuilder() (func(ctx context.Context, chunks []docqa.Chunk) (retrieval.Searcher, error), error) {
	switch backend := viper.GetString("index.lexical_backend"); backend {
	case "memory":
		return nil, nil

	case "elastic":
		client, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{viper.GetString("elastic.url")},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
		}
		esIndex := elasticstore.NewIndex(client, viper.GetString("elastic.index"))
		return func(ctx context.Context, chunks []docqa.Chunk) (retrieval.Searcher, error) {
			if err := esIndex.Rebuild(ctx, chunks); err != nil {
				return nil, err
			}
			return esIndex, nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown lexical backend %q", backend)
	}
}
