package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// GeminiEmbedder embeds text with a Google embedding model. Documents and
// queries use the matching retrieval task types.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
	batchSize int
}

func NewGeminiEmbedder(client *genai.Client, model string, dimension, batchSize int) *GeminiEmbedder {
	if model == "" {
		model = "text-embedding-004"
	}
	if dimension <= 0 {
		dimension = 768
	}
	if batchSize <= 0 || batchSize > 100 {
		batchSize = 100
	}
	return &GeminiEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
	}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := em.NewBatch()
		for _, text := range texts[i:end] {
			batch.AddContent(genai.Text(text))
		}

		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch embed failed: %w", err)
		}
		if len(res.Embeddings) != end-i {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-i, len(res.Embeddings))
		}
		for _, emb := range res.Embeddings {
			if emb == nil {
				return nil, fmt.Errorf("no embedding returned")
			}
			all = append(all, emb.Values)
		}
	}

	return all, nil
}

func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	resp, err := em.EmbedContent(ctx, genai.Text(query))
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embedding.Values, nil
}

func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

func (e *GeminiEmbedder) ModelName() string {
	return e.model
}
