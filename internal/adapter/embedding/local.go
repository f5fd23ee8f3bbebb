package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"compliance/internal/adapter/analyzer"
)

// HashEmbedder is an offline embedder: terms and term bigrams are hashed
// into a fixed number of signed buckets and the vector is L2-normalized.
// It needs no network and gives stable vectors for tests and air-gapped use.
type HashEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(),
	}
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embeddings[i] = e.vector(text)
	}
	return embeddings, nil
}

func (e *HashEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(query), nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dimension)

	tokens := e.tokenizer.Tokenize(text)
	for _, term := range tokens {
		e.add(vec, term, 1)
	}
	for _, pair := range analyzer.Bigrams(tokens) {
		e.add(vec, pair, 0.5)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (e *HashEmbedder) add(vec []float32, term string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(term))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dimension))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return "local-hash-v1"
}
