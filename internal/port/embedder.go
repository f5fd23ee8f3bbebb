package port

import (
	"context"

	"compliance/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for documents being stored.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorCollection persists one named collection of chunk vectors.
type VectorCollection interface {
	// Replace stages the records as a new collection and publishes it,
	// discarding the previous collection only once the new one is complete.
	Replace(ctx context.Context, records []VectorRecord, meta CollectionMeta) error

	// Search finds the k nearest records to the query vector.
	Search(query []float32, k int) ([]domain.ScoredChunk, error)

	// Meta describes the active collection.
	Meta() (CollectionMeta, error)

	// Records returns every record of the active collection in chunk order.
	Records() ([]VectorRecord, error)

	// Generation changes every time a collection is published.
	Generation() uint64

	// DiscardStaging removes any leftover staging data from an interrupted rebuild.
	DiscardStaging() error
}

// VectorRecord is a chunk together with its embedding.
type VectorRecord struct {
	Chunk  domain.RuleChunk
	Vector []float32
}

// CollectionMeta describes how a collection was built.
type CollectionMeta struct {
	Name       string
	Model      string
	Dimension  int
	Count      int
	Generation uint64
}
