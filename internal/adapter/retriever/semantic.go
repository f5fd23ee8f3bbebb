package retriever

import (
	"context"
	"fmt"

	"compliance/internal/domain"
	"compliance/internal/port"
)

const defaultBatchSize = 32

// ProgressFunc reports how many chunks have been embedded so far.
type ProgressFunc func(done, total int)

// SemanticIndex implements port.KnowledgeStore by embedding chunk texts and
// keeping them in a vector collection.
type SemanticIndex struct {
	embedder   port.Embedder
	collection port.VectorCollection
	batchSize  int
	progress   ProgressFunc
}

func NewSemanticIndex(embedder port.Embedder, collection port.VectorCollection, batchSize int) *SemanticIndex {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &SemanticIndex{
		embedder:   embedder,
		collection: collection,
		batchSize:  batchSize,
	}
}

// SetProgress installs a callback invoked after every embedded batch.
func (r *SemanticIndex) SetProgress(fn ProgressFunc) {
	r.progress = fn
}

// Rebuild embeds every chunk and replaces the collection with the result.
// The previous collection stays searchable until the new one is published.
func (r *SemanticIndex) Rebuild(ctx context.Context, chunks []domain.RuleChunk) error {
	records := make([]port.VectorRecord, 0, len(chunks))

	for i := 0; i < len(chunks); i += r.batchSize {
		end := i + r.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, chunk := range batch {
			texts[j] = chunk.Text
		}

		vectors, err := r.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: failed to embed chunks %d-%d: %v", domain.ErrStoreWrite, i, end-1, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: embedder returned %d vectors for %d chunks", domain.ErrStoreWrite, len(vectors), len(batch))
		}

		for j, chunk := range batch {
			records = append(records, port.VectorRecord{Chunk: chunk, Vector: vectors[j]})
		}

		if r.progress != nil {
			r.progress(end, len(chunks))
		}
	}

	meta := port.CollectionMeta{
		Model:     r.embedder.ModelName(),
		Dimension: r.embedder.Dimension(),
	}
	if err := r.collection.Replace(ctx, records, meta); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreWrite, err)
	}
	return nil
}

// Search embeds the query and returns the k most similar chunks.
func (r *SemanticIndex) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	meta, err := r.collection.Meta()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreRead, err)
	}
	if meta.Model != r.embedder.ModelName() || meta.Dimension != r.embedder.Dimension() {
		return nil, fmt.Errorf("%w: collection built with %s (%d dims), embedder is %s (%d dims); re-ingest the rulebook",
			domain.ErrStoreRead, meta.Model, meta.Dimension, r.embedder.ModelName(), r.embedder.Dimension())
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %v", domain.ErrStoreRead, err)
	}

	results, err := r.collection.Search(vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search failed: %v", domain.ErrStoreRead, err)
	}
	return results, nil
}

// Generation identifies the published collection.
func (r *SemanticIndex) Generation() uint64 {
	return r.collection.Generation()
}
