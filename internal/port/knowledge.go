package port

import (
	"context"

	"compliance/internal/domain"
)

// KnowledgeStore holds the embedded rulebook sections.
type KnowledgeStore interface {
	// Rebuild replaces the whole collection with the given chunks.
	Rebuild(ctx context.Context, chunks []domain.RuleChunk) error

	// Search returns the k chunks most similar to query, best first.
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)

	// Generation identifies the currently published collection.
	Generation() uint64
}
