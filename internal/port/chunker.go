package port

import "compliance/internal/domain"

// Chunker splits a parsed rulebook into ordered sections.
type Chunker interface {
	Chunk(document string) ([]domain.RuleChunk, error)
}
