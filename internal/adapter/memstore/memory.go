package memstore

import (
	"context"
	"fmt"
	"sync"

	"compliance/internal/adapter/store"
	"compliance/internal/domain"
	"compliance/internal/port"
)

// MemoryCollection is a port.VectorCollection held entirely in memory.
// It backs the "memory" store path and tests.
type MemoryCollection struct {
	mu         sync.RWMutex
	name       string
	records    []port.VectorRecord
	meta       *port.CollectionMeta
	generation uint64
}

func NewMemoryCollection(name string) *MemoryCollection {
	return &MemoryCollection{name: name}
}

func (s *MemoryCollection) Replace(ctx context.Context, records []port.VectorRecord, meta port.CollectionMeta) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	staged := make([]port.VectorRecord, len(records))
	for i, rec := range records {
		if len(rec.Vector) != meta.Dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", meta.Dimension, len(rec.Vector))
		}
		staged[i] = rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	meta.Name = s.name
	meta.Count = len(staged)
	meta.Generation = s.generation
	s.records = staged
	s.meta = &meta
	return nil
}

func (s *MemoryCollection) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.meta == nil {
		return nil, fmt.Errorf("collection %s not found", s.name)
	}
	if len(query) != s.meta.Dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.meta.Dimension, len(query))
	}
	return store.Rank(query, s.records, k), nil
}

func (s *MemoryCollection) Meta() (port.CollectionMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.meta == nil {
		return port.CollectionMeta{}, fmt.Errorf("collection %s not found", s.name)
	}
	return *s.meta, nil
}

func (s *MemoryCollection) Records() ([]port.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.meta == nil {
		return nil, fmt.Errorf("collection %s not found", s.name)
	}
	out := make([]port.VectorRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryCollection) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *MemoryCollection) DiscardStaging() error {
	return nil
}
