package memstore

import (
	"context"
	"testing"

	"compliance/internal/domain"
	"compliance/internal/port"
)

func TestMemoryCollectionReplace(t *testing.T) {
	c := NewMemoryCollection("pilot_rules")
	ctx := context.Background()

	if _, err := c.Search([]float32{1, 0}, 1); err == nil {
		t.Error("expected error before the first replace")
	}

	first := []port.VectorRecord{
		{Chunk: domain.RuleChunk{SectionTitle: "A"}, Vector: []float32{1, 0}},
		{Chunk: domain.RuleChunk{SectionTitle: "B", Order: 1}, Vector: []float32{0, 1}},
	}
	if err := c.Replace(ctx, first, port.CollectionMeta{Model: "m", Dimension: 2}); err != nil {
		t.Fatal(err)
	}

	results, err := c.Search([]float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.SectionTitle != "B" {
		t.Errorf("expected B, got %+v", results)
	}

	second := []port.VectorRecord{{Chunk: domain.RuleChunk{SectionTitle: "C"}, Vector: []float32{1, 1}}}
	if err := c.Replace(ctx, second, port.CollectionMeta{Model: "m", Dimension: 2}); err != nil {
		t.Fatal(err)
	}

	meta, err := c.Meta()
	if err != nil {
		t.Fatal(err)
	}
	if meta.Count != 1 || meta.Generation != 2 || meta.Name != "pilot_rules" {
		t.Errorf("unexpected meta: %+v", meta)
	}
}

func TestMemoryCollectionDimensionMismatch(t *testing.T) {
	c := NewMemoryCollection("pilot_rules")

	bad := []port.VectorRecord{{Vector: []float32{1}}}
	if err := c.Replace(context.Background(), bad, port.CollectionMeta{Dimension: 2}); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if c.Generation() != 0 {
		t.Error("expected failed replace not to publish")
	}
}
