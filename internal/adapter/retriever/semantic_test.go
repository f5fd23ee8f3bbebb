package retriever

import (
	"context"
	"errors"
	"testing"

	"compliance/internal/adapter/embedding"
	"compliance/internal/adapter/memstore"
	"compliance/internal/domain"
)

type failingEmbedder struct {
	*embedding.HashEmbedder
}

func (f failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding service down")
}

func testChunks() []domain.RuleChunk {
	return []domain.RuleChunk{
		{SectionTitle: "Duty", Text: "# Duty\nflight duty period limit thirteen hours", Order: 0},
		{SectionTitle: "Rest", Text: "# Rest\nminimum rest ten hours before duty", Order: 1},
		{SectionTitle: "Alcohol", Text: "# Alcohol\nno alcohol eight hours before flight", Order: 2},
	}
}

func TestSemanticIndexRebuildAndSearch(t *testing.T) {
	collection := memstore.NewMemoryCollection("pilot_rules")
	index := NewSemanticIndex(embedding.NewHashEmbedder(256), collection, 2)

	var progress [][2]int
	index.SetProgress(func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})

	ctx := context.Background()
	if err := index.Rebuild(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}

	if len(progress) != 2 || progress[1] != [2]int{3, 3} {
		t.Errorf("unexpected progress reports: %v", progress)
	}
	if index.Generation() != 1 {
		t.Errorf("expected generation 1, got %d", index.Generation())
	}

	results, err := index.Search(ctx, "alcohol before flight", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Chunk.SectionTitle != "Alcohol" {
		t.Errorf("expected Alcohol first, got %+v", results)
	}
}

func TestSemanticIndexEmbedFailure(t *testing.T) {
	collection := memstore.NewMemoryCollection("pilot_rules")
	index := NewSemanticIndex(failingEmbedder{embedding.NewHashEmbedder(64)}, collection, 0)

	err := index.Rebuild(context.Background(), testChunks())
	if !errors.Is(err, domain.ErrStoreWrite) {
		t.Fatalf("expected ErrStoreWrite, got %v", err)
	}
	if collection.Generation() != 0 {
		t.Error("expected no collection to be published")
	}
}

func TestSemanticIndexModelMismatch(t *testing.T) {
	collection := memstore.NewMemoryCollection("pilot_rules")
	ctx := context.Background()

	if err := NewSemanticIndex(embedding.NewHashEmbedder(128), collection, 0).Rebuild(ctx, testChunks()); err != nil {
		t.Fatal(err)
	}

	_, err := NewSemanticIndex(embedding.NewHashEmbedder(256), collection, 0).Search(ctx, "rest", 5)
	if !errors.Is(err, domain.ErrStoreRead) {
		t.Fatalf("expected ErrStoreRead for a dimension mismatch, got %v", err)
	}
}

func TestSemanticIndexNoCollection(t *testing.T) {
	index := NewSemanticIndex(embedding.NewHashEmbedder(64), memstore.NewMemoryCollection("pilot_rules"), 0)

	_, err := index.Search(context.Background(), "rest", 5)
	if !errors.Is(err, domain.ErrStoreRead) {
		t.Fatalf("expected ErrStoreRead, got %v", err)
	}
}
