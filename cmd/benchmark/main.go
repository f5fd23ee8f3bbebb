package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"compliance/config"
	"compliance/internal/adapter/embedding"
	"compliance/internal/adapter/llm"
	"compliance/internal/adapter/retriever"
	"compliance/internal/adapter/store"
	"compliance/internal/port"
)

// benchmark searches the collection with every stored section's own text
// and reports how often that section comes back first.
func main() {
	dir := flag.String("dir", ".", "Directory holding compliance.yaml")
	topK := flag.Int("k", 5, "Number of results per probe")
	verbose := flag.Bool("v", false, "Print every miss")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	collection, err := store.NewBoltCollection(cfg.Store.Path, cfg.Store.Collection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening collection: %v\n", err)
		os.Exit(1)
	}

	records, err := collection.Records()
	if err != nil || len(records) == 0 {
		fmt.Fprintf(os.Stderr, "No rules ingested at %s - run 'compliance ingest' first\n", cfg.Store.Path)
		os.Exit(1)
	}
	meta, _ := collection.Meta()

	embedder, err := setupEmbedder(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder not available: %v\n", err)
		os.Exit(1)
	}
	index := retriever.NewSemanticIndex(embedder, collection, cfg.Embedding.BatchSize)

	fmt.Println("RETRIEVAL SELF-CONSISTENCY BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Collection: %s (generation %d)\n", meta.Name, meta.Generation)
	fmt.Printf("Sections:   %d\n", meta.Count)
	fmt.Printf("Model:      %s (%d dimensions)\n", meta.Model, meta.Dimension)
	fmt.Println(strings.Repeat("-", 70))

	top1, inTopK := 0, 0
	totalScore := 0.0
	for _, r := range records {
		results, err := index.Search(ctx, r.Chunk.Text, *topK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
			os.Exit(1)
		}
		if len(results) == 0 {
			continue
		}
		totalScore += results[0].Score

		rank := -1
		for i, res := range results {
			if res.Chunk.Order == r.Chunk.Order {
				rank = i
				break
			}
		}
		switch {
		case rank == 0:
			top1++
			inTopK++
		case rank > 0:
			inTopK++
		}
		if rank != 0 && *verbose {
			fmt.Printf("MISS #%d %q -> #%d %q (%.3f)\n",
				r.Chunk.Order, r.Chunk.SectionTitle,
				results[0].Chunk.Order, results[0].Chunk.SectionTitle, results[0].Score)
		}
	}

	n := float64(len(records))
	hitRate := float64(top1) / n
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Top-1 hit rate:     %.3f (%d/%d)\n", hitRate, top1, len(records))
	fmt.Printf("  Top-%d hit rate:     %.3f\n", *topK, float64(inTopK)/n)
	fmt.Printf("  Average top score:  %.3f\n", totalScore/n)

	switch {
	case hitRate >= 0.95:
		fmt.Println("  Status: GOOD - every section retrieves itself")
	case hitRate >= 0.8:
		fmt.Println("  Status: OK - some sections are near-duplicates")
	default:
		fmt.Println("  Status: POOR - check the embedding model or re-ingest")
	}
}

func setupEmbedder(ctx context.Context, cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "gemini":
		apiKey, err := config.APIKey(cfg.Embedding.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		client, err := llm.NewGeminiClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		return embedding.NewGeminiEmbedder(client, cfg.Embedding.Model, cfg.Embedding.Dimension, cfg.Embedding.BatchSize), nil
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL)
		if err != nil {
			return nil, err
		}
		return e.WithDimension(cfg.Embedding.Dimension), nil
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL).WithDimension(cfg.Embedding.Dimension), nil
	case "local":
		return embedding.NewHashEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Embedding.Provider)
	}
}
