package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/redis/go-redis/v9"

	"compliance/config"
	"compliance/internal/adapter/cache"
	"compliance/internal/adapter/chunker"
	"compliance/internal/adapter/embedding"
	"compliance/internal/adapter/llm"
	"compliance/internal/adapter/lock"
	"compliance/internal/adapter/memstore"
	"compliance/internal/adapter/parser"
	"compliance/internal/adapter/retriever"
	"compliance/internal/adapter/store"
	"compliance/internal/port"
	"compliance/internal/usecase"
)

// components holds everything built from one configuration.
type components struct {
	collection port.VectorCollection
	index      *retriever.SemanticIndex
	store      *cache.CachedStore

	ingest *usecase.IngestUseCase
	check  *usecase.CheckUseCase

	genaiClient *genai.Client
	redisClient *redis.Client
}

type buildOptions struct {
	// reasoner is needed for checks and for model-based PDF parsing.
	reasoner bool
	ingest   bool
}

func buildComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts buildOptions) (*components, error) {
	c := &components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	collection, err := openCollection(cfg)
	if err != nil {
		return nil, err
	}
	c.collection = collection

	needGenai := cfg.Embedding.Provider == "gemini" ||
		opts.reasoner ||
		(opts.ingest && cfg.Parser.Provider == "model")
	if needGenai {
		keyEnv := cfg.Reasoning.APIKeyEnv
		if !opts.reasoner && !opts.ingest {
			keyEnv = cfg.Embedding.APIKeyEnv
		}
		apiKey, err := config.APIKey(keyEnv)
		if err != nil {
			return nil, err
		}
		c.genaiClient, err = llm.NewGeminiClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
	}

	embedder, err := newEmbedder(cfg.Embedding, c.genaiClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	c.index = retriever.NewSemanticIndex(embedder, collection, cfg.Embedding.BatchSize)
	c.store = cache.NewCachedStore(c.index, cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL))

	var reasoner port.Reasoner
	if c.genaiClient != nil {
		reasoner = llm.NewGeminiReasoner(c.genaiClient, llm.GeminiConfig{
			Model:       cfg.Reasoning.Model,
			Temperature: cfg.Reasoning.Temperature,
			RPM:         cfg.Reasoning.RPM,
			Timeout:     cfg.Reasoning.Timeout,
		}, logger)
	}

	if opts.ingest {
		docParser, err := newDocumentParser(cfg.Parser, reasoner)
		if err != nil {
			return nil, err
		}
		c.ingest = usecase.NewIngestUseCase(
			docParser,
			chunker.NewHeadingChunker(cfg.Chunker.KeepPreamble),
			c.store,
			collection,
			logger,
		)

		if cfg.Lock.RedisAddr != "" {
			c.redisClient, err = lock.NewRedisClient(ctx, cfg.Lock.RedisAddr, cfg.Lock.RedisPassword)
			if err != nil {
				return nil, err
			}
			c.ingest.WithDistributedLock(lock.NewRedisLock(c.redisClient), cfg.Lock.TTL)
		}
	}

	if opts.reasoner {
		c.check = usecase.NewCheckUseCase(
			usecase.NewScheduleExtractor(reasoner, logger),
			usecase.NewRetrieveUseCase(c.store, cfg.Retrieve.TopK, cfg.Retrieve.SchedulePrefixChars),
			usecase.NewComplianceReasoner(reasoner, logger),
			cfg.Check.MaxFiles,
			logger,
		)
	}

	ok = true
	return c, nil
}

func (c *components) Close() {
	if c.genaiClient != nil {
		c.genaiClient.Close()
	}
	if c.redisClient != nil {
		c.redisClient.Close()
	}
}

func openCollection(cfg *config.Config) (port.VectorCollection, error) {
	if cfg.Store.Path == "memory" {
		return memstore.NewMemoryCollection(cfg.Store.Collection), nil
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}
	collection, err := store.NewBoltCollection(cfg.Store.Path, cfg.Store.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule collection: %w", err)
	}
	return collection, nil
}

func newEmbedder(cfg config.EmbeddingConfig, client *genai.Client) (port.Embedder, error) {
	switch cfg.Provider {
	case "gemini":
		return embedding.NewGeminiEmbedder(client, cfg.Model, cfg.Dimension, cfg.BatchSize), nil
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return e.WithDimension(cfg.Dimension), nil
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Model, cfg.BaseURL).WithDimension(cfg.Dimension), nil
	case "local":
		return embedding.NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// newDocumentParser routes markdown and text files to the plain parser and
// PDFs to either the model transcriber or the local extractor.
func newDocumentParser(cfg config.ParserConfig, reasoner port.Reasoner) (port.DocumentParser, error) {
	text := parser.NewTextParser()
	router := parser.NewRouter(text).Register(text, ".md", ".markdown", ".txt")

	switch cfg.Provider {
	case "model":
		router.Register(parser.NewModelParser(reasoner), ".pdf")
	case "local":
		pdf, err := parser.NewPDFParser(cfg.HeadingPattern)
		if err != nil {
			return nil, err
		}
		router.Register(pdf, ".pdf")
	default:
		return nil, fmt.Errorf("unsupported parser provider: %s", cfg.Provider)
	}
	return router, nil
}
