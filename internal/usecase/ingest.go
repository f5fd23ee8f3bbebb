package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"compliance/internal/domain"
	"compliance/internal/port"
)

const (
	IngestSuccessStatus  = "success"
	IngestSuccessMessage = "Rules successfully embedded and saved locally."

	ingestLockName = "ingest"
)

// StagingCleaner removes leftovers of an interrupted rebuild.
type StagingCleaner interface {
	DiscardStaging() error
}

// IngestUseCase turns a rulebook file into the searchable rule collection.
// Only one ingestion runs at a time; a concurrent call fails fast.
type IngestUseCase struct {
	parser  port.DocumentParser
	chunker port.Chunker
	store   port.KnowledgeStore
	staging StagingCleaner
	lock    port.DistributedLock
	lockTTL time.Duration
	logger  *slog.Logger

	mu sync.Mutex
}

func NewIngestUseCase(
	parser port.DocumentParser,
	chunker port.Chunker,
	store port.KnowledgeStore,
	staging StagingCleaner,
	logger *slog.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		parser:  parser,
		chunker: chunker,
		store:   store,
		staging: staging,
		lockTTL: 10 * time.Minute,
		logger:  logger,
	}
}

// WithDistributedLock makes ingestion exclusive across processes sharing the store.
func (u *IngestUseCase) WithDistributedLock(lock port.DistributedLock, ttl time.Duration) *IngestUseCase {
	u.lock = lock
	if ttl > 0 {
		u.lockTTL = ttl
	}
	return u
}

// Ingest parses, chunks and embeds the rulebook at path, replacing the
// current collection. On any failure the current collection is untouched.
func (u *IngestUseCase) Ingest(ctx context.Context, path string) (*domain.IngestResult, error) {
	if !u.mu.TryLock() {
		return nil, fmt.Errorf("%w: another ingestion is running", domain.ErrStoreBusy)
	}
	defer u.mu.Unlock()

	if u.lock != nil {
		acquired, err := u.lock.Acquire(ctx, ingestLockName, u.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreBusy, err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: another instance is ingesting", domain.ErrStoreBusy)
		}
		defer func() {
			if err := u.lock.Release(context.WithoutCancel(ctx), ingestLockName); err != nil {
				u.logger.Warn("failed to release ingestion lock", "error", err)
			}
		}()
	}

	start := time.Now()
	logger := u.logger.With("source", path)

	if u.staging != nil {
		if err := u.staging.DiscardStaging(); err != nil {
			logger.Warn("failed to discard stale staging data", "error", err)
		}
	}

	text, err := u.parser.Parse(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrParse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	chunks, err := u.chunker.Chunk(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no top-level \"# \" headings in %d characters of text", domain.ErrNoSections, len(text))
	}
	logger.Debug("rulebook chunked", "chunks", len(chunks))

	if err := u.store.Rebuild(ctx, chunks); err != nil {
		if errors.Is(err, domain.ErrStoreWrite) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreWrite, err)
	}

	logger.Info("rulebook ingested", "chunks", len(chunks), "duration", time.Since(start))

	return &domain.IngestResult{
		Status:          IngestSuccessStatus,
		Message:         IngestSuccessMessage,
		ChunksProcessed: len(chunks),
	}, nil
}
