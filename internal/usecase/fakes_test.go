package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"compliance/internal/adapter/chunker"
	"compliance/internal/adapter/embedding"
	"compliance/internal/adapter/memstore"
	"compliance/internal/adapter/retriever"
	"compliance/internal/domain"
	"compliance/internal/port"
)

type reasonerCall struct {
	prompt      string
	attachments []domain.EvidenceFile
}

// fakeReasoner replies with scripted responses in order.
type fakeReasoner struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     []reasonerCall
}

func (f *fakeReasoner) Generate(ctx context.Context, prompt string, attachments ...domain.EvidenceFile) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.calls)
	f.calls = append(f.calls, reasonerCall{prompt: prompt, attachments: attachments})

	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", nil
}

func (f *fakeReasoner) ModelName() string { return "fake-reasoner" }

func (f *fakeReasoner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// mapParser returns documents keyed by path.
type mapParser struct {
	docs    map[string]string
	block   chan struct{}
	started chan struct{}
}

func (p *mapParser) Parse(ctx context.Context, path string) (string, error) {
	if p.started != nil {
		close(p.started)
	}
	if p.block != nil {
		<-p.block
	}
	doc, ok := p.docs[path]
	if !ok {
		return "", errors.New("file not found")
	}
	return doc, nil
}

// countingStore wraps a knowledge store and counts calls.
type countingStore struct {
	inner      port.KnowledgeStore
	rebuilds   int
	searches   int
	lastQuery  string
	rebuildErr error
}

func (s *countingStore) Rebuild(ctx context.Context, chunks []domain.RuleChunk) error {
	s.rebuilds++
	if s.rebuildErr != nil {
		return s.rebuildErr
	}
	return s.inner.Rebuild(ctx, chunks)
}

func (s *countingStore) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	s.searches++
	s.lastQuery = query
	return s.inner.Search(ctx, query, k)
}

func (s *countingStore) Generation() uint64 {
	return s.inner.Generation()
}

type fakeLock struct {
	held     bool
	released int
}

func (l *fakeLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLock) Release(ctx context.Context, name string) error {
	l.held = false
	l.released++
	return nil
}

// testStack wires the real chunker, semantic index and in-memory collection
// with the offline embedder.
type testStack struct {
	parser     *mapParser
	collection *memstore.MemoryCollection
	store      *countingStore
	ingest     *IngestUseCase
}

func newTestStack(docs map[string]string) *testStack {
	collection := memstore.NewMemoryCollection("pilot_rules")
	index := retriever.NewSemanticIndex(embedding.NewHashEmbedder(512), collection, 4)
	store := &countingStore{inner: index}
	parser := &mapParser{docs: docs}

	return &testStack{
		parser:     parser,
		collection: collection,
		store:      store,
		ingest:     NewIngestUseCase(parser, chunker.NewHeadingChunker(false), store, collection, nil),
	}
}

func rulebook(sections ...string) string {
	var sb strings.Builder
	sb.WriteString("Foreword that is not a section.\n\n")
	for _, s := range sections {
		sb.WriteString("# ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	return sb.String()
}
