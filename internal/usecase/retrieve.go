package usecase

import (
	"context"
	"strings"

	"compliance/internal/domain"
	"compliance/internal/port"
)

// ContextSeparator joins retrieved rule texts.
const ContextSeparator = "\n\n"

// RetrieveUseCase finds the rule sections relevant to a question and schedule.
type RetrieveUseCase struct {
	store       port.KnowledgeStore
	topK        int
	prefixChars int
}

func NewRetrieveUseCase(store port.KnowledgeStore, topK, prefixChars int) *RetrieveUseCase {
	if topK <= 0 {
		topK = 5
	}
	if prefixChars <= 0 {
		prefixChars = 500
	}
	return &RetrieveUseCase{
		store:       store,
		topK:        topK,
		prefixChars: prefixChars,
	}
}

// Retrieve returns the matched chunks and their texts joined into one context.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query, schedule string) (string, []domain.ScoredChunk, error) {
	results, err := u.store.Search(ctx, SearchString(query, schedule, u.prefixChars), u.topK)
	if err != nil {
		return "", nil, err
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	return strings.Join(texts, ContextSeparator), results, nil
}

// Search runs a raw query against the store.
func (u *RetrieveUseCase) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		k = u.topK
	}
	return u.store.Search(ctx, query, k)
}

// SearchString builds the retrieval query: the question followed by the
// first prefixChars characters of the schedule.
func SearchString(query, schedule string, prefixChars int) string {
	if schedule == "" {
		return query
	}
	runes := []rune(schedule)
	if len(runes) > prefixChars {
		runes = runes[:prefixChars]
	}
	return query + " " + string(runes)
}
