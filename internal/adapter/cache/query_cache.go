package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"compliance/internal/domain"
	"compliance/internal/port"
)

// QueryCache is a small LRU of search results with a TTL. Entries remember
// the store generation they were computed against and are dropped once the
// store publishes a new collection.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	results    []domain.ScoredChunk
	timestamp  time.Time
	generation uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(query string, topK int) string {
	hash := sha256.Sum256([]byte(strconv.Itoa(topK) + "\x00" + query))
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(query string, topK int, generation uint64) ([]domain.ScoredChunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topK)
	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl || entry.generation != generation {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return entry.results, true
}

func (c *QueryCache) Put(query string, topK int, generation uint64, results []domain.ScoredChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topK)
	entry := &cacheEntry{
		results:    results,
		timestamp:  time.Now(),
		generation: generation,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachedStore wraps a knowledge store with a query cache. Rebuilding through
// it invalidates the cache.
type CachedStore struct {
	store port.KnowledgeStore
	cache *QueryCache
}

func NewCachedStore(store port.KnowledgeStore, cache *QueryCache) *CachedStore {
	return &CachedStore{
		store: store,
		cache: cache,
	}
}

func (s *CachedStore) Rebuild(ctx context.Context, chunks []domain.RuleChunk) error {
	err := s.store.Rebuild(ctx, chunks)
	s.cache.Invalidate()
	return err
}

func (s *CachedStore) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	generation := s.store.Generation()
	if results, hit := s.cache.Get(query, k, generation); hit {
		return results, nil
	}

	results, err := s.store.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	s.cache.Put(query, k, generation, results)
	return results, nil
}

func (s *CachedStore) Generation() uint64 {
	return s.store.Generation()
}

func (s *CachedStore) Invalidate() {
	s.cache.Invalidate()
}
