package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"compliance/internal/domain"
	"compliance/internal/port"
)

var (
	bucketRecords = []byte("records")
	keyInfo       = []byte("info")
)

// StagingSuffix is appended to the collection path for the file a rebuild
// writes before it is published.
const StagingSuffix = ".staging"

// BoltCollection implements port.VectorCollection on a single bbolt file.
// The published file is held in memory and searches never read it from disk.
// A rebuild writes a staging file and renames it over the published one.
// Several instances may share one path: every read checks the published
// file's identity and reloads when another instance has replaced it.
type BoltCollection struct {
	path    string
	name    string
	timeout time.Duration

	mu      sync.RWMutex
	records []port.VectorRecord
	info    *collectionInfo
	loaded  os.FileInfo // identity of the file records came from; nil if none
}

type storedRecord struct {
	Title  string    `json:"t"`
	Text   string    `json:"x"`
	Order  int       `json:"o"`
	Vector []float32 `json:"v"`
}

// NewBoltCollection opens the collection stored at path. A missing file is
// not an error; the collection is simply empty until the first Replace.
func NewBoltCollection(path, name string) (*BoltCollection, error) {
	c := &BoltCollection{
		path:    path,
		name:    name,
		timeout: 5 * time.Second,
	}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the published file location.
func (c *BoltCollection) Path() string {
	return c.path
}

func (c *BoltCollection) stagingPath() string {
	return c.path + StagingSuffix
}

// Replace implements port.VectorCollection.
func (c *BoltCollection) Replace(ctx context.Context, records []port.VectorRecord, meta port.CollectionMeta) error {
	staging := c.stagingPath()
	if err := os.Remove(staging); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear staging file: %w", err)
	}

	info := newCollectionInfo(c.name, meta.Model, meta.Dimension, len(records), c.Generation()+1)

	if err := writeStaging(ctx, staging, c.name, info, records); err != nil {
		os.Remove(staging)
		return err
	}

	if err := verifyStaging(staging, c.name, len(records)); err != nil {
		os.Remove(staging)
		return err
	}

	if err := ctx.Err(); err != nil {
		os.Remove(staging)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Rename(staging, c.path); err != nil {
		os.Remove(staging)
		return fmt.Errorf("failed to publish collection: %w", err)
	}

	// The new file is published at this point. If it cannot be read back,
	// loadLocked leaves the collection unloaded and the next read retries
	// and reports the failure.
	_ = c.loadLocked()
	return nil
}

func writeStaging(ctx context.Context, path, name string, info *collectionInfo, records []port.VectorRecord) error {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open staging db: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucket([]byte(name))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}

		infoData, err := json.Marshal(info)
		if err != nil {
			return err
		}
		if err := root.Put(keyInfo, infoData); err != nil {
			return err
		}

		b, err := root.CreateBucket(bucketRecords)
		if err != nil {
			return err
		}

		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(rec.Vector) != info.Dimension {
				return fmt.Errorf("vector dimension mismatch: expected %d, got %d", info.Dimension, len(rec.Vector))
			}
			data, err := json.Marshal(storedRecord{
				Title:  rec.Chunk.SectionTitle,
				Text:   rec.Chunk.Text,
				Order:  rec.Chunk.Order,
				Vector: rec.Vector,
			})
			if err != nil {
				return err
			}
			if err := b.Put(recordKey(i), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func verifyStaging(path, name string, want int) error {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to reopen staging db: %w", err)
	}
	defer db.Close()

	return db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(name))
		if root == nil {
			return fmt.Errorf("staged collection %s missing", name)
		}
		got := root.Bucket(bucketRecords).Stats().KeyN
		if got != want {
			return fmt.Errorf("staged %d records, expected %d", got, want)
		}
		return nil
	})
}

func recordKey(i int) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, uint32(i))
	return key
}

func (c *BoltCollection) reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

// refresh reloads the collection when the published file is not the one
// held in memory.
func (c *BoltCollection) refresh() error {
	current, err := os.Stat(c.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat collection: %w", err)
	}

	c.mu.RLock()
	fresh := sameFile(c.loaded, current)
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if sameFile(c.loaded, current) {
		return nil
	}
	return c.loadLocked()
}

// sameFile compares inode, size and mtime. A publish always renames a new
// file into place, so any publish changes at least the inode.
func sameFile(a, b os.FileInfo) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return os.SameFile(a, b) && a.Size() == b.Size() && a.ModTime().Equal(b.ModTime())
}

// loadLocked reads the published file into memory. Callers hold the write
// lock. On failure nothing stays loaded, so reads fail instead of serving
// a collection that is no longer published.
func (c *BoltCollection) loadLocked() error {
	c.records = nil
	c.info = nil
	c.loaded = nil

	// Stat before opening: if the file is replaced in between, the newer
	// content is loaded under the older identity and simply reloaded again.
	current, err := os.Stat(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat collection: %w", err)
	}

	db, err := bbolt.Open(c.path, 0600, &bbolt.Options{Timeout: c.timeout, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}
	defer db.Close()

	var (
		info    *collectionInfo
		records []port.VectorRecord
	)
	err = db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(c.name))
		if root == nil {
			return nil
		}

		decoded, err := decodeInfo(root.Get(keyInfo))
		if err != nil {
			return err
		}
		info = decoded

		b := root.Bucket(bucketRecords)
		if b == nil {
			return fmt.Errorf("collection %s has no records bucket", c.name)
		}
		records = make([]port.VectorRecord, 0, info.Count)
		return b.ForEach(func(k, v []byte) error {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt record %x: %w", k, err)
			}
			records = append(records, port.VectorRecord{
				Chunk: domain.RuleChunk{
					SectionTitle: stored.Title,
					Text:         stored.Text,
					Order:        stored.Order,
				},
				Vector: stored.Vector,
			})
			return nil
		})
	})
	if err != nil {
		return err
	}

	c.info = info
	c.records = records
	c.loaded = current
	return nil
}

// Search implements port.VectorCollection.
func (c *BoltCollection) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	if err := c.refresh(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.info == nil {
		return nil, fmt.Errorf("collection %s not found", c.name)
	}
	if len(query) != c.info.Dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", c.info.Dimension, len(query))
	}

	return Rank(query, c.records, k), nil
}

// Meta implements port.VectorCollection.
func (c *BoltCollection) Meta() (port.CollectionMeta, error) {
	if err := c.refresh(); err != nil {
		return port.CollectionMeta{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.info == nil {
		return port.CollectionMeta{}, fmt.Errorf("collection %s not found", c.name)
	}
	return c.info.meta(), nil
}

// Records implements port.VectorCollection.
func (c *BoltCollection) Records() ([]port.VectorRecord, error) {
	if err := c.refresh(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.info == nil {
		return nil, fmt.Errorf("collection %s not found", c.name)
	}
	out := make([]port.VectorRecord, len(c.records))
	copy(out, c.records)
	return out, nil
}

// Generation implements port.VectorCollection. It reports 0 while the
// published file cannot be loaded.
func (c *BoltCollection) Generation() uint64 {
	_ = c.refresh()

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.info == nil {
		return 0
	}
	return c.info.Generation
}

// DiscardStaging implements port.VectorCollection.
func (c *BoltCollection) DiscardStaging() error {
	err := os.Remove(c.stagingPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
