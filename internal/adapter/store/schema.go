package store

import (
	"encoding/json"
	"fmt"
	"time"

	"compliance/internal/port"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// collectionInfo is stored next to the records of a collection.
type collectionInfo struct {
	Version    int       `json:"version"`
	Name       string    `json:"name"`
	Model      string    `json:"model"`
	Dimension  int       `json:"dimension"`
	Count      int       `json:"count"`
	Generation uint64    `json:"generation"`
	CreatedAt  time.Time `json:"created_at"`
}

func newCollectionInfo(name, model string, dimension, count int, generation uint64) *collectionInfo {
	return &collectionInfo{
		Version:    CurrentSchemaVersion,
		Name:       name,
		Model:      model,
		Dimension:  dimension,
		Count:      count,
		Generation: generation,
		CreatedAt:  time.Now().UTC(),
	}
}

func decodeInfo(data []byte) (*collectionInfo, error) {
	if data == nil {
		return nil, fmt.Errorf("collection info missing")
	}

	var info collectionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("corrupt collection info: %w", err)
	}

	if info.Version > CurrentSchemaVersion {
		return nil, fmt.Errorf("collection created by newer version (v%d > v%d), re-ingest the rulebook", info.Version, CurrentSchemaVersion)
	}
	return &info, nil
}

func (i *collectionInfo) meta() port.CollectionMeta {
	return port.CollectionMeta{
		Name:       i.Name,
		Model:      i.Model,
		Dimension:  i.Dimension,
		Count:      i.Count,
		Generation: i.Generation,
	}
}
