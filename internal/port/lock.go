package port

import (
	"context"
	"time"
)

// DistributedLock coordinates ingestion across processes sharing one store.
type DistributedLock interface {
	// Acquire attempts to take the named lock for ttl.
	// Returns false if another holder owns it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)

	// Release drops the named lock if held by this instance.
	Release(ctx context.Context, name string) error
}
