package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLock_AcquireAndRelease(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client)
	second := NewRedisLock(client)
	require.NotEqual(t, first.OwnerID(), second.OwnerID())

	ok, err := first.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock should be held by the first owner")

	require.NoError(t, second.Release(ctx, "ingest"))
	ok, err = second.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "release by a non-owner must not free the lock")

	require.NoError(t, first.Release(ctx, "ingest"))
	ok, err = second.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_Expires(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client)
	second := NewRedisLock(client)

	ok, err := first.Acquire(ctx, "ingest", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)

	ok, err = second.Acquire(ctx, "ingest", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock should be acquirable")
}

func TestRedisLock_ReleaseNotHeld(t *testing.T) {
	_, client := setupTestRedis(t)

	assert.NoError(t, NewRedisLock(client).Release(context.Background(), "missing"))
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := NewRedisClient(context.Background(), mr.Addr(), "")
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), mr.Addr(), "")
	assert.Error(t, err)
}
