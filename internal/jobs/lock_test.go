package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgredis "github.com/angelmondragon/marketcart/pkg/redis"
)

func newTestStore(t *testing.T) (*pkgredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = raw.Close() })
	return pkgredis.Wrap(raw), mr
}

func TestRedisLockIsExclusive(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	first, err := NewRedisLock(store, "mc:scheduler:lock", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "mc:scheduler:lock", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockLeavesForeignLeaseAlone(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	lock, err := NewRedisLock(store, "mc:scheduler:lock", time.Second)
	require.NoError(t, err)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// lease expires and another replica takes it
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("mc:scheduler:lock", "other-replica"))

	require.NoError(t, lock.Release(ctx))
	got, err := mr.Get("mc:scheduler:lock")
	require.NoError(t, err)
	assert.Equal(t, "other-replica", got)
}

func TestRedisLockReleaseWithoutAcquire(t *testing.T) {
	store, _ := newTestStore(t)
	lock, err := NewRedisLock(store, "k", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, lock.Release(context.Background()))
}

func TestRedisLockReleaseKeepsReplacedLease(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	lock, err := NewRedisLock(store, "mc:scheduler:lock", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, mr.Set("mc:scheduler:lock", "other-replica"))
	require.NoError(t, lock.Release(ctx))
	got, err := mr.Get("mc:scheduler:lock")
	require.NoError(t, err)
	assert.Equal(t, "other-replica", got)

	// a second release is a no-op
	require.NoError(t, lock.Release(ctx))
	assert.True(t, mr.Exists("mc:scheduler:lock"))
}

func TestCompareAndDelete(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("k", "mine"))

	deleted, err := store.CompareAndDelete(ctx, "k", "theirs")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.True(t, mr.Exists("k"))

	deleted, err = store.CompareAndDelete(ctx, "k", "mine")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists("k"))
}
