package badger

import (
	"context"
	"testing"
	"time"

	"github.com/perigee/recall/core"
	"github.com/perigee/recall/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheBackend_GetSet(t *testing.T) {
	cache, backend, err := NewMemoryCacheBackend("embeddings")
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	key := core.IDFromContent("some text")

	_, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, key, []byte("payload"), time.Hour))

	value, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("payload"), value)
}

func TestCacheBackend_Overwrite(t *testing.T) {
	cache, backend, err := NewMemoryCacheBackend("embeddings")
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	key := core.ID(42)

	require.NoError(t, cache.Set(ctx, key, []byte("old"), time.Hour))
	require.NoError(t, cache.Set(ctx, key, []byte("new"), time.Hour))

	value, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("new"), value)
}

func TestCacheBackend_Expiry(t *testing.T) {
	cache, backend, err := NewMemoryCacheBackend("embeddings")
	require.NoError(t, err)
	defer backend.Close()

	now := time.Now()
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	key := core.ID(1)
	require.NoError(t, cache.Set(ctx, key, []byte("payload"), time.Minute))

	// Still fresh.
	_, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)

	// Past the TTL the entry is removed lazily.
	cache.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, found, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = cache.Entry(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCacheBackend_ZeroTTLNeverExpires(t *testing.T) {
	cache, backend, err := NewMemoryCacheBackend("embeddings")
	require.NoError(t, err)
	defer backend.Close()

	now := time.Now()
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	key := core.ID(7)
	require.NoError(t, cache.Set(ctx, key, []byte("payload"), 0))

	cache.now = func() time.Time { return now.Add(1000 * time.Hour) }
	_, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCacheBackend_HitBookkeeping(t *testing.T) {
	cache, backend, err := NewMemoryCacheBackend("embeddings")
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	key := core.ID(9)
	require.NoError(t, cache.Set(ctx, key, []byte("payload"), time.Hour))

	entry, err := cache.Entry(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), entry.HitCount)

	for i := 0; i < 3; i++ {
		_, found, err := cache.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, found)
	}

	entry, err = cache.Entry(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), entry.HitCount)
	assert.False(t, entry.LastAccessed.IsZero())

	// Entry itself must not count as a hit.
	entry, err = cache.Entry(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), entry.HitCount)
}

func TestCacheBackend_Delete(t *testing.T) {
	cache, backend, err := NewMemoryCacheBackend("embeddings")
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	key := core.ID(5)
	require.NoError(t, cache.Set(ctx, key, []byte("payload"), time.Hour))
	require.NoError(t, cache.Delete(ctx, key))

	_, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	// Missing key is not an error.
	assert.NoError(t, cache.Delete(ctx, key))
}

func TestCacheBackend_ClearIsNamespaceScoped(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	embeddings := NewCacheBackend(backend, "embeddings")
	queries := NewCacheBackend(backend, "queries")

	ctx := context.Background()
	require.NoError(t, embeddings.Set(ctx, core.ID(1), []byte("vector"), 0))
	require.NoError(t, queries.Set(ctx, core.ID(1), []byte("results"), 0))

	require.NoError(t, queries.Clear(ctx))

	_, found, err := queries.Get(ctx, core.ID(1))
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = embeddings.Get(ctx, core.ID(1))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCacheBackend_Sweep(t *testing.T) {
	cache, backend, err := NewMemoryCacheBackend("embeddings")
	require.NoError(t, err)
	defer backend.Close()

	now := time.Now()
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, core.ID(1), []byte("short"), time.Minute))
	require.NoError(t, cache.Set(ctx, core.ID(2), []byte("long"), time.Hour))
	require.NoError(t, cache.Set(ctx, core.ID(3), []byte("forever"), 0))

	cache.now = func() time.Time { return now.Add(10 * time.Minute) }
	removed, err := cache.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, found, err := cache.Get(ctx, core.ID(2))
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = cache.Get(ctx, core.ID(3))
	require.NoError(t, err)
	assert.True(t, found)

	// Nothing left to remove.
	removed, err = cache.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
