package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/perigee/recall/ai/mock"
	"github.com/perigee/recall/embcache"
	"github.com/perigee/recall/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatchEmbedder(t *testing.T) {
	_, err := NewBatchEmbedder(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	b, err := NewBatchEmbedder(mock.NewEmbedder())
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, b.batchSize)
	assert.Equal(t, DefaultMaxWorkers, b.maxWorkers)
}

func TestEmbedAll_Aligned(t *testing.T) {
	embedder := mock.NewEmbedder()
	b, err := NewBatchEmbedder(embedder, WithBatchSize(2), WithMaxWorkers(2))
	require.NoError(t, err)

	texts := []string{"one", "two", "three", "four", "five"}
	vectors, stats, err := b.EmbedAll(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, text := range texts {
		want, err := embedder.EmbedText(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, want, vectors[i], "vector %d misaligned", i)
	}

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 5, stats.Succeeded)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.CacheHits)
}

func TestEmbedAll_Empty(t *testing.T) {
	b, err := NewBatchEmbedder(mock.NewEmbedder())
	require.NoError(t, err)

	vectors, stats, err := b.EmbedAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, stats.Total)
}

// poisonedEmbedder fails any batch call whose texts include "poison" and
// any single-item call for "poison" itself.
func poisonedEmbedder() *mock.Embedder {
	embedder := mock.NewEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if text == "poison" {
				return nil, errors.New("provider error")
			}
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1}
		}
		return vectors, nil
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == "poison" {
			return nil, errors.New("provider error")
		}
		return []float32{1}, nil
	}
	return embedder
}

func TestEmbedAll_ItemFailureLeavesSingleHole(t *testing.T) {
	b, err := NewBatchEmbedder(poisonedEmbedder(),
		WithBatchLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	// All five texts share one default-size batch; the failing batch call
	// degrades to single-item calls and only "poison" stays nil.
	texts := []string{"a", "b", "poison", "c", "d"}
	vectors, stats, err := b.EmbedAll(context.Background(), texts)
	require.NoError(t, err)

	for i := range texts {
		if i == 2 {
			assert.Nil(t, vectors[i])
			continue
		}
		assert.NotNil(t, vectors[i], "item %d should survive a sibling's failure", i)
	}
	assert.Equal(t, 4, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
}

func TestEmbedAll_HealthyBatchesUnaffectedByFallback(t *testing.T) {
	b, err := NewBatchEmbedder(poisonedEmbedder(),
		WithBatchSize(2),
		WithMaxWorkers(1),
		WithBatchLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	texts := []string{"a", "b", "poison", "c", "d"}
	vectors, stats, err := b.EmbedAll(context.Background(), texts)
	require.NoError(t, err)

	// Batch [poison, c] fell back to single-item calls; "c" survived.
	assert.Nil(t, vectors[2])
	assert.NotNil(t, vectors[3])
	assert.Equal(t, 4, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
}

func TestEmbedAll_CacheReuse(t *testing.T) {
	backend, db, err := badger.NewMemoryCacheBackend("embeddings")
	require.NoError(t, err)
	defer db.Close()

	embedder := mock.NewEmbedder()
	cache := embcache.New(backend, embedder.Model())
	b, err := NewBatchEmbedder(embedder, WithCache(cache), WithBatchSize(4))
	require.NoError(t, err)

	ctx := context.Background()
	texts := []string{"alpha", "beta", "gamma"}

	_, stats, err := b.EmbedAll(ctx, texts)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Succeeded)
	assert.Zero(t, stats.CacheHits)
	firstCalls := embedder.CallCount()

	// Second run is served entirely from the cache.
	vectors, stats, err := b.EmbedAll(ctx, texts)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.CacheHits)
	assert.Zero(t, stats.Succeeded)
	assert.Equal(t, firstCalls, embedder.CallCount())
	for _, v := range vectors {
		assert.NotNil(t, v)
	}
}

func TestEmbedAll_ManyBatches(t *testing.T) {
	embedder := mock.NewEmbedder()
	b, err := NewBatchEmbedder(embedder, WithBatchSize(3), WithMaxWorkers(4))
	require.NoError(t, err)

	texts := make([]string, 50)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
	}

	vectors, stats, err := b.EmbedAll(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, 50, stats.Succeeded)
	for i := range vectors {
		require.NotNil(t, vectors[i])
	}
}
