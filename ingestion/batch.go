package ingestion

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/perigee/recall/ai"
	"github.com/perigee/recall/embcache"
)

const (
	// DefaultBatchSize is the number of texts embedded per provider call.
	DefaultBatchSize = 64

	// DefaultMaxWorkers caps how many batches are embedded concurrently.
	DefaultMaxWorkers = 8
)

// BatchStats summarizes a batch embedding run.
type BatchStats struct {
	Total     int
	Succeeded int
	Failed    int
	CacheHits int
	Duration  time.Duration
}

// Throughput returns embedded texts per second.
func (s BatchStats) Throughput() float64 {
	secs := s.Duration.Seconds()
	if secs == 0 {
		return 0
	}
	return float64(s.Succeeded) / secs
}

// BatchEmbedder embeds large slices of text by splitting them into batches
// and running the batches on a worker pool. Cached vectors are reused and
// only misses reach the provider.
type BatchEmbedder struct {
	embedder   ai.Embedder
	cache      *embcache.Cache
	batchSize  int
	maxWorkers int
	logger     *slog.Logger
}

// BatchOption configures a BatchEmbedder.
type BatchOption func(*BatchEmbedder)

// WithBatchSize sets how many texts go into a single provider call.
func WithBatchSize(size int) BatchOption {
	return func(b *BatchEmbedder) {
		if size >= 1 {
			b.batchSize = size
		}
	}
}

// WithMaxWorkers sets the worker pool size.
func WithMaxWorkers(workers int) BatchOption {
	return func(b *BatchEmbedder) {
		if workers >= 1 {
			b.maxWorkers = workers
		}
	}
}

// WithCache routes embedding lookups through an embedding cache.
func WithCache(cache *embcache.Cache) BatchOption {
	return func(b *BatchEmbedder) {
		b.cache = cache
	}
}

// WithBatchLogger sets a custom logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchEmbedder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatchEmbedder creates a batch embedder around the given embedder.
func NewBatchEmbedder(embedder ai.Embedder, opts ...BatchOption) (*BatchEmbedder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	b := &BatchEmbedder{
		embedder:   embedder,
		batchSize:  DefaultBatchSize,
		maxWorkers: DefaultMaxWorkers,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// EmbedAll embeds every text and returns vectors aligned with the input:
// result[i] is the vector for texts[i], or nil if embedding it failed.
// A failing batch call falls back to single-item calls, so one bad text
// leaves a hole only at its own index. Failed items are logged and never
// retried here; callers decide whether the holes matter.
func (b *BatchEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, BatchStats, error) {
	return b.embedAll(ctx, texts, nil)
}

func (b *BatchEmbedder) embedAll(ctx context.Context, texts []string, tracker *ProgressTracker) ([][]float32, BatchStats, error) {
	start := time.Now()
	stats := BatchStats{Total: len(texts)}
	vectors := make([][]float32, len(texts))
	if len(texts) == 0 {
		return vectors, stats, nil
	}

	pool, err := ants.NewPool(b.maxWorkers)
	if err != nil {
		return nil, stats, err
	}
	defer pool.Release()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for offset := 0; offset < len(texts); offset += b.batchSize {
		end := min(offset+b.batchSize, len(texts))
		batchStart, batchEnd := offset, end

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			hits, embedded := b.embedBatch(ctx, texts[batchStart:batchEnd], vectors[batchStart:batchEnd])
			mu.Lock()
			stats.CacheHits += hits
			stats.Succeeded += embedded
			stats.Failed += (batchEnd - batchStart) - hits - embedded
			mu.Unlock()
			if tracker != nil {
				tracker.Increment(batchEnd - batchStart)
			}
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, stats, submitErr
		}
	}

	wg.Wait()
	stats.Duration = time.Since(start)
	return vectors, stats, nil
}

// embedBatch fills out[i] for each text in the batch, consulting the cache
// first. Returns how many came from the cache and how many were embedded.
func (b *BatchEmbedder) embedBatch(ctx context.Context, texts []string, out [][]float32) (hits, embedded int) {
	missTexts := make([]string, 0, len(texts))
	missIndexes := make([]int, 0, len(texts))

	for i, text := range texts {
		if b.cache != nil {
			if vector, ok := b.cache.Get(ctx, text); ok {
				out[i] = vector
				hits++
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}

	if len(missTexts) == 0 {
		return hits, 0
	}

	vectors, err := b.embedder.EmbedTexts(ctx, missTexts)
	if err != nil {
		b.logger.Warn("batch embedding failed, falling back to single-item calls",
			"texts", len(missTexts), "err", err)
		return hits, b.embedSingly(ctx, missTexts, missIndexes, out)
	}
	if len(vectors) != len(missTexts) {
		b.logger.Warn("embedding result mismatch, falling back to single-item calls",
			"expected", len(missTexts), "received", len(vectors))
		return hits, b.embedSingly(ctx, missTexts, missIndexes, out)
	}

	for i, vector := range vectors {
		out[missIndexes[i]] = vector
		if b.cache != nil {
			b.cache.Set(ctx, missTexts[i], vector)
		}
	}
	return hits, len(vectors)
}

// embedSingly embeds each text with its own provider call so one bad item
// cannot take down its siblings. Failed items stay nil.
func (b *BatchEmbedder) embedSingly(ctx context.Context, texts []string, indexes []int, out [][]float32) (embedded int) {
	for i, text := range texts {
		vector, err := b.embedder.EmbedText(ctx, text)
		if err != nil {
			b.logger.Error("embedding failed", "index", indexes[i], "err", err)
			continue
		}
		out[indexes[i]] = vector
		embedded++
		if b.cache != nil {
			b.cache.Set(ctx, text, vector)
		}
	}
	return embedded
}
