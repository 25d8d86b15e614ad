// Copyright 2026 Perigee Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package recall

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/perigee/recall/ai"
	"github.com/perigee/recall/ai/openai"
	"github.com/perigee/recall/chunker"
	"github.com/perigee/recall/core"
	"github.com/perigee/recall/embcache"
	"github.com/perigee/recall/ingestion"
	"github.com/perigee/recall/querycache"
	"github.com/perigee/recall/rank"
	"github.com/perigee/recall/storage"
	"github.com/perigee/recall/storage/badger"
)

// Namespaces inside the shared badger backend.
const (
	embeddingNamespace = "embeddings"
	queryNamespace     = "queries"
)

// Engine is the top-level retrieval facade: document ingestion, hybrid
// retrieval, and cache management over one storage backend.
type Engine struct {
	backend    *badger.Backend
	store      storage.VectorStore
	embedder   ai.Embedder
	embCache   *embcache.Cache
	embBackend *badger.CacheBackend
	pipeline   *ingestion.Pipeline
	scorer     *rank.Scorer
	ranker     *rank.Ranker
	queryCache *querycache.Tiered
	queryPers  *querycache.PersistentTier
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig    *ai.Config
	embedder    ai.Embedder
	splitter    *chunker.Splitter
	weights     rank.Weights
	memorySize  int
	distributed storage.DistributedBackend
	progress    io.Writer
	logger      *slog.Logger
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithEmbedder overrides the embedding provider entirely. Used by tests
// and by callers with their own provider wiring.
func WithEmbedder(embedder ai.Embedder) EngineOption {
	return func(o *engineOptions) {
		o.embedder = embedder
	}
}

// WithSplitter overrides the default chunking parameters.
func WithSplitter(splitter *chunker.Splitter) EngineOption {
	return func(o *engineOptions) {
		o.splitter = splitter
	}
}

// WithWeights overrides the ranking fusion weights.
func WithWeights(weights rank.Weights) EngineOption {
	return func(o *engineOptions) {
		o.weights = weights
	}
}

// WithQueryCacheSize bounds the in-process query cache tier.
func WithQueryCacheSize(size int) EngineOption {
	return func(o *engineOptions) {
		if size >= 1 {
			o.memorySize = size
		}
	}
}

// WithDistributedCache adds a shared cache tier between the in-process
// and persistent tiers.
func WithDistributedCache(backend storage.DistributedBackend) EngineOption {
	return func(o *engineOptions) {
		o.distributed = backend
	}
}

// WithProgress streams embedding progress to w during ingestion.
func WithProgress(w io.Writer) EngineOption {
	return func(o *engineOptions) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open creates an Engine backed by a badger database at filePath. An
// empty path opens an in-memory database, used by tests. Lexical corpus
// statistics are rebuilt from the stored chunks.
func Open(ctx context.Context, filePath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig:   ai.DefaultConfig(),
		weights:    rank.DefaultWeights,
		memorySize: querycache.DefaultMemorySize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, filePath == "")
	if err != nil {
		return nil, err
	}

	engine, err := assemble(ctx, backend, options)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return engine, nil
}

func assemble(ctx context.Context, backend *badger.Backend, options *engineOptions) (*Engine, error) {
	store := badger.NewStore(backend)

	embedder := options.embedder
	if embedder == nil {
		var err error
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	embBackend := badger.NewCacheBackend(backend, embeddingNamespace)
	embCache := embcache.New(embBackend, embedder.Model(), embcache.WithLogger(options.logger))

	scorer := rank.NewScorer()
	chunks, err := store.Chunks(ctx)
	if err != nil {
		return nil, err
	}
	scorer.Rebuild(chunks)

	ranker, err := rank.NewRanker(store, scorer,
		rank.WithWeights(options.weights),
		rank.WithLogger(options.logger))
	if err != nil {
		return nil, err
	}

	memory, err := querycache.NewMemoryTier(options.memorySize)
	if err != nil {
		return nil, err
	}
	queryPers := querycache.NewPersistentTier(badger.NewCacheBackend(backend, queryNamespace), options.logger)
	tiers := []querycache.Tier{memory}
	if options.distributed != nil {
		tiers = append(tiers, querycache.NewDistributedTier(options.distributed, options.logger))
	}
	tiers = append(tiers, queryPers)
	queryCache := querycache.New(tiers, querycache.WithLogger(options.logger))

	engine := &Engine{
		backend:    backend,
		store:      store,
		embedder:   embedder,
		embCache:   embCache,
		embBackend: embBackend,
		scorer:     scorer,
		ranker:     ranker,
		queryCache: queryCache,
		queryPers:  queryPers,
		logger:     options.logger,
	}

	batch, err := ingestion.NewBatchEmbedder(embedder,
		ingestion.WithCache(embCache),
		ingestion.WithBatchLogger(options.logger))
	if err != nil {
		return nil, err
	}

	pipelineOpts := []ingestion.PipelineOption{
		ingestion.WithListener(engine),
		ingestion.WithLogger(options.logger),
	}
	if options.splitter != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithSplitter(options.splitter))
	}
	if options.progress != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithProgress(options.progress))
	}
	engine.pipeline, err = ingestion.NewPipeline(store, batch, pipelineOpts...)
	if err != nil {
		return nil, err
	}

	return engine, nil
}

// DocumentUpserted keeps lexical statistics current and drops cached
// query results, which may order stale chunks. Cached embeddings stay:
// they are addressed by content hash and remain correct.
func (e *Engine) DocumentUpserted(doc *core.Document, chunks []*core.Chunk) {
	e.scorer.AddDocument(doc.Id, chunks)
	e.queryCache.Invalidate(context.Background())
}

// DocumentRemoved mirrors DocumentUpserted for deletions.
func (e *Engine) DocumentRemoved(id core.ID) {
	e.scorer.RemoveDocument(id)
	e.queryCache.Invalidate(context.Background())
}

// Ingest adds or replaces a document in the corpus.
func (e *Engine) Ingest(ctx context.Context, filename, content string, opts *ingestion.IngestOptions) (*ingestion.Summary, error) {
	return e.pipeline.Ingest(ctx, filename, content, opts)
}

// Delete removes a document by filename.
func (e *Engine) Delete(ctx context.Context, filename string) error {
	return e.pipeline.Delete(ctx, filename)
}

// Retrieve returns the most relevant chunks for a query, served from the
// query cache when possible. The caller's ctx deadline bounds embedding,
// vector search and ranking together.
func (e *Engine) Retrieve(ctx context.Context, query string, opts rank.Options) ([]core.RetrievalResult, error) {
	if err := core.ValidateQuery(query); err != nil {
		return nil, err
	}
	if opts.TopK < 1 {
		opts.TopK = rank.DefaultOptions().TopK
	}

	key := querycache.Key(query, opts.TopK, opts.Hybrid, opts.MinSimilarity)
	results, cached, err := e.queryCache.GetOrRetrieve(ctx, key, func(ctx context.Context) ([]core.RetrievalResult, error) {
		vector, _, err := e.embCache.GetOrGenerate(ctx, query, e.embedder.EmbedText)
		if err != nil {
			return nil, err
		}
		return e.ranker.Retrieve(ctx, query, vector, opts)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("retrieval complete", "query", query, "results", len(results), "cached", cached)
	return results, nil
}

// FormatContext renders results as a prompt context block. Results are
// appended in order until adding another would exceed maxLength runes;
// chunks are never truncated mid-text. maxLength <= 0 means no limit.
func FormatContext(results []core.RetrievalResult, maxLength int) string {
	var sb strings.Builder
	total := 0
	for _, result := range results {
		section := fmt.Sprintf("[%s #%d]\n%s", result.SourceFilename, result.ChunkIndex, result.ChunkText)
		runes := utf8.RuneCountInString(section)
		if sb.Len() > 0 {
			runes += 2
		}
		if maxLength > 0 && total+runes > maxLength {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(section)
		total += runes
	}
	return sb.String()
}

// Stats summarizes corpus size and cache activity.
type Stats struct {
	Documents  int
	Chunks     int
	QueryCache map[string]querycache.Stats
}

// Stats reports corpus size and per-tier query cache counters.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	docs, err := e.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Documents:  len(docs),
		Chunks:     e.scorer.TotalChunks(),
		QueryCache: e.queryCache.Stats(),
	}, nil
}

// Sweep removes expired rows from the durable caches. Returns the total
// number removed.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	removed, err := e.embBackend.Sweep(ctx)
	if err != nil {
		return removed, err
	}
	queryRemoved, err := e.queryPers.Sweep(ctx)
	removed += queryRemoved
	return removed, err
}

// Close closes the underlying storage backend.
func (e *Engine) Close() error {
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing storage backend", "err", err)
		return err
	}
	return nil
}
