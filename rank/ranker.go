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


package rank

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/perigee/recall/core"
	"github.com/perigee/recall/storage"
)

// Weights control how the ranking signals are combined after min-max
// normalization.
type Weights struct {
	Similarity float64
	BM25       float64
	Secondary  float64
}

// DefaultWeights balances semantic similarity against lexical overlap and
// the re-ranking signals.
var DefaultWeights = Weights{
	Similarity: 0.5,
	BM25:       0.2,
	Secondary:  0.3,
}

// Re-ranking signal parameters.
const (
	titleMatchBonus   = 1.0
	adjacencyBonus    = 0.5
	shortChunkPenalty = -0.5
	shortChunkRunes   = 100
)

// Options control one retrieval.
type Options struct {
	// TopK is the maximum number of results returned.
	TopK int

	// Hybrid enables the lexical stage. When false, ordering is pure
	// semantic similarity.
	Hybrid bool

	// MinSimilarity drops results whose raw semantic similarity falls
	// below it, applied after ranking and truncation.
	MinSimilarity float32
}

// DefaultOptions returns the standard retrieval options.
func DefaultOptions() Options {
	return Options{
		TopK:          10,
		Hybrid:        true,
		MinSimilarity: 0.25,
	}
}

// Ranker fuses vector search with BM25 lexical scoring and re-ranking
// signals into a single relevance ordering.
type Ranker struct {
	store           storage.VectorStore
	scorer          *Scorer
	weights         Weights
	candidateFactor int
	logger          *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithWeights overrides the fusion weights.
func WithWeights(weights Weights) Option {
	return func(r *Ranker) error {
		r.weights = weights
		return nil
	}
}

// WithCandidateFactor sets how many vector candidates are pulled per
// requested result. The vector stage always fetches at least topK.
func WithCandidateFactor(factor int) Option {
	return func(r *Ranker) error {
		if factor >= 1 {
			r.candidateFactor = factor
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRanker creates a ranker over the given store and lexical scorer.
func NewRanker(store storage.VectorStore, scorer *Scorer, opts ...Option) (*Ranker, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if scorer == nil {
		return nil, ErrScorerRequired
	}

	r := &Ranker{
		store:           store,
		scorer:          scorer,
		weights:         DefaultWeights,
		candidateFactor: 4,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Retrieve ranks the corpus against the query and returns up to
// opts.TopK results.
func (r *Ranker) Retrieve(ctx context.Context, query string, queryVector []float32, opts Options) ([]core.RetrievalResult, error) {
	return r.RetrieveWithMonitor(ctx, query, queryVector, opts, nil)
}

// RetrieveWithMonitor ranks the corpus against the query with stage
// monitoring. A query whose filtered terms are empty is scored by
// semantic similarity alone; a vector store failure is returned as an
// error, never as an empty result.
func (r *Ranker) RetrieveWithMonitor(ctx context.Context, query string, queryVector []float32, opts Options, monitor Monitor) ([]core.RetrievalResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	if opts.TopK < 1 {
		opts.TopK = DefaultOptions().TopK
	}
	topN := opts.TopK * r.candidateFactor

	var (
		candidates []*storage.Candidate
		queryTerms []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidates, err = r.store.Search(gctx, queryVector, topN)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrVectorSearchFailed, err)
		}
		return nil
	})
	if opts.Hybrid {
		g.Go(func() error {
			queryTerms = r.scorer.QueryTerms(query)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Error("retrieval stage failed", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterVectorStage(len(candidates))

	if len(candidates) == 0 {
		monitor.Finish(nil)
		return []core.RetrievalResult{}, nil
	}

	similarity := make([]float64, len(candidates))
	lexical := make([]float64, len(candidates))
	secondary := make([]float64, len(candidates))

	for i, candidate := range candidates {
		similarity[i] = float64(candidate.Similarity)
	}

	// A query with no recognized terms falls back to pure semantic order:
	// neither lexical scores nor the secondary signals take part.
	zeroTerms := len(queryTerms) == 0
	hybrid := opts.Hybrid && !zeroTerms
	if hybrid {
		for i, candidate := range candidates {
			lexical[i] = r.scorer.Score(queryTerms, candidate.Chunk.Text)
		}
	}
	monitor.AfterLexicalStage(len(candidates), zeroTerms)

	if hybrid {
		r.secondarySignals(candidates, queryTerms, secondary)

		normalize(similarity)
		normalize(lexical)
		normalize(secondary)
	}

	final := make([]float64, len(candidates))
	for i := range candidates {
		if hybrid {
			final[i] = r.weights.Similarity*similarity[i] +
				r.weights.BM25*lexical[i] +
				r.weights.Secondary*secondary[i]
		} else {
			final[i] = float64(candidates[i].Similarity)
		}
	}
	monitor.AfterFusion(len(candidates))

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if final[a] != final[b] {
			if final[a] > final[b] {
				return -1
			}
			return 1
		}
		if candidates[a].Similarity != candidates[b].Similarity {
			if candidates[a].Similarity > candidates[b].Similarity {
				return -1
			}
			return 1
		}
		return candidates[a].Chunk.Index - candidates[b].Chunk.Index
	})

	if len(order) > opts.TopK {
		order = order[:opts.TopK]
	}

	results := make([]core.RetrievalResult, 0, len(order))
	for _, i := range order {
		if candidates[i].Similarity < opts.MinSimilarity {
			continue
		}
		results = append(results, core.RetrievalResult{
			ChunkText:      candidates[i].Chunk.Text,
			SourceFilename: candidates[i].Source,
			ChunkIndex:     candidates[i].Chunk.Index,
			Similarity:     candidates[i].Similarity,
			Score:          float32(final[i]),
			Metadata:       candidates[i].Chunk.Metadata,
		})
	}
	monitor.Finish(results)
	return results, nil
}

// secondarySignals fills out with the re-ranking signal per candidate:
// a bonus when query terms appear in the chunk's section title, a bonus
// when a neighboring chunk of the same document is also a candidate, and
// a penalty for very short chunks.
func (r *Ranker) secondarySignals(candidates []*storage.Candidate, queryTerms []string, out []float64) {
	// Chunk indexes present per document, for adjacency checks.
	indexes := make(map[core.ID]map[int]bool)
	for _, candidate := range candidates {
		docID := candidate.Chunk.DocumentId
		if indexes[docID] == nil {
			indexes[docID] = make(map[int]bool)
		}
		indexes[docID][candidate.Chunk.Index] = true
	}

	for i, candidate := range candidates {
		var signal float64

		if title := candidate.Chunk.Metadata[core.MetaSectionTitle]; title != "" && len(queryTerms) > 0 {
			titleTerms := termSet(title)
			for _, term := range queryTerms {
				if titleTerms[term] {
					signal += titleMatchBonus
					break
				}
			}
		}

		neighbors := indexes[candidate.Chunk.DocumentId]
		if neighbors[candidate.Chunk.Index-1] || neighbors[candidate.Chunk.Index+1] {
			signal += adjacencyBonus
		}

		if utf8.RuneCountInString(candidate.Chunk.Text) < shortChunkRunes {
			signal += shortChunkPenalty
		}

		out[i] = signal
	}
}

// normalize rescales values to [0,1] in place. A degenerate range maps
// every value to 0 so the signal drops out of the weighted sum.
func normalize(values []float64) {
	if len(values) == 0 {
		return
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		for i := range values {
			values[i] = 0
		}
		return
	}
	for i := range values {
		values[i] = (values[i] - lo) / (hi - lo)
	}
}
