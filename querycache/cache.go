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


package querycache

import (
	"context"
	"log/slog"
	"time"

	"github.com/perigee/recall/core"
	"github.com/perigee/recall/storage"
)

// DefaultTTL is how long cached query results stay valid. Invalidation on
// corpus change is the real freshness mechanism; the TTL just bounds how
// long entries linger in shared tiers.
const DefaultTTL = time.Hour

// Tier is one cache layer. Implementations never return errors: a failing
// layer behaves as a miss so retrieval is never blocked on cache health.
type Tier interface {
	Name() string
	Get(ctx context.Context, key core.ID) ([]byte, bool)
	Set(ctx context.Context, key core.ID, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key core.ID)
	Clear(ctx context.Context)
}

// RetrieveFunc computes results on a cache miss.
type RetrieveFunc func(ctx context.Context) ([]core.RetrievalResult, error)

// tierState pairs a tier with its counters.
type tierState struct {
	Tier
	counters counters
}

// evictionCounter is implemented by tiers that evict under capacity
// pressure.
type evictionCounter interface {
	Evictions() uint64
}

// Tiered caches retrieval results across an ordered list of tiers, fastest
// first. Hits backfill every faster tier so hot queries migrate inward.
type Tiered struct {
	tiers  []*tierState
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Tiered cache.
type Option func(*Tiered)

// WithTTL overrides the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Tiered) {
		c.ttl = ttl
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Tiered) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a tiered cache over the given tiers, ordered fastest first.
func New(tiers []Tier, opts ...Option) *Tiered {
	c := &Tiered{
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, tier := range tiers {
		c.tiers = append(c.tiers, &tierState{Tier: tier})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves cached results for key. A hit in a slower tier backfills
// every faster tier.
func (c *Tiered) Get(ctx context.Context, key core.ID) ([]core.RetrievalResult, bool) {
	for i, tier := range c.tiers {
		value, found := tier.Get(ctx, key)
		if !found {
			tier.counters.misses.Add(1)
			continue
		}

		results, err := storage.UnmarshalResults(value)
		if err != nil {
			c.logger.Warn("cached results corrupt, dropping entry",
				"tier", tier.Name(), "error", err)
			tier.counters.misses.Add(1)
			tier.Delete(ctx, key)
			continue
		}

		tier.counters.hits.Add(1)
		for _, faster := range c.tiers[:i] {
			faster.Set(ctx, key, value, c.ttl)
			faster.counters.sets.Add(1)
		}
		return results, true
	}
	return nil, false
}

// Set stores results in every tier.
func (c *Tiered) Set(ctx context.Context, key core.ID, results []core.RetrievalResult) {
	value := storage.MarshalResults(results)
	for _, tier := range c.tiers {
		tier.Set(ctx, key, value, c.ttl)
		tier.counters.sets.Add(1)
	}
}

// GetOrRetrieve returns cached results for key, or calls retrieve exactly
// once on a miss and populates every tier. The second return reports
// whether the results came from the cache.
func (c *Tiered) GetOrRetrieve(ctx context.Context, key core.ID, retrieve RetrieveFunc) ([]core.RetrievalResult, bool, error) {
	if results, found := c.Get(ctx, key); found {
		return results, true, nil
	}

	results, err := retrieve(ctx)
	if err != nil {
		return nil, false, err
	}
	c.Set(ctx, key, results)
	return results, false, nil
}

// Delete removes one entry from every tier.
func (c *Tiered) Delete(ctx context.Context, key core.ID) {
	for _, tier := range c.tiers {
		tier.Delete(ctx, key)
		tier.counters.deletes.Add(1)
	}
}

// Invalidate clears every tier. Called whenever the corpus changes, since
// any cached ordering may now be stale.
func (c *Tiered) Invalidate(ctx context.Context) {
	for _, tier := range c.tiers {
		tier.Clear(ctx)
	}
	c.logger.Debug("query cache invalidated", "tiers", len(c.tiers))
}

// Stats returns a snapshot of per-tier counters keyed by tier name.
func (c *Tiered) Stats() map[string]Stats {
	stats := make(map[string]Stats, len(c.tiers))
	for _, tier := range c.tiers {
		var evictions uint64
		if counter, ok := tier.Tier.(evictionCounter); ok {
			evictions = counter.Evictions()
		}
		stats[tier.Name()] = tier.counters.snapshot(evictions)
	}
	return stats
}
