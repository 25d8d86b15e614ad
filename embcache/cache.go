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


// Package embcache caches embedding vectors by content hash so that
// unchanged text is never re-embedded. Entries are keyed on both the model
// name and the text, so switching models never serves stale vectors.
package embcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/perigee/recall/core"
	"github.com/perigee/recall/storage"
)

// DefaultTTL is how long cached vectors stay valid.
const DefaultTTL = 7 * 24 * time.Hour

// GenerateFunc produces an embedding for text on a cache miss.
type GenerateFunc func(ctx context.Context, text string) ([]float32, error)

// Cache wraps a storage backend with embedding-specific keying.
// A failing backend degrades to a miss; it never blocks embedding.
type Cache struct {
	backend storage.CacheBackend
	model   string
	ttl     time.Duration
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default entry lifetime. A zero TTL stores entries
// without expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates an embedding cache for the given model.
func New(backend storage.CacheBackend, model string, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		model:   model,
		ttl:     DefaultTTL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the cache key for text under the given model.
func Key(model, text string) core.ID {
	return core.IDFromContent(model + ":" + text)
}

// Get retrieves a cached vector. Backend failures and corrupt payloads are
// reported as misses.
func (c *Cache) Get(ctx context.Context, text string) ([]float32, bool) {
	data, found, err := c.backend.Get(ctx, Key(c.model, text))
	if err != nil {
		c.logger.Warn("embedding cache read failed", "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	vector, err := storage.UnmarshalVector(data)
	if err != nil {
		c.logger.Warn("embedding cache entry corrupt", "error", err)
		return nil, false
	}
	return vector, true
}

// Set stores a vector. Backend failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, text string, vector []float32) {
	err := c.backend.Set(ctx, Key(c.model, text), storage.MarshalVector(vector), c.ttl)
	if err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
}

// GetOrGenerate returns the cached vector for text, or calls generate on a
// miss and caches the result. The second return reports whether the vector
// came from the cache.
func (c *Cache) GetOrGenerate(ctx context.Context, text string, generate GenerateFunc) ([]float32, bool, error) {
	if vector, ok := c.Get(ctx, text); ok {
		return vector, true, nil
	}

	vector, err := generate(ctx, text)
	if err != nil {
		return nil, false, err
	}
	c.Set(ctx, text, vector)
	return vector, false, nil
}
