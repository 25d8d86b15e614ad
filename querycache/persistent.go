package querycache

import (
	"context"
	"log/slog"
	"time"

	"github.com/perigee/recall/core"
	"github.com/perigee/recall/storage"
)

// PersistentTier adapts a storage.PersistentBackend as the durable cache
// tier. It survives restarts and keeps hit-count bookkeeping for warming.
// Backend failures degrade to misses.
type PersistentTier struct {
	backend storage.PersistentBackend
	logger  *slog.Logger
}

var _ Tier = (*PersistentTier)(nil)

// NewPersistentTier wraps a persistent backend.
func NewPersistentTier(backend storage.PersistentBackend, logger *slog.Logger) *PersistentTier {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistentTier{
		backend: backend,
		logger:  logger.With("tier", "persistent"),
	}
}

// Name identifies the tier in stats.
func (t *PersistentTier) Name() string { return "persistent" }

// Get retrieves a payload; any backend failure is a miss.
func (t *PersistentTier) Get(ctx context.Context, key core.ID) ([]byte, bool) {
	value, found, err := t.backend.Get(ctx, key)
	if err != nil {
		t.logger.Warn("persistent cache read failed", "error", err)
		return nil, false
	}
	return value, found
}

// Set stores a payload; failures are logged and swallowed.
func (t *PersistentTier) Set(ctx context.Context, key core.ID, value []byte, ttl time.Duration) {
	if err := t.backend.Set(ctx, key, value, ttl); err != nil {
		t.logger.Warn("persistent cache write failed", "error", err)
	}
}

// Delete removes a payload; failures are logged and swallowed.
func (t *PersistentTier) Delete(ctx context.Context, key core.ID) {
	if err := t.backend.Delete(ctx, key); err != nil {
		t.logger.Warn("persistent cache delete failed", "error", err)
	}
}

// Clear removes every payload in the namespace.
func (t *PersistentTier) Clear(ctx context.Context) {
	if err := t.backend.Clear(ctx); err != nil {
		t.logger.Warn("persistent cache clear failed", "error", err)
	}
}

// Sweep removes expired rows from the backend. Returns the number removed.
func (t *PersistentTier) Sweep(ctx context.Context) (int, error) {
	return t.backend.Sweep(ctx)
}
