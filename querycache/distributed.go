package querycache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/perigee/recall/core"
	"github.com/perigee/recall/storage"
)

// DistributedTier adapts a storage.DistributedBackend as a cache tier
// shared between processes. Backend failures degrade to misses.
type DistributedTier struct {
	backend storage.DistributedBackend
	logger  *slog.Logger
}

var _ Tier = (*DistributedTier)(nil)

// NewDistributedTier wraps a distributed backend.
func NewDistributedTier(backend storage.DistributedBackend, logger *slog.Logger) *DistributedTier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DistributedTier{
		backend: backend,
		logger:  logger.With("tier", "distributed"),
	}
}

// Name identifies the tier in stats.
func (t *DistributedTier) Name() string { return "distributed" }

func distributedKey(key core.ID) string {
	return "recall:q:" + strconv.FormatUint(uint64(key), 16)
}

// Get retrieves a payload; any backend failure is a miss.
func (t *DistributedTier) Get(ctx context.Context, key core.ID) ([]byte, bool) {
	value, err := t.backend.Get(ctx, distributedKey(key))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			t.logger.Warn("distributed cache read failed", "error", err)
		}
		return nil, false
	}
	return value, true
}

// Set stores a payload; failures are logged and swallowed.
func (t *DistributedTier) Set(ctx context.Context, key core.ID, value []byte, ttl time.Duration) {
	if err := t.backend.Set(ctx, distributedKey(key), value, ttl); err != nil {
		t.logger.Warn("distributed cache write failed", "error", err)
	}
}

// Delete removes a payload; failures are logged and swallowed.
func (t *DistributedTier) Delete(ctx context.Context, key core.ID) {
	if err := t.backend.Delete(ctx, distributedKey(key)); err != nil {
		t.logger.Warn("distributed cache delete failed", "error", err)
	}
}

// Clear removes every payload in the namespace.
func (t *DistributedTier) Clear(ctx context.Context) {
	if err := t.backend.Clear(ctx); err != nil {
		t.logger.Warn("distributed cache clear failed", "error", err)
	}
}

// mapEntry is a payload with its expiry inside MapBackend.
type mapEntry struct {
	value     []byte
	expiresAt time.Time
}

// MapBackend is an in-process storage.DistributedBackend used in tests
// and single-node deployments that still want the L2 layout.
type MapBackend struct {
	mu      sync.Mutex
	entries map[string]mapEntry
	now     func() time.Time
}

var _ storage.DistributedBackend = (*MapBackend)(nil)

// NewMapBackend creates an empty in-process backend.
func NewMapBackend() *MapBackend {
	return &MapBackend{
		entries: make(map[string]mapEntry),
		now:     time.Now,
	}
}

// Get retrieves a payload, removing it first when expired.
func (b *MapBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, found := b.entries[key]
	if !found {
		return nil, storage.ErrNotFound
	}
	if !entry.expiresAt.IsZero() && b.now().After(entry.expiresAt) {
		delete(b.entries, key)
		return nil, storage.ErrNotFound
	}
	return entry.value, nil
}

// Set stores a payload. A zero TTL stores it without expiry.
func (b *MapBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := mapEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = b.now().Add(ttl)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = entry
	return nil
}

// Delete removes a payload. Deleting a missing key is not an error.
func (b *MapBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}

// Exists reports whether the key is present and unexpired.
func (b *MapBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes every payload.
func (b *MapBackend) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]mapEntry)
	return nil
}
