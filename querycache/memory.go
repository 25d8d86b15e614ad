package querycache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/perigee/recall/core"
)

// DefaultMemorySize bounds the in-process tier.
const DefaultMemorySize = 1000

// memoryEntry is a cached payload with its expiration time.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryTier is the in-process LRU tier. Capacity-based eviction happens
// synchronously inside Set; expiry is checked on read. A coarse mutex
// guards the LRU since lookups mutate recency order.
type MemoryTier struct {
	mu        sync.Mutex
	entries   *lru.Cache[core.ID, *memoryEntry]
	evictions uint64
	now       func() time.Time
}

var _ Tier = (*MemoryTier)(nil)

// NewMemoryTier creates an in-process tier holding at most maxSize entries.
func NewMemoryTier(maxSize int) (*MemoryTier, error) {
	t := &MemoryTier{now: time.Now}
	entries, err := lru.NewWithEvict(maxSize, func(core.ID, *memoryEntry) {
		t.evictions++
	})
	if err != nil {
		return nil, err
	}
	t.entries = entries
	return t, nil
}

// Name identifies the tier in stats.
func (t *MemoryTier) Name() string { return "memory" }

// Get retrieves a payload. Expired entries are removed and reported as a
// miss.
func (t *MemoryTier) Get(_ context.Context, key core.ID) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, found := t.entries.Get(key)
	if !found {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && t.now().After(entry.expiresAt) {
		t.removeLocked(key)
		return nil, false
	}
	return entry.value, true
}

// Set stores a payload, evicting the least recently used entry when full.
// A zero TTL stores the payload without expiry.
func (t *MemoryTier) Set(_ context.Context, key core.ID, value []byte, ttl time.Duration) {
	entry := &memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = t.now().Add(ttl)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries.Add(key, entry)
}

// Delete removes a payload.
func (t *MemoryTier) Delete(_ context.Context, key core.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(key)
}

// removeLocked drops a key without counting it as a capacity eviction.
// The LRU's eviction callback fires on explicit removal too.
func (t *MemoryTier) removeLocked(key core.ID) {
	before := t.evictions
	t.entries.Remove(key)
	t.evictions = before
}

// Clear drops every entry. Purged entries don't count as evictions.
func (t *MemoryTier) Clear(_ context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	before := t.evictions
	t.entries.Purge()
	t.evictions = before
}

// Len returns the number of live entries, counting expired ones not yet
// collected.
func (t *MemoryTier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries.Len()
}

// Evictions returns how many entries capacity pressure has pushed out.
func (t *MemoryTier) Evictions() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evictions
}
