package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/perigee/recall/core"
	"github.com/perigee/recall/storage"
)

// CacheBackend implements storage.PersistentBackend on a BadgerDB backend.
//
// Entries are durable rows keyed by content hash within a namespace.
// Expiry is lazy: an expired row read by Get is removed and treated as a
// miss. Sweep removes all expired rows in one pass and is intended to run
// periodically. Each hit updates hit_count and last_accessed for warming
// and analytics.
type CacheBackend struct {
	backend   *Backend
	namespace string
	now       func() time.Time
}

var _ storage.PersistentBackend = (*CacheBackend)(nil)

// NewCacheBackend creates a persistent cache backend scoped to a namespace.
// Distinct namespaces never observe each other's entries.
func NewCacheBackend(backend *Backend, namespace string) *CacheBackend {
	return &CacheBackend{
		backend:   backend,
		namespace: namespace,
		now:       time.Now,
	}
}

// Close is a no-op; the lifetime of the underlying backend is managed by
// its owner.
func (c *CacheBackend) Close() error {
	return nil
}

// Get retrieves a value and records the hit. An expired row is deleted and
// reported as a miss.
func (c *CacheBackend) Get(ctx context.Context, key core.ID) ([]byte, bool, error) {
	var value []byte
	found := false

	err := c.backend.WithTx(func(tx *badger.Txn) error {
		bKey := makeCacheKey(c.namespace, key)
		item, err := tx.Get(bKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		var entry *core.CacheEntry
		err = item.Value(func(val []byte) error {
			entry, err = storage.UnmarshalCacheEntry(val)
			return err
		})
		if err != nil {
			return err
		}

		if entry.Expired(c.now()) {
			return tx.Delete(bKey)
		}

		entry.HitCount++
		entry.LastAccessed = c.now()
		if err := tx.Set(bKey, storage.MarshalCacheEntry(entry)); err != nil {
			return err
		}

		value = entry.Value
		found = true
		return nil
	}, true)
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Set stores a value, overwriting any previous row and resetting its
// bookkeeping. A zero TTL stores the row without expiry.
func (c *CacheBackend) Set(ctx context.Context, key core.ID, value []byte, ttl time.Duration) error {
	entry := &core.CacheEntry{
		Key:          key,
		Value:        value,
		LastAccessed: c.now(),
	}
	if ttl > 0 {
		entry.ExpiresAt = c.now().Add(ttl)
	}

	return c.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set(makeCacheKey(c.namespace, key), storage.MarshalCacheEntry(entry))
	}, true)
}

// Delete removes a row. Deleting a missing key is not an error.
func (c *CacheBackend) Delete(ctx context.Context, key core.ID) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Delete(makeCacheKey(c.namespace, key))
	}, true)
}

// Clear removes every row in the namespace.
func (c *CacheBackend) Clear(ctx context.Context) error {
	keys, err := c.collectKeys(func(*core.CacheEntry) bool { return true })
	if err != nil {
		return err
	}
	return c.deleteKeys(keys)
}

// Entry retrieves the full cache row without counting a hit.
func (c *CacheBackend) Entry(ctx context.Context, key core.ID) (*core.CacheEntry, error) {
	var entry *core.CacheEntry
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(c.namespace, key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			entry, err = storage.UnmarshalCacheEntry(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Sweep deletes rows past their expiry. Returns the number removed.
func (c *CacheBackend) Sweep(ctx context.Context) (int, error) {
	now := c.now()
	keys, err := c.collectKeys(func(entry *core.CacheEntry) bool {
		return entry.Expired(now)
	})
	if err != nil {
		return 0, err
	}
	if err := c.deleteKeys(keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// collectKeys scans the namespace and returns the keys of rows matching
// the predicate.
func (c *CacheBackend) collectKeys(match func(*core.CacheEntry) bool) ([][]byte, error) {
	var keys [][]byte
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCacheNamespacePrefix(c.namespace)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			err := item.Value(func(val []byte) error {
				entry, err := storage.UnmarshalCacheEntry(val)
				if err != nil {
					return err
				}
				if match(entry) {
					keys = append(keys, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// deleteKeys removes the given keys in one write transaction.
func (c *CacheBackend) deleteKeys(keys [][]byte) error {
	if len(keys) == 0 {
		return nil
	}
	return c.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	}, true)
}
