package storage

import (
	"context"
	"time"

	"github.com/perigee/recall/core"
)

// Candidate is a chunk returned from nearest-neighbor search, with the
// resolved source filename and a similarity score in [0,1] computed as
// 1 - cosine distance.
type Candidate struct {
	Chunk      *core.Chunk
	Source     string
	Similarity float32
}

// VectorStore persists chunk vectors and answers nearest-neighbor queries.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// UpsertDocument stores a document and its chunks. A document owns its
	// chunks exclusively: any chunks from a previous ingestion of the same
	// document ID are removed first, never mutated in place.
	UpsertDocument(ctx context.Context, doc *core.Document, chunks []*core.Chunk) error

	// DeleteDocument removes a document and all of its chunks.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListDocuments retrieves all stored documents, without raw content.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// Search returns the topN candidates ordered by ascending cosine
	// distance to the query vector (highest similarity first).
	// An empty corpus yields an empty slice, never an error.
	Search(ctx context.Context, vector []float32, topN int) ([]*Candidate, error)

	// Chunks retrieves every stored chunk, without vectors. Used to rebuild
	// lexical corpus statistics at startup.
	Chunks(ctx context.Context) ([]*core.Chunk, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// CacheBackend is a key-value store with per-entry TTL, used by the
// embedding cache and the persistent query-cache tier.
// Implementations must be thread-safe.
type CacheBackend interface {
	// Get retrieves a value. The second return is false on a miss;
	// an expired entry is a miss and is removed lazily.
	Get(ctx context.Context, key core.ID) ([]byte, bool, error)

	// Set stores a value with the given TTL, overwriting any previous
	// value. A zero TTL stores the value without expiry.
	Set(ctx context.Context, key core.ID, value []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key core.ID) error

	// Clear removes every value in the backend's namespace.
	Clear(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}

// PersistentBackend is a CacheBackend with durable storage, hit-count
// bookkeeping, and a periodic sweep of expired rows.
type PersistentBackend interface {
	CacheBackend

	// Entry retrieves the full cache row, including hit count and last
	// access time, without counting as a hit.
	// Returns ErrNotFound if the key doesn't exist.
	Entry(ctx context.Context, key core.ID) (*core.CacheEntry, error)

	// Sweep deletes rows past their expiry. Returns the number removed.
	Sweep(ctx context.Context) (int, error)
}

// DistributedBackend is a cache shared across processes (L2). Payloads are
// opaque bytes; expiry is enforced by the backing store.
type DistributedBackend interface {
	// Get retrieves a payload. A miss returns ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a payload with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a payload. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether the key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes every payload in the namespace.
	Clear(ctx context.Context) error
}
