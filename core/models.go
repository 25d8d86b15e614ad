package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Document is an ingested source file. A document owns its chunks
// exclusively; deleting or re-ingesting a document replaces them.
type Document struct {
	Id         ID
	Filename   string
	RawContent string
	ChunkCount int
	InsertedAt time.Time // When the document was ingested
	Metadata   map[string]string
}

// Chunk is a bounded, possibly overlapping substring of a document.
// It is the unit of embedding and retrieval. Chunks are created once at
// ingestion and are immutable afterwards.
type Chunk struct {
	Id         ID
	DocumentId ID
	Text       string
	Index      int       // Position of the chunk within its document
	Vector     []float32 // Embedding vector, fixed dimension per model
	Metadata   map[string]string
}

// Metadata keys recognized by the ranker.
const (
	MetaPageNumber   = "page_number"
	MetaSectionTitle = "section_title"
)

// RetrievalResult is a single ranked chunk returned from retrieval.
// Result slices are ordered: insertion order is rank order.
type RetrievalResult struct {
	ChunkText      string
	SourceFilename string
	ChunkIndex     int
	Similarity     float32 // Raw semantic similarity in [0,1]
	Score          float32 // Fused final score used for ranking
	Metadata       map[string]string
}

// CacheEntry is a stored cache row for the persistent cache tier.
// Keys are pure functions of their inputs.
type CacheEntry struct {
	Key          ID
	Value        []byte // Opaque serialized payload
	ExpiresAt    time.Time
	HitCount     uint64
	LastAccessed time.Time
}

// Expired reports whether the entry is past its expiry at the given time.
// A zero ExpiresAt means the entry never expires.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
