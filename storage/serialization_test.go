package storage

import (
	"testing"
	"time"

	"github.com/perigee/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRoundTrip(t *testing.T) {
	doc := &core.Document{
		Id:         core.IDFromContent("guide.md"),
		Filename:   "guide.md",
		RawContent: "full raw content of the document",
		ChunkCount: 3,
		InsertedAt: time.Now().Truncate(time.Microsecond),
		Metadata:   map[string]string{"author": "ops"},
	}

	got, err := UnmarshalDocument(MarshalDocument(doc))
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestChunkRoundTrip(t *testing.T) {
	chunk := &core.Chunk{
		Id:         core.ID(99),
		DocumentId: core.ID(7),
		Text:       "chunk body with unicode 世界",
		Index:      2,
		Vector:     []float32{0.1, -0.5, 0.25},
		Metadata: map[string]string{
			core.MetaSectionTitle: "Installation",
			core.MetaPageNumber:   "4",
		},
	}

	got, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Equal(t, chunk, got)
}

func TestCacheEntryRoundTrip(t *testing.T) {
	entry := &core.CacheEntry{
		Key:          core.ID(123),
		Value:        []byte{0x01, 0x02, 0x03},
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Microsecond),
		HitCount:     12,
		LastAccessed: time.Now().Truncate(time.Microsecond),
	}

	got, err := UnmarshalCacheEntry(MarshalCacheEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestResultsRoundTrip(t *testing.T) {
	results := []core.RetrievalResult{
		{
			ChunkText:      "first result",
			SourceFilename: "a.md",
			ChunkIndex:     0,
			Similarity:     0.91,
			Score:          0.88,
		},
		{
			ChunkText:      "second result",
			SourceFilename: "b.md",
			ChunkIndex:     4,
			Similarity:     0.52,
			Score:          0.47,
			Metadata:       map[string]string{core.MetaSectionTitle: "FAQ"},
		},
	}

	got, err := UnmarshalResults(MarshalResults(results))
	require.NoError(t, err)
	assert.Equal(t, results, got)
}

func TestRoundTripNilMetadata(t *testing.T) {
	chunk := &core.Chunk{
		Id:         core.ID(1),
		DocumentId: core.ID(2),
		Text:       "plain chunk",
		Vector:     []float32{0.5},
	}
	gotChunk, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Nil(t, gotChunk.Metadata)
	assert.Equal(t, chunk, gotChunk)

	doc := &core.Document{
		Id:         core.ID(3),
		Filename:   "plain.md",
		RawContent: "content",
		InsertedAt: time.Now().Truncate(time.Microsecond),
	}
	gotDoc, err := UnmarshalDocument(MarshalDocument(doc))
	require.NoError(t, err)
	assert.Nil(t, gotDoc.Metadata)
	assert.Equal(t, doc, gotDoc)
}

func TestVectorRoundTrip(t *testing.T) {
	vector := []float32{1.5, -2.25, 0, 3.14159}

	got, err := UnmarshalVector(MarshalVector(vector))
	require.NoError(t, err)
	assert.Equal(t, vector, got)
}

func TestUnmarshalTruncated(t *testing.T) {
	doc := &core.Document{
		Id:         core.ID(1),
		Filename:   "x.md",
		RawContent: "content",
		InsertedAt: time.Now(),
	}
	data := MarshalDocument(doc)

	_, err := UnmarshalDocument(data[:len(data)/2])
	assert.Error(t, err)
}
