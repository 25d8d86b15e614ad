package bunpg

import (
	"math"
	"testing"
	"time"

	"github.com/perigee/recall/core"
	"github.com/stretchr/testify/assert"
)

func TestVectorParam(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want string
	}{
		{"empty", nil, "[]"},
		{"single", []float32{1}, "[1]"},
		{"mixed", []float32{0.5, -0.25, 2}, "[0.5,-0.25,2]"},
		{"zero", []float32{0, 0}, "[0,0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vectorParam(tt.in))
		})
	}
}

func TestDocumentRowConversion(t *testing.T) {
	doc := &core.Document{
		Id:         core.IDFromContent("guide.md"),
		Filename:   "guide.md",
		RawContent: "raw content",
		ChunkCount: 2,
		InsertedAt: time.Now().Truncate(time.Microsecond),
		Metadata:   map[string]string{"author": "ops"},
	}

	assert.Equal(t, doc, fromDocumentRow(toDocumentRow(doc)))
}

func TestChunkRowConversion(t *testing.T) {
	chunk := &core.Chunk{
		Id:         core.ID(9),
		DocumentId: core.ID(3),
		Text:       "chunk body",
		Index:      1,
		Vector:     []float32{0.1, 0.2},
		Metadata:   map[string]string{core.MetaSectionTitle: "Install"},
	}

	assert.Equal(t, chunk, fromChunkRow(toChunkRow(chunk)))
}

func TestChunkRowConversion_HighBitID(t *testing.T) {
	// Content-hash IDs use the full 64-bit range; the signed column type
	// must not lose the high bit.
	chunk := &core.Chunk{
		Id:         core.ID(math.MaxUint64),
		DocumentId: core.ID(math.MaxUint64 - 1),
		Text:       "chunk body",
	}

	got := fromChunkRow(toChunkRow(chunk))
	assert.Equal(t, chunk.Id, got.Id)
	assert.Equal(t, chunk.DocumentId, got.DocumentId)
}
