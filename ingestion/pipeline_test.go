package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/perigee/recall/ai/mock"
	"github.com/perigee/recall/chunker"
	"github.com/perigee/recall/core"
	"github.com/perigee/recall/storage"
	"github.com/perigee/recall/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingListener captures corpus change notifications.
type recordingListener struct {
	upserts []core.ID
	removes []core.ID
}

func (l *recordingListener) DocumentUpserted(doc *core.Document, chunks []*core.Chunk) {
	l.upserts = append(l.upserts, doc.Id)
}

func (l *recordingListener) DocumentRemoved(id core.ID) {
	l.removes = append(l.removes, id)
}

func newTestPipeline(t *testing.T, opts ...PipelineOption) (*Pipeline, storage.VectorStore) {
	t.Helper()
	store, db, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	batch, err := NewBatchEmbedder(mock.NewEmbedder())
	require.NoError(t, err)

	pipeline, err := NewPipeline(store, batch, opts...)
	require.NoError(t, err)
	return pipeline, store
}

func TestNewPipeline_Validation(t *testing.T) {
	batch, err := NewBatchEmbedder(mock.NewEmbedder())
	require.NoError(t, err)

	_, err = NewPipeline(nil, batch)
	assert.ErrorIs(t, err, ErrVectorStoreRequired)

	store, db, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewPipeline(store, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestIngest(t *testing.T) {
	splitter, err := chunker.New(20, 5)
	require.NoError(t, err)

	listener := &recordingListener{}
	pipeline, store := newTestPipeline(t, WithSplitter(splitter), WithListener(listener))

	ctx := context.Background()
	content := "The quick brown fox jumps over the lazy dog and keeps on running."
	summary, err := pipeline.Ingest(ctx, "fox.md", content, nil)
	require.NoError(t, err)

	assert.Equal(t, core.IDFromContent("fox.md"), summary.DocumentID)
	assert.Greater(t, summary.ChunkCount, 1)
	assert.Equal(t, summary.ChunkCount, summary.Embedded)
	assert.Empty(t, summary.FailedChunks)

	doc, err := store.GetDocument(ctx, summary.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "fox.md", doc.Filename)
	assert.Equal(t, summary.ChunkCount, doc.ChunkCount)

	chunks, err := store.Chunks(ctx)
	require.NoError(t, err)
	assert.Len(t, chunks, summary.ChunkCount)

	require.Len(t, listener.upserts, 1)
	assert.Equal(t, summary.DocumentID, listener.upserts[0])
}

func TestIngest_IdenticalWindowsStayDistinct(t *testing.T) {
	splitter, err := chunker.New(4, 0)
	require.NoError(t, err)
	pipeline, store := newTestPipeline(t, WithSplitter(splitter))

	// Three windows with the same text must not collapse into one chunk.
	ctx := context.Background()
	summary, err := pipeline.Ingest(ctx, "rep.md", strings.Repeat("abcd", 3), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.ChunkCount)

	chunks, err := store.Chunks(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	indexes := make(map[int]bool)
	for _, chunk := range chunks {
		assert.Equal(t, "abcd", chunk.Text)
		indexes[chunk.Index] = true
	}
	assert.Len(t, indexes, 3)
}

func TestIngest_ReportsProgress(t *testing.T) {
	splitter, err := chunker.New(20, 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	pipeline, _ := newTestPipeline(t, WithSplitter(splitter), WithProgress(&buf))

	ctx := context.Background()
	content := "The quick brown fox jumps over the lazy dog and keeps on running."
	summary, err := pipeline.Ingest(ctx, "fox.md", content, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, fmt.Sprintf("%d/%d", summary.ChunkCount, summary.ChunkCount))
	assert.Contains(t, out, "100.0%")
}

func TestIngest_EmptyDocument(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	_, err := pipeline.Ingest(context.Background(), "empty.md", "", nil)
	assert.ErrorIs(t, err, core.ErrEmptyDocument)

	_, err = pipeline.Ingest(context.Background(), "", "content", nil)
	assert.ErrorIs(t, err, core.ErrEmptyFilename)
}

func TestIngest_ReplacesPreviousVersion(t *testing.T) {
	splitter, err := chunker.New(20, 5)
	require.NoError(t, err)
	pipeline, store := newTestPipeline(t, WithSplitter(splitter))

	ctx := context.Background()
	_, err = pipeline.Ingest(ctx, "doc.md", "first version with a fair amount of text to chunk", nil)
	require.NoError(t, err)

	summary, err := pipeline.Ingest(ctx, "doc.md", "second version", nil)
	require.NoError(t, err)

	chunks, err := store.Chunks(ctx)
	require.NoError(t, err)
	assert.Len(t, chunks, summary.ChunkCount)
	for _, chunk := range chunks {
		assert.Equal(t, summary.DocumentID, chunk.DocumentId)
	}
}

func TestIngest_Metadata(t *testing.T) {
	pipeline, store := newTestPipeline(t)

	ctx := context.Background()
	meta := map[string]string{core.MetaSectionTitle: "Install"}
	summary, err := pipeline.Ingest(ctx, "doc.md", "short document", &IngestOptions{Metadata: meta})
	require.NoError(t, err)

	chunks, err := store.Chunks(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, summary.ChunkCount)
	assert.Equal(t, "Install", chunks[0].Metadata[core.MetaSectionTitle])
}

func TestDelete(t *testing.T) {
	listener := &recordingListener{}
	pipeline, store := newTestPipeline(t, WithListener(listener))

	ctx := context.Background()
	summary, err := pipeline.Ingest(ctx, "doc.md", "some content to remove later", nil)
	require.NoError(t, err)

	require.NoError(t, pipeline.Delete(ctx, "doc.md"))

	_, err = store.GetDocument(ctx, summary.DocumentID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.Len(t, listener.removes, 1)
	assert.Equal(t, summary.DocumentID, listener.removes[0])
}

func TestDelete_NotFound(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	err := pipeline.Delete(context.Background(), "missing.md")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
