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


package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/perigee/recall/chunker"
	"github.com/perigee/recall/core"
	"github.com/perigee/recall/storage"
)

// CorpusListener is notified after the stored corpus changes. Listeners
// keep derived state, lexical statistics and cached query results, in sync.
type CorpusListener interface {
	// DocumentUpserted is called after a document and its chunks are stored.
	// Chunks from a previous version of the document are already gone.
	DocumentUpserted(doc *core.Document, chunks []*core.Chunk)

	// DocumentRemoved is called after a document is deleted.
	DocumentRemoved(id core.ID)
}

// Summary reports the outcome of ingesting one document.
type Summary struct {
	DocumentID   core.ID
	Filename     string
	ChunkCount   int
	Embedded     int
	CacheHits    int
	FailedChunks []int
	Duration     time.Duration
}

// Pipeline orchestrates the ingestion of documents into the corpus.
type Pipeline struct {
	store     storage.VectorStore
	batch     *BatchEmbedder
	splitter  *chunker.Splitter
	listeners []CorpusListener
	progress  io.Writer
	logger    *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline) error

// WithSplitter overrides the default chunking parameters.
func WithSplitter(splitter *chunker.Splitter) PipelineOption {
	return func(p *Pipeline) error {
		if splitter != nil {
			p.splitter = splitter
		}
		return nil
	}
}

// WithProgress streams per-batch embedding progress to w while documents
// ingest, typically os.Stderr for interactive use.
func WithProgress(w io.Writer) PipelineOption {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithListener registers a corpus change listener.
func WithListener(listener CorpusListener) PipelineOption {
	return func(p *Pipeline) error {
		if listener != nil {
			p.listeners = append(p.listeners, listener)
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.VectorStore, batch *BatchEmbedder, opts ...PipelineOption) (*Pipeline, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if batch == nil {
		return nil, ErrEmbedderRequired
	}

	splitter, err := chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:    store,
		batch:    batch,
		splitter: splitter,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	// Metadata is attached to the document and every chunk. Chunk-level
	// keys like section titles come from here.
	Metadata map[string]string
}

// Ingest chunks a document, embeds the chunks and stores everything.
// Re-ingesting a filename replaces the previous version wholesale. Chunks
// whose embedding failed are stored without vectors and listed in the
// summary; semantic search skips them until re-ingestion.
func (p *Pipeline) Ingest(ctx context.Context, filename, content string, opts *IngestOptions) (*Summary, error) {
	start := time.Now()
	if opts == nil {
		opts = &IngestOptions{}
	}

	doc := &core.Document{
		Id:         core.IDFromContent(filename),
		Filename:   filename,
		RawContent: content,
		InsertedAt: time.Now().UTC(),
		Metadata:   opts.Metadata,
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	pieces := p.splitter.Split(content)
	if len(pieces) == 0 {
		return nil, ErrNoChunks
	}
	doc.ChunkCount = len(pieces)

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(pieces), 1)
		tracker.Start()
	}
	vectors, stats, err := p.batch.embedAll(ctx, pieces, tracker)
	if err != nil {
		return nil, err
	}
	if tracker != nil {
		tracker.Finish()
	}

	chunks := make([]*core.Chunk, len(pieces))
	var failed []int
	for i, text := range pieces {
		chunks[i] = &core.Chunk{
			// The index keeps identical windows of one document distinct.
			Id:         core.IDFromContent(fmt.Sprintf("%s:%d:%s", filename, i, text)),
			DocumentId: doc.Id,
			Text:       text,
			Index:      i,
			Vector:     vectors[i],
			Metadata:   opts.Metadata,
		}
		if vectors[i] == nil {
			failed = append(failed, i)
		}
	}

	if err := p.store.UpsertDocument(ctx, doc, chunks); err != nil {
		return nil, err
	}

	for _, listener := range p.listeners {
		listener.DocumentUpserted(doc, chunks)
	}

	summary := &Summary{
		DocumentID:   doc.Id,
		Filename:     filename,
		ChunkCount:   len(chunks),
		Embedded:     stats.Succeeded + stats.CacheHits,
		CacheHits:    stats.CacheHits,
		FailedChunks: failed,
		Duration:     time.Since(start),
	}
	p.logger.Info("document ingested",
		"filename", filename,
		"chunks", summary.ChunkCount,
		"embedded", summary.Embedded,
		"cache_hits", summary.CacheHits,
		"failed", len(failed))
	return summary, nil
}

// Delete removes a document by filename and notifies listeners.
func (p *Pipeline) Delete(ctx context.Context, filename string) error {
	id := core.IDFromContent(filename)
	if err := p.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	for _, listener := range p.listeners {
		listener.DocumentRemoved(id)
	}
	p.logger.Info("document removed", "filename", filename)
	return nil
}
