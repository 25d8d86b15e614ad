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


// Package bunpg implements the vector store on PostgreSQL with the
// pgvector extension, for deployments where the corpus outgrows the
// embedded store or must be shared between processes.
package bunpg

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/perigee/recall/core"
	"github.com/perigee/recall/storage"
)

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID         int64             `bun:"id,pk"`
	Filename   string            `bun:"filename,notnull"`
	RawContent string            `bun:"raw_content,notnull"`
	ChunkCount int               `bun:"chunk_count,notnull"`
	InsertedAt time.Time         `bun:"inserted_at,notnull"`
	Metadata   map[string]string `bun:"metadata,type:jsonb"`
}

type chunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`

	ID         int64             `bun:"id,pk"`
	DocumentID int64             `bun:"document_id,notnull"`
	Text       string            `bun:"chunk_text,notnull"`
	Index      int               `bun:"chunk_index,notnull"`
	Embedding  []float32         `bun:"embedding,type:vector(768)"`
	Metadata   map[string]string `bun:"metadata,type:jsonb"`
}

// searchRow carries a chunk plus the columns computed by the search query.
type searchRow struct {
	chunkRow
	Source     string  `bun:"source"`
	Similarity float32 `bun:"similarity"`
}

// Store implements storage.VectorStore on PostgreSQL/pgvector.
// Nearest-neighbor search is delegated to the database via the cosine
// distance operator, so it benefits from pgvector indexes.
type Store struct {
	db *bun.DB
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithQueryLogging attaches the bundebug hook, printing every SQL query.
func WithQueryLogging() Option {
	return func(s *Store) {
		s.db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
}

// NewStore connects to PostgreSQL using the given DSN.
func NewStore(dsn string, opts ...Option) *Store {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	store := &Store{db: bun.NewDB(sqldb, pgdialect.New())}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Init creates the vector extension and tables if they don't exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}
	if _, err := s.db.NewCreateTable().Model((*documentRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewCreateTable().Model((*chunkRow)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertDocument stores a document and its chunks, replacing any chunks
// from a previous ingestion of the same document ID.
func (s *Store) UpsertDocument(ctx context.Context, doc *core.Document, chunks []*core.Chunk) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		docID := int64(doc.Id)
		if _, err := tx.NewDelete().
			Model((*chunkRow)(nil)).
			Where("document_id = ?", docID).
			Exec(ctx); err != nil {
			return err
		}

		row := toDocumentRow(doc)
		if _, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (id) DO UPDATE").
			Set("filename = EXCLUDED.filename").
			Set("raw_content = EXCLUDED.raw_content").
			Set("chunk_count = EXCLUDED.chunk_count").
			Set("inserted_at = EXCLUDED.inserted_at").
			Set("metadata = EXCLUDED.metadata").
			Exec(ctx); err != nil {
			return err
		}

		if len(chunks) == 0 {
			return nil
		}
		rows := make([]*chunkRow, len(chunks))
		for i, chunk := range chunks {
			rows[i] = toChunkRow(chunk)
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

// DeleteDocument removes a document and cascades to its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id core.ID) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*chunkRow)(nil)).
			Where("document_id = ?", int64(id)).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*documentRow)(nil)).
			Where("id = ?", int64(id)).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	row := new(documentRow)
	err := s.db.NewSelect().
		Model(row).
		Where("id = ?", int64(id)).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return fromDocumentRow(row), nil
}

// ListDocuments retrieves all stored documents without raw content.
func (s *Store) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	var rows []*documentRow
	err := s.db.NewSelect().
		Model(&rows).
		ExcludeColumn("raw_content").
		Order("filename ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]*core.Document, len(rows))
	for i, row := range rows {
		docs[i] = fromDocumentRow(row)
	}
	return docs, nil
}

// Search returns the topN candidates ordered by ascending cosine distance.
func (s *Store) Search(ctx context.Context, vector []float32, topN int) ([]*storage.Candidate, error) {
	if topN <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	param := vectorParam(vector)
	var rows []searchRow
	err := s.db.NewSelect().
		Model((*chunkRow)(nil)).
		ColumnExpr("c.*").
		ColumnExpr("COALESCE(d.filename, '') AS source").
		ColumnExpr("1 - (c.embedding <=> ?) AS similarity", param).
		Join("LEFT JOIN documents AS d ON d.id = c.document_id").
		Where("c.embedding IS NOT NULL").
		OrderExpr("c.embedding <=> ?", param).
		Limit(topN).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	candidates := make([]*storage.Candidate, len(rows))
	for i, row := range rows {
		candidates[i] = &storage.Candidate{
			Chunk:      fromChunkRow(&row.chunkRow),
			Source:     row.Source,
			Similarity: row.Similarity,
		}
	}
	return candidates, nil
}

// Chunks retrieves every stored chunk without vectors.
func (s *Store) Chunks(ctx context.Context) ([]*core.Chunk, error) {
	var rows []*chunkRow
	err := s.db.NewSelect().
		Model(&rows).
		ExcludeColumn("embedding").
		Order("document_id ASC", "chunk_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	chunks := make([]*core.Chunk, len(rows))
	for i, row := range rows {
		chunks[i] = fromChunkRow(row)
	}
	return chunks, nil
}

func toDocumentRow(doc *core.Document) *documentRow {
	return &documentRow{
		ID:         int64(doc.Id),
		Filename:   doc.Filename,
		RawContent: doc.RawContent,
		ChunkCount: doc.ChunkCount,
		InsertedAt: doc.InsertedAt,
		Metadata:   doc.Metadata,
	}
}

func fromDocumentRow(row *documentRow) *core.Document {
	return &core.Document{
		Id:         core.ID(row.ID),
		Filename:   row.Filename,
		RawContent: row.RawContent,
		ChunkCount: row.ChunkCount,
		InsertedAt: row.InsertedAt,
		Metadata:   row.Metadata,
	}
}

func toChunkRow(chunk *core.Chunk) *chunkRow {
	return &chunkRow{
		ID:         int64(chunk.Id),
		DocumentID: int64(chunk.DocumentId),
		Text:       chunk.Text,
		Index:      chunk.Index,
		Embedding:  chunk.Vector,
		Metadata:   chunk.Metadata,
	}
}

func fromChunkRow(row *chunkRow) *core.Chunk {
	return &core.Chunk{
		Id:         core.ID(row.ID),
		DocumentId: core.ID(row.DocumentID),
		Text:       row.Text,
		Index:      row.Index,
		Vector:     row.Embedding,
		Metadata:   row.Metadata,
	}
}

// vectorParam formats a vector as a pgvector literal.
func vectorParam(vector []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
