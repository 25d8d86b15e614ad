package badger

import (
	"context"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/perigee/recall/core"
	"github.com/perigee/recall/storage"
)

// Store implements storage.VectorStore on a BadgerDB backend.
// Vector search is a full scan over chunk records; cosine similarity is
// computed per chunk and candidates are ordered by descending similarity.
type Store struct {
	backend *Backend
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore creates a vector store on the given backend.
func NewStore(backend *Backend) *Store {
	return &Store{backend: backend}
}

// Close is a no-op; the lifetime of the underlying backend is managed by
// its owner.
func (s *Store) Close() error {
	return nil
}

// UpsertDocument stores a document and its chunks. Chunks from a previous
// ingestion of the same document ID are removed first.
func (s *Store) UpsertDocument(ctx context.Context, doc *core.Document, chunks []*core.Chunk) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteDocumentChunks(tx, doc.Id); err != nil {
			return err
		}

		if err := tx.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc)); err != nil {
			return err
		}

		for _, chunk := range chunks {
			if err := tx.Set(makeChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			indexKey := makeChunkByDocKey(doc.Id, chunk.Id)
			if err := tx.Set(indexKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// DeleteDocument removes a document and cascades to all of its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id core.ID) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeDocumentKey(id)); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		if err := deleteDocumentChunks(tx, id); err != nil {
			return err
		}
		return tx.Delete(makeDocumentKey(id))
	}, true)
}

// deleteDocumentChunks removes every chunk owned by the document, plus the
// index entries. Must be called within a write transaction.
func deleteDocumentChunks(tx *badger.Txn, docID core.ID) error {
	prefix := makePartialChunkByDocKey(docID)

	// Collect first; badger iterators don't tolerate deletes mid-scan.
	var indexKeys [][]byte
	var chunkIDs []core.ID

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		indexKeys = append(indexKeys, item.KeyCopy(nil))
		err := item.Value(func(val []byte) error {
			id, err := storage.UnmarshalID(val)
			if err != nil {
				return err
			}
			chunkIDs = append(chunkIDs, id)
			return nil
		})
		if err != nil {
			iter.Close()
			return err
		}
	}
	iter.Close()

	for _, key := range indexKeys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	for _, id := range chunkIDs {
		if err := tx.Delete(makeChunkKey(id)); err != nil {
			return err
		}
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			doc, err = storage.UnmarshalDocument(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments retrieves all stored documents without raw content.
func (s *Store) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	var docs []*core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				doc, err := storage.UnmarshalDocument(val)
				if err != nil {
					return err
				}
				doc.RawContent = ""
				docs = append(docs, doc)
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
	return docs, nil
}

// Search returns the topN candidates ordered by descending cosine similarity.
func (s *Store) Search(ctx context.Context, vector []float32, topN int) ([]*storage.Candidate, error) {
	if topN <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*storage.Candidate
	filenames := make(map[core.ID]string)

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip chunks without embeddings
			if len(chunk.Vector) == 0 {
				continue
			}

			source, ok := filenames[chunk.DocumentId]
			if !ok {
				source, err = documentFilename(tx, chunk.DocumentId)
				if err != nil {
					return err
				}
				filenames[chunk.DocumentId] = source
			}

			results = append(results, &storage.Candidate{
				Chunk:      chunk,
				Source:     source,
				Similarity: cosineSimilarity(vector, chunk.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending; chunk ID ascending keeps ties stable.
	slices.SortFunc(results, func(a, b *storage.Candidate) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		if a.Chunk.Id < b.Chunk.Id {
			return -1
		}
		if a.Chunk.Id > b.Chunk.Id {
			return 1
		}
		return 0
	})

	if len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// Chunks retrieves every stored chunk without vectors.
func (s *Store) Chunks(ctx context.Context) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return err
				}
				chunk.Vector = nil
				chunks = append(chunks, chunk)
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
	return chunks, nil
}

// documentFilename resolves a document's filename inside a transaction.
func documentFilename(tx *badger.Txn, docID core.ID) (string, error) {
	item, err := tx.Get(makeDocumentKey(docID))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			// Orphaned chunk; keep searching rather than failing retrieval.
			return "", nil
		}
		return "", err
	}
	var filename string
	err = item.Value(func(val []byte) error {
		doc, err := storage.UnmarshalDocument(val)
		if err != nil {
			return err
		}
		filename = doc.Filename
		return nil
	})
	return filename, err
}

// cosineSimilarity computes cosine similarity between two vectors, clamped
// to [0,1]; zero-magnitude or mismatched-length inputs map to 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return float32(sim)
}
