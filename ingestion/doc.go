// Package ingestion provides pipeline orchestration for adding documents
// to the retrieval corpus.
//
// The Pipeline type manages the ingestion workflow for documents:
//   - Splitting raw text into overlapping chunks
//   - Generating embeddings in batches through the embedding cache
//   - Persisting documents and chunks to the vector store
//   - Notifying listeners so lexical statistics and query caches stay
//     consistent with the corpus
//
// Batches are embedded concurrently using a worker pool. A failed batch
// leaves its chunks unembedded and is reported in the summary; it never
// fails the whole ingestion.
package ingestion
