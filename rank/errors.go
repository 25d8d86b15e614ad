package rank

import "errors"

var (
	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrScorerRequired is returned when a lexical scorer is not provided.
	ErrScorerRequired = errors.New("lexical scorer required")

	// ErrVectorSearchFailed wraps a vector store failure during retrieval.
	ErrVectorSearchFailed = errors.New("vector search failed")
)
