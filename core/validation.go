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


package core

import (
	"fmt"
	"strings"
)

// ValidateChunkParams validates sliding-window chunking parameters.
//
// Validation rules:
//   - size must be at least 1
//   - overlap must be non-negative
//   - overlap must be strictly less than size
func ValidateChunkParams(size, overlap int) error {
	if size < 1 {
		return fmt.Errorf("%w: size %d must be at least 1", ErrInvalidChunkParams, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap %d must be non-negative", ErrInvalidChunkParams, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: overlap %d must be less than size %d", ErrInvalidChunkParams, overlap, size)
	}
	return nil
}

// ValidateQuery validates a retrieval query string.
// Whitespace-only queries are rejected.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// ValidateDocument validates a document before ingestion.
//
// Validation rules:
//   - Filename must not be empty
//   - RawContent must not be empty
//
// NOT validated (populated by the pipeline):
//   - ChunkCount
//   - InsertedAt
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrEmptyDocument)
	}
	if doc.Filename == "" {
		return ErrEmptyFilename
	}
	if doc.RawContent == "" {
		return ErrEmptyDocument
	}
	return nil
}

// ValidateVector checks that a vector matches the expected dimension.
// A mismatch is a consistency error and must surface immediately.
func ValidateVector(vector []float32, dimension int) error {
	if dimension > 0 && len(vector) != dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), dimension)
	}
	return nil
}
