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

import "errors"

// Validation errors. These indicate bad caller input and are returned
// before any external call is made.
var (
	// ErrInvalidChunkParams indicates chunk size/overlap parameters that
	// cannot produce a valid window (overlap >= size, or size < 1).
	ErrInvalidChunkParams = errors.New("invalid chunk parameters")

	// ErrEmptyQuery indicates a retrieval query with no content.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrEmptyDocument indicates a document with no content.
	ErrEmptyDocument = errors.New("document content cannot be empty")

	// ErrEmptyFilename indicates a document without a filename.
	ErrEmptyFilename = errors.New("document filename cannot be empty")
)

// Provider and consistency errors.
var (
	// ErrProviderFailed indicates an embedding or vector-store call failure.
	// In a batch this is per-item and non-fatal to the batch.
	ErrProviderFailed = errors.New("provider call failed")

	// ErrDimensionMismatch indicates an embedding whose dimension does not
	// match the model's fixed dimension. Fatal; vectors are never silently
	// truncated or padded.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Cache errors. Callers treat a cache failure as a miss and proceed.
var (
	// ErrCacheUnavailable indicates an unreachable cache backend.
	ErrCacheUnavailable = errors.New("cache backend unavailable")
)
