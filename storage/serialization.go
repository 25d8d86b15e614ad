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


package storage

import (
	"github.com/perigee/recall/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, core.DocumentMUS.Size(*doc))
	core.DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := core.DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	doc.Metadata = normalizeMetadata(doc.Metadata)
	return &doc, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	chunk.Metadata = normalizeMetadata(chunk.Metadata)
	return &chunk, nil
}

// MarshalCacheEntry serializes a CacheEntry to bytes.
func MarshalCacheEntry(entry *core.CacheEntry) []byte {
	buf := make([]byte, core.CacheEntryMUS.Size(*entry))
	core.CacheEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalCacheEntry deserializes a CacheEntry from bytes.
func UnmarshalCacheEntry(data []byte) (*core.CacheEntry, error) {
	entry, _, err := core.CacheEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalResults serializes a retrieval result list to bytes.
// Used as the opaque payload format for every query-cache tier.
func MarshalResults(results []core.RetrievalResult) []byte {
	buf := make([]byte, core.ResultListMUS.Size(results))
	core.ResultListMUS.Marshal(results, buf)
	return buf
}

// UnmarshalResults deserializes a retrieval result list from bytes.
func UnmarshalResults(data []byte) ([]core.RetrievalResult, error) {
	results, _, err := core.ResultListMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Metadata = normalizeMetadata(results[i].Metadata)
	}
	return results, nil
}

// normalizeMetadata maps decoded zero-length maps back to nil so that
// round-trips of records without metadata compare equal.
func normalizeMetadata(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

// MarshalVector serializes an embedding vector to bytes.
// Used as the payload format for the embedding cache.
func MarshalVector(vector []float32) []byte {
	buf := make([]byte, core.Float32SliceMUS.Size(vector))
	core.Float32SliceMUS.Marshal(vector, buf)
	return buf
}

// UnmarshalVector deserializes an embedding vector from bytes.
func UnmarshalVector(data []byte) ([]float32, error) {
	vector, _, err := core.Float32SliceMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return vector, nil
}
