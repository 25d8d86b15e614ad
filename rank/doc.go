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


// Package rank provides hybrid semantic and lexical ranking over the
// document corpus.
//
// The Ranker type implements a multi-stage ranking algorithm that combines:
//   - Vector search using cosine similarity over chunk embeddings
//   - BM25 lexical scoring over incrementally maintained corpus statistics
//   - Re-ranking signals: section-title matches, same-document adjacency,
//     and a penalty for very short chunks
//
// Signals are min-max normalized and fused with a weighted sum to produce
// the final ordering. A query with no recognized lexical terms falls back
// to pure semantic ordering.
package rank
