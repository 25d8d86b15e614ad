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


// Package querycache caches retrieval results across up to three tiers:
// a bounded in-process LRU, an optional distributed backend shared between
// processes, and a durable persistent backend.
//
// Lookups walk the tiers in order and backfill faster tiers on a hit.
// Writes populate every tier. A failing tier is treated as a miss and
// never blocks retrieval. Any corpus change invalidates the whole
// namespace; cached embeddings are unaffected since chunk content is
// addressed by hash.
package querycache
