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


// Package storage defines the persistence interfaces consumed by the
// retrieval engine and the serialization helpers shared by their
// implementations.
//
// # Interfaces
//
//   - VectorStore: persists chunk vectors and answers nearest-neighbor
//     queries
//   - CacheBackend: key-value store with per-entry TTL
//   - PersistentBackend: durable CacheBackend with hit-count bookkeeping
//     and expiry sweeps
//   - DistributedBackend: cross-process byte-payload cache
//
// # Implementation Packages
//
//   - storage/badger: embedded BadgerDB implementation of VectorStore and
//     PersistentBackend, including in-memory constructors for tests
//   - storage/bunpg: PostgreSQL/pgvector implementation of VectorStore via
//     the bun ORM
//
// Serialization uses the MUS binary format; the serializers live in the
// core package and are generated by cmd/musgen.
package storage
