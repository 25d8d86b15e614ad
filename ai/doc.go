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


// Package ai provides abstractions for the embedding services used by Recall.
//
// The package defines the Embedder interface and its configuration. It
// follows the dependency inversion principle: the retrieval and ingestion
// packages depend on the abstraction, never on a concrete provider.
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: deterministic test double for unit testing without external
//     services
//
// Public constructors (openai.NewEmbedder) return the ai.Embedder INTERFACE
// to enforce abstraction. Test utility constructors (mock.NewEmbedder)
// return the CONCRETE type so tests can inject behavior and assert on call
// counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithModel("text-embedding-3-small"), ai.WithDimensions(1536))
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := embedder.EmbedText(ctx, "hello world")
package ai
