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


// Package mock provides a deterministic ai.Embedder test double.
//
// The mock generates stable pseudo-random vectors from a text hash, so the
// same text always embeds to the same vector, without any external service.
// Tests can pin exact vectors via the Vectors map or inject behavior through
// the function fields.
package mock
