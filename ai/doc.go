// Copyright 2025 Poiesic Systems
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


// Package ai provides abstractions for the AI capabilities consumed by the
// mapping pipeline.
//
// Two capabilities are defined:
//
//   - Completer: free-form text completion over a chat-style message list
//   - Embedder: vector embeddings for semantic similarity
//
// The pipeline depends only on these interfaces; vendor specifics live in
// the implementation sub-packages:
//
//   - ai/openai: production implementation over any OpenAI-compatible API
//     (Ollama, LocalAI, vLLM, hosted OpenAI)
//   - ai/mock: test doubles with func-field behavior injection
//
// Public constructors in ai/openai return interface types to keep callers
// decoupled from the concrete client. Mock constructors return concrete
// types so tests can inject behavior and assert call counts.
//
// The embedding capability is optional: a Provider built without an
// embedding model returns a nil Embedder, and the pipeline degrades the
// embedding-dependent stages rather than failing.
package ai
