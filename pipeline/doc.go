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

// Package pipeline maps free-form item text onto taxonomy concepts through
// a staged sequence: pre-scan segmentation, branch-scoped lexical filtering,
// LLM-assisted expansion, LLM ranking, judge validation, and score
// differentiation.
//
// Every stage degrades rather than fails: an unreachable model, malformed
// JSON, or an unavailable vector index reduces answer quality but never
// aborts a run. The worst case is a lexically ranked answer with no LLM
// contribution.
package pipeline
