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


// Package embedding provides the semantic retrieval side of the mapper: an
// exact inner-product nearest-neighbor index over unit-normalized concept
// embeddings.
//
// The index is built lazily and off the request path: a Manager owns the
// lifecycle, offloads construction to a worker pool (a full taxonomy can
// take minutes to embed), and reports "building"/"unavailable" status to
// concurrent callers instead of blocking them. Built vectors are cached on
// disk in BadgerDB, keyed by the embedding model identity and the taxonomy
// content fingerprint; any mismatch invalidates the cache and triggers a
// rebuild.
//
// The embedding capability as a whole is optional. Every entry point
// degrades to ErrUnavailable rather than failing the caller.
package embedding
