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


package taxonomy

import (
	"errors"
	"iter"

	"github.com/poiesic/lexmap/core"
)

var (
	// ErrOracleRequired is returned when a component needs an oracle and
	// none was provided.
	ErrOracleRequired = errors.New("taxonomy oracle required")

	// ErrNotFound indicates the requested concept id is not in the taxonomy.
	ErrNotFound = errors.New("concept not found")
)

// Oracle is the read-only view of the reference taxonomy graph. The mapping
// pipeline treats it as an external data source: it never mutates concepts.
// Implementations must be safe for concurrent readers.
type Oracle interface {
	// Get retrieves a concept by id. Returns ErrNotFound for unknown ids.
	Get(id string) (*core.Concept, error)

	// SearchByLabel finds concepts whose label or synonyms contain the term
	// (case-insensitive). Returns up to limit concepts in taxonomy order.
	SearchByLabel(term string, limit int) []*core.Concept

	// SearchByPrefix finds concepts whose label starts with the term
	// (case-insensitive). Returns up to limit concepts.
	SearchByPrefix(term string, limit int) []*core.Concept

	// SearchByDefinition finds concepts whose definition contains the term
	// (case-insensitive). Returns up to limit concepts.
	SearchByDefinition(term string, limit int) []*core.Concept

	// Children enumerates descendant ids of the given concept down to
	// maxDepth levels (1 = direct children only). The starting concept is
	// not included. Unknown ids yield an empty slice.
	Children(id string, maxDepth int) []string

	// Parents returns the parent ids of a concept. Unknown ids yield an
	// empty slice.
	Parents(id string) []string

	// SeeAlso returns cross-reference ids of a concept.
	SeeAlso(id string) []string

	// IsBranchRoot reports whether the id is a top-level branch root.
	IsBranchRoot(id string) bool

	// BranchRoots returns the ids of all top-level branch roots.
	BranchRoots() []string

	// All iterates over every concept in the taxonomy in stable id order.
	All() iter.Seq[*core.Concept]

	// Count returns the number of concepts in the taxonomy.
	Count() int
}
