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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidConcept indicates a Concept failed validation.
	ErrInvalidConcept = errors.New("invalid concept")

	// ErrEmptyConceptId indicates the concept Id field is empty.
	ErrEmptyConceptId = errors.New("concept id cannot be empty")

	// ErrEmptyItem indicates an input item with no text content.
	ErrEmptyItem = errors.New("item text cannot be empty")

	// ErrUnknownVerdict indicates a verdict string outside the four
	// recognized judge verdicts.
	ErrUnknownVerdict = errors.New("unknown verdict")
)
