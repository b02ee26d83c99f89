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

import (
	"fmt"
	"strings"
)

// ValidateConcept validates a Concept according to domain rules.
//
// Validation rules:
//   - Id must not be empty
//   - a concept must not list itself as its own parent
//
// Labels and definitions may be empty: some taxonomy exports carry bare
// identifier nodes and the pipeline tolerates them.
func ValidateConcept(c *Concept) error {
	if c == nil {
		return fmt.Errorf("%w: nil concept", ErrInvalidConcept)
	}
	if strings.TrimSpace(c.Id) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConcept, ErrEmptyConceptId)
	}
	for _, p := range c.Parents {
		if p == c.Id {
			return fmt.Errorf("%w: concept %s is its own parent", ErrInvalidConcept, c.Id)
		}
	}
	return nil
}

// ValidateItem validates one pipeline input item.
func ValidateItem(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyItem
	}
	return nil
}

// ParseVerdict converts a string to a Verdict, case-insensitively.
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(strings.ToLower(strings.TrimSpace(s)))
	if !ValidVerdict(string(v)) {
		return "", fmt.Errorf("%w: %q", ErrUnknownVerdict, s)
	}
	return v, nil
}
