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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/poiesic/lexmap/core"
)

// snapshotConcept is the JSON wire form of one taxonomy node.
type snapshotConcept struct {
	Id         string   `json:"id"`
	Label      string   `json:"label"`
	Definition string   `json:"definition,omitempty"`
	Synonyms   []string `json:"synonyms,omitempty"`
	Parents    []string `json:"parents,omitempty"`
	SeeAlso    []string `json:"see_also,omitempty"`
}

// LoadSnapshot reads a taxonomy snapshot (a JSON array of concepts) from
// disk and builds an in-memory oracle over it.
func LoadSnapshot(path string) (*InMemoryOracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy snapshot: %w", err)
	}

	var raw []snapshotConcept
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing taxonomy snapshot: %w", err)
	}

	concepts := make([]*core.Concept, len(raw))
	for i, sc := range raw {
		concepts[i] = &core.Concept{
			Id:         sc.Id,
			Label:      sc.Label,
			Definition: sc.Definition,
			Synonyms:   sc.Synonyms,
			Parents:    sc.Parents,
			SeeAlso:    sc.SeeAlso,
		}
	}
	return NewInMemoryOracle(concepts)
}

// LazyLoader loads a taxonomy snapshot at most once, behind a lock. It is
// the process-wide oracle initializer: callers share the loaded oracle,
// which is read-only after construction.
type LazyLoader struct {
	path   string
	logger *slog.Logger

	once   sync.Once
	oracle *InMemoryOracle
	err    error
}

// NewLazyLoader creates a loader for the snapshot at path. Nothing is read
// until the first Oracle call.
func NewLazyLoader(path string) *LazyLoader {
	return &LazyLoader{
		path:   path,
		logger: slog.Default().With("component", "taxonomy-loader"),
	}
}

// Oracle returns the shared oracle, loading the snapshot on first use.
// Concurrent callers block on the single load; subsequent calls are cheap.
func (l *LazyLoader) Oracle() (*InMemoryOracle, error) {
	l.once.Do(func() {
		start := time.Now()
		l.oracle, l.err = LoadSnapshot(l.path)
		if l.err != nil {
			l.logger.Error("failed to load taxonomy snapshot", "path", l.path, "err", l.err)
			return
		}
		l.logger.Info("taxonomy snapshot loaded",
			"path", l.path,
			"concepts", l.oracle.Count(),
			"branches", len(l.oracle.BranchRoots()),
			"elapsed", time.Since(start))
	})
	return l.oracle, l.err
}
