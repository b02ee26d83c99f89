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

package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/lexmap/ai"
	"github.com/poiesic/lexmap/taxonomy"
)

// Status describes whether the vector index can serve queries.
type Status string

const (
	// StatusUnavailable means no embedder is configured, or a build failed.
	StatusUnavailable Status = "unavailable"
	// StatusBuilding means a build is in progress.
	StatusBuilding Status = "building"
	// StatusReady means the index is loaded and queryable.
	StatusReady Status = "ready"
)

// ErrUnavailable is returned by queries when the index is not ready.
// Callers degrade to lexical-only behavior.
var ErrUnavailable = errors.New("embedding index unavailable")

const (
	embedBatchSize = 32
	// Over-fetch factor applied before branch filtering so that a filtered
	// query can still return k matches.
	queryOverfetch = 5
)

// Manager owns the concept vector index: building it from the taxonomy,
// caching it, and answering similarity queries against it. All methods are
// safe for concurrent use.
type Manager struct {
	embedder ai.Embedder
	oracle   taxonomy.Oracle
	resolver *taxonomy.Resolver
	cache    *Cache
	pool     *ants.Pool
	logger   *slog.Logger

	mu       sync.RWMutex
	index    *Index
	status   Status
	building bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCache attaches a persistent vector cache. Without one the index is
// rebuilt on every process start.
func WithCache(cache *Cache) ManagerOption {
	return func(m *Manager) {
		m.cache = cache
	}
}

// WithManagerLogger overrides the default logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager. embedder may be nil, in which case the
// manager stays unavailable and every query returns ErrUnavailable.
func NewManager(embedder ai.Embedder, oracle taxonomy.Oracle, resolver *taxonomy.Resolver, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		embedder: embedder,
		oracle:   oracle,
		resolver: resolver,
		status:   StatusUnavailable,
		logger:   slog.Default().With("component", "embedding"),
	}
	for _, opt := range opts {
		opt(m)
	}

	if embedder != nil {
		pool, err := ants.NewPool(1)
		if err != nil {
			return nil, err
		}
		m.pool = pool
	}

	return m, nil
}

// Release frees the background worker. The cache, if any, is owned by the
// caller and is not closed here.
func (m *Manager) Release() {
	if m.pool != nil {
		m.pool.Release()
	}
}

// Status reports the current index state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// EnsureBuilt kicks off an asynchronous build unless the index is already
// ready or a build is running. Build errors are logged, not returned; the
// manager simply stays unavailable.
func (m *Manager) EnsureBuilt() {
	if m.embedder == nil {
		return
	}

	m.mu.Lock()
	if m.building || m.status == StatusReady {
		m.mu.Unlock()
		return
	}
	m.building = true
	m.status = StatusBuilding
	m.mu.Unlock()

	err := m.pool.Submit(func() {
		err := m.build(context.Background())
		m.mu.Lock()
		m.building = false
		if err != nil {
			m.status = StatusUnavailable
		}
		m.mu.Unlock()
		if err != nil {
			m.logger.Error("index build failed", "err", err)
		}
	})
	if err != nil {
		m.mu.Lock()
		m.building = false
		m.status = StatusUnavailable
		m.mu.Unlock()
		m.logger.Error("index build submit failed", "err", err)
	}
}

// BuildSync builds the index in the calling goroutine. Used by the CLI's
// build-index command.
func (m *Manager) BuildSync(ctx context.Context) error {
	if m.embedder == nil {
		return ErrUnavailable
	}

	m.mu.Lock()
	if m.building {
		m.mu.Unlock()
		return errors.New("build already in progress")
	}
	m.building = true
	m.status = StatusBuilding
	m.mu.Unlock()

	err := m.build(ctx)

	m.mu.Lock()
	m.building = false
	if err != nil {
		m.status = StatusUnavailable
	}
	m.mu.Unlock()
	return err
}

// build loads the index from cache when possible, otherwise embeds every
// concept and stores the result.
func (m *Manager) build(ctx context.Context) error {
	fingerprint := taxonomy.Fingerprint(m.oracle)
	identity := m.embedder.ModelIdentity()

	if m.cache != nil {
		idx, err := m.cache.Load(identity, fingerprint)
		if err != nil {
			return err
		}
		if idx != nil {
			m.install(idx)
			return nil
		}
	}

	ids := make([]string, 0, m.oracle.Count())
	texts := make([]string, 0, m.oracle.Count())
	for concept := range m.oracle.All() {
		ids = append(ids, concept.Id)
		texts = append(texts, conceptText(concept.Label, concept.Definition))
	}

	m.logger.Info("building vector index", "concepts", len(ids), "model", identity)

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := m.embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return fmt.Errorf("embedding batch at %d: %w", start, err)
		}
		if len(batch) != end-start {
			return fmt.Errorf("embedding batch at %d returned %d vectors, want %d",
				start, len(batch), end-start)
		}
		for _, v := range batch {
			vectors = append(vectors, Normalize(v))
		}
	}

	idx := NewIndex(ids, vectors, identity, fingerprint)
	if m.cache != nil {
		if err := m.cache.Store(idx); err != nil {
			m.logger.Warn("failed to persist vector cache", "err", err)
		}
	}

	m.install(idx)
	m.logger.Info("vector index ready", "concepts", idx.Len(), "dimension", idx.Dimension())
	return nil
}

func (m *Manager) install(idx *Index) {
	m.mu.Lock()
	m.index = idx
	m.status = StatusReady
	m.mu.Unlock()
}

// Query embeds the text and returns up to k nearest concepts. When branches
// is non-empty, only concepts resolving to one of those branches are
// returned; the underlying search over-fetches to compensate. Returns
// ErrUnavailable when the index is not ready.
func (m *Manager) Query(ctx context.Context, text string, k int, branches []string) ([]Match, error) {
	idx, err := m.ready()
	if err != nil {
		return nil, err
	}

	query, err := m.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	query = Normalize(query)

	if len(branches) == 0 {
		return idx.Search(query, k, nil), nil
	}

	wanted := make(map[string]bool, len(branches))
	for _, b := range branches {
		wanted[b] = true
	}
	matches := idx.Search(query, k*queryOverfetch, func(id string) bool {
		return wanted[m.resolver.ResolveBranch(id)]
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// ScoreIDs embeds the text and returns its similarity to each of the given
// concept ids. Ids absent from the index are omitted from the result.
func (m *Manager) ScoreIDs(ctx context.Context, text string, ids []string) (map[string]float64, error) {
	idx, err := m.ready()
	if err != nil {
		return nil, err
	}

	query, err := m.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	return idx.Score(Normalize(query), ids), nil
}

func (m *Manager) ready() (*Index, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status != StatusReady || m.index == nil {
		return nil, ErrUnavailable
	}
	return m.index, nil
}

// conceptText is the string embedded for a concept.
func conceptText(label, definition string) string {
	if definition == "" {
		return label
	}
	return label + ": " + definition
}
