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

package lexmap

import (
	"context"
	"log/slog"

	"github.com/poiesic/lexmap/ai"
	"github.com/poiesic/lexmap/ai/openai"
	"github.com/poiesic/lexmap/core"
	"github.com/poiesic/lexmap/embedding"
	"github.com/poiesic/lexmap/pipeline"
	"github.com/poiesic/lexmap/taxonomy"
)

// Mapper is the top-level facade: it owns the taxonomy oracle, the AI
// provider, the optional vector index, and the mapping pipeline, wiring
// them together once at startup.
type Mapper struct {
	oracle   taxonomy.Oracle
	resolver *taxonomy.Resolver
	registry *taxonomy.Registry
	provider ai.Provider
	vectors  *embedding.Manager
	cache    *embedding.Cache
	pipe     *pipeline.Pipeline
	logger   *slog.Logger
}

// MapperOption configures a Mapper.
type MapperOption func(*mapperOptions)

type mapperOptions struct {
	aiConfig  *ai.Config
	cachePath string
}

// WithAIConfig overrides the default AI provider configuration.
func WithAIConfig(config *ai.Config) MapperOption {
	return func(o *mapperOptions) {
		o.aiConfig = config
	}
}

// WithVectorCachePath enables the on-disk vector cache at the given
// directory. Without it the vector index, when configured, is rebuilt on
// every process start.
func WithVectorCachePath(path string) MapperOption {
	return func(o *mapperOptions) {
		o.cachePath = path
	}
}

// NewMapper creates a Mapper over the taxonomy snapshot at taxonomyPath.
func NewMapper(taxonomyPath string, opts ...MapperOption) (*Mapper, error) {
	options := &mapperOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	oracle, err := taxonomy.LoadSnapshot(taxonomyPath)
	if err != nil {
		return nil, err
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		return nil, err
	}

	m := &Mapper{
		oracle:   oracle,
		resolver: taxonomy.NewResolver(oracle),
		registry: taxonomy.NewRegistry(),
		provider: provider,
		logger:   slog.Default(),
	}

	// The embedder is optional; without one the pipeline runs lexical-only.
	if embedder := provider.Embedder(); embedder != nil {
		var cache *embedding.Cache
		if options.cachePath != "" {
			cache, err = embedding.OpenCache(options.cachePath, false)
			if err != nil {
				provider.Close()
				return nil, err
			}
			m.cache = cache
		}

		var managerOpts []embedding.ManagerOption
		if cache != nil {
			managerOpts = append(managerOpts, embedding.WithCache(cache))
		}
		m.vectors, err = embedding.NewManager(embedder, oracle, m.resolver, managerOpts...)
		if err != nil {
			m.closeResources()
			return nil, err
		}
	}

	pipelineOpts := []pipeline.PipelineOption{}
	if m.vectors != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithVectorIndex(m.vectors))
	}
	m.pipe, err = pipeline.New(oracle, m.resolver, m.registry, provider.Completer(), pipelineOpts...)
	if err != nil {
		m.closeResources()
		return nil, err
	}

	return m, nil
}

// Close releases the provider, the vector index worker, and the cache.
func (m *Mapper) Close() error {
	return m.closeResources()
}

func (m *Mapper) closeResources() error {
	if m.vectors != nil {
		m.vectors.Release()
	}

	var firstErr error
	if m.cache != nil {
		if err := m.cache.Close(); err != nil {
			m.logger.Error("error closing vector cache", "err", err)
			firstErr = err
		}
	}
	if err := m.provider.Close(); err != nil {
		m.logger.Error("error closing AI provider", "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Map runs the full pipeline over the items.
func (m *Mapper) Map(ctx context.Context, items []string, opts pipeline.Options) (*core.Response, error) {
	return m.pipe.Run(ctx, items, opts)
}

// MandatoryFallback produces lexical-only minimal coverage for the named
// branches without spending any LLM calls.
func (m *Mapper) MandatoryFallback(item string, branches []string, opts pipeline.Options) map[string][]core.MappedConcept {
	return m.pipe.MandatoryFallback(item, branches, opts)
}

// BuildIndex synchronously builds the vector index. Returns
// embedding.ErrUnavailable when no embedder is configured.
func (m *Mapper) BuildIndex(ctx context.Context) error {
	if m.vectors == nil {
		return embedding.ErrUnavailable
	}
	return m.vectors.BuildSync(ctx)
}

// IndexStatus reports the vector index state.
func (m *Mapper) IndexStatus() embedding.Status {
	if m.vectors == nil {
		return embedding.StatusUnavailable
	}
	return m.vectors.Status()
}

// Oracle exposes the loaded taxonomy for read-only queries.
func (m *Mapper) Oracle() taxonomy.Oracle {
	return m.oracle
}

// Registry exposes the branch registry.
func (m *Mapper) Registry() *taxonomy.Registry {
	return m.registry
}
