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

package pipeline

import (
	"errors"
	"log/slog"

	"github.com/poiesic/lexmap/ai"
	"github.com/poiesic/lexmap/embedding"
	"github.com/poiesic/lexmap/lexical"
	"github.com/poiesic/lexmap/taxonomy"
)

// Defaults applied when Options fields are zero.
const (
	defaultThreshold    = 0.3
	defaultMaxPerBranch = 10
)

var ErrCompleterRequired = errors.New("pipeline: completer is required")

// Options configures one mapping run.
type Options struct {
	// Threshold is the minimum lexical score as a fraction of 100.
	// Zero means the default of 0.3.
	Threshold float64

	// MaxPerBranch caps the final answer entries per branch.
	// Zero means the default of 10.
	MaxPerBranch int

	// MandatoryBranches always receive at least one branch-scoped search on
	// the full item text, regardless of pre-scan tagging.
	MandatoryBranches []string
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = defaultThreshold
	}
	if o.MaxPerBranch <= 0 {
		o.MaxPerBranch = defaultMaxPerBranch
	}
	return o
}

// Pipeline maps item text onto taxonomy concepts. It is safe for concurrent
// use; all per-run state lives on the stack of Run.
type Pipeline struct {
	oracle    taxonomy.Oracle
	resolver  *taxonomy.Resolver
	registry  *taxonomy.Registry
	search    *lexical.Engine
	completer ai.Completer
	vectors   *embedding.Manager
	monitor   Monitor
	logger    *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithVectorIndex attaches the embedding index manager. Without it the
// embedding augmentation step is skipped entirely.
func WithVectorIndex(manager *embedding.Manager) PipelineOption {
	return func(p *Pipeline) {
		p.vectors = manager
	}
}

// WithMonitor attaches observation hooks for the staged run.
func WithMonitor(monitor Monitor) PipelineOption {
	return func(p *Pipeline) {
		p.monitor = monitor
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a Pipeline over the given taxonomy and completion capability.
func New(oracle taxonomy.Oracle, resolver *taxonomy.Resolver, registry *taxonomy.Registry,
	completer ai.Completer, opts ...PipelineOption) (*Pipeline, error) {
	if oracle == nil {
		return nil, taxonomy.ErrOracleRequired
	}
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	p := &Pipeline{
		oracle:    oracle,
		resolver:  resolver,
		registry:  registry,
		search:    lexical.NewEngine(oracle, resolver, registry),
		completer: completer,
		monitor:   &noopMonitor{},
		logger:    slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.monitor == nil {
		p.monitor = &noopMonitor{}
	}
	return p, nil
}
