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


package lexical

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/poiesic/lexmap/core"
	"github.com/poiesic/lexmap/taxonomy"
)

// Search engine constants. Like the scoring weights, the decay exponents
// and caps are tuned values carried as configuration.
const (
	oracleFetchLimit = 50 // per oracle query per variant

	ancestorMinScore = 50.0 // direct hit score required to surface ancestors
	ancestorMaxDepth = 3
	ancestorDecay    = 0.6

	bridgeTopHits  = 15
	bridgeMinScore = 20.0
	bridgeMaxDepth = 2
	bridgeDecay    = 0.85
)

// Hit is one scored lexical search result.
type Hit struct {
	Id     string
	Label  string
	Score  float64
	Branch string
}

// Options configures a search call.
type Options struct {
	// Threshold is the minimum score as a fraction of 100 (0.3 keeps hits
	// scoring >= 30).
	Threshold float64

	// PerBranchCap limits hits per resolved branch in unfiltered mode.
	// Zero means no cap.
	PerBranchCap int

	// IDFilter restricts hits to a known id set (branch-scoped mode).
	IDFilter map[string]bool

	// BranchFilter restricts hits to the named branches (branch-scoped
	// mode). Ignored when IDFilter is set.
	BranchFilter map[string]bool

	// Bridging enables cross-branch bridging in unfiltered mode: ancestors
	// of strong hits seed one extra search each, surfacing branches with no
	// direct hits.
	Bridging bool
}

func (o Options) filtered() bool {
	return len(o.IDFilter) > 0 || len(o.BranchFilter) > 0
}

// Engine performs variant-expanded lexical search over the taxonomy oracle,
// re-scoring every raw hit against the original query.
type Engine struct {
	oracle   taxonomy.Oracle
	resolver *taxonomy.Resolver
	registry *taxonomy.Registry
	logger   *slog.Logger
}

// NewEngine creates a search engine. All three collaborators are required.
func NewEngine(oracle taxonomy.Oracle, resolver *taxonomy.Resolver, registry *taxonomy.Registry) *Engine {
	return &Engine{
		oracle:   oracle,
		resolver: resolver,
		registry: registry,
		logger:   slog.Default().With("component", "lexical-search"),
	}
}

// Search runs the full variant pipeline for a query term and returns hits
// sorted by score descending.
func (e *Engine) Search(term string, opts Options) []Hit {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	minScore := opts.Threshold * 100

	// Collect raw concepts across all variants, union by id.
	raw := make(map[string]*core.Concept)
	for _, variant := range e.variants(term) {
		for _, c := range e.oracle.SearchByLabel(variant, oracleFetchLimit) {
			raw[c.Id] = c
		}
		for _, c := range e.oracle.SearchByPrefix(variant, oracleFetchLimit) {
			raw[c.Id] = c
		}
		for _, c := range e.oracle.SearchByDefinition(variant, oracleFetchLimit) {
			raw[c.Id] = c
		}
	}

	// Re-score every raw hit against the original query.
	hits := make(map[string]Hit)
	for id, c := range raw {
		score := Score(term, c.Label, c.Definition, c.Synonyms)
		if score < minScore {
			continue
		}
		branch := e.resolver.ResolveBranch(id)
		if !e.admit(id, branch, opts) {
			continue
		}
		hits[id] = Hit{Id: id, Label: c.DisplayLabel(), Score: score, Branch: branch}
	}

	if !opts.filtered() {
		e.surfaceAncestors(hits, minScore)
		if opts.Bridging {
			e.bridgeBranches(term, hits, minScore)
		}
	}

	e.logger.Debug("lexical search complete",
		"term", term, "raw", len(raw), "kept", len(hits))

	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Id < out[j].Id
	})

	if !opts.filtered() && opts.PerBranchCap > 0 {
		out = capPerBranch(out, opts.PerBranchCap)
	}
	return out
}

// admit applies the mode-dependent branch policy to one hit.
func (e *Engine) admit(id, branch string, opts Options) bool {
	if len(opts.IDFilter) > 0 {
		return opts.IDFilter[id]
	}
	if len(opts.BranchFilter) > 0 {
		return opts.BranchFilter[branch]
	}
	return !e.registry.Excluded(branch)
}

// variants generates the query expansion set: the full phrase, contiguous
// sub-phrases, individual content words longest first, stem-prefix
// truncations, then domain-term expansions.
func (e *Engine) variants(term string) []string {
	norm := normalizeText(term)
	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if len(v) >= 2 && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	add(norm)

	words := strings.Fields(norm)
	if len(words) >= 3 {
		for length := 2; length < len(words); length++ {
			for start := 0; start+length <= len(words); start++ {
				phrase := strings.Join(words[start:start+length], " ")
				if hasContentWord(phrase) {
					add(phrase)
				}
			}
		}
	}

	content := ContentWords(norm)
	sort.SliceStable(content, func(i, j int) bool {
		return len(content[i]) > len(content[j])
	})
	for _, word := range content {
		if len(word) >= 3 {
			add(word)
		}
	}

	for _, word := range content {
		if len(word) >= 6 {
			add(word[:len(word)-2])
		}
	}

	for _, expansion := range expandDomainTerms(term) {
		add(expansion)
	}
	return out
}

func hasContentWord(phrase string) bool {
	for _, tok := range tokenize(phrase) {
		if !stopWords[tok] {
			return true
		}
	}
	return false
}

// surfaceAncestors adds decayed-score ancestors of strong hits: broader
// concepts the caller may prefer over a narrow leaf.
func (e *Engine) surfaceAncestors(hits map[string]Hit, minScore float64) {
	type seed struct {
		id    string
		score float64
	}
	var seeds []seed
	for id, h := range hits {
		if h.Score >= ancestorMinScore {
			seeds = append(seeds, seed{id, h.Score})
		}
	}

	for _, s := range seeds {
		visited := map[string]bool{s.id: true}
		frontier := e.oracle.Parents(s.id)
		for depth := 1; depth <= ancestorMaxDepth && len(frontier) > 0; depth++ {
			decayed := s.score * math.Pow(ancestorDecay, float64(depth))
			if decayed < minScore {
				break
			}
			var next []string
			for _, pid := range frontier {
				if visited[pid] {
					continue
				}
				visited[pid] = true
				if e.oracle.IsBranchRoot(pid) {
					continue
				}
				if _, direct := hits[pid]; direct {
					continue
				}
				c, err := e.oracle.Get(pid)
				if err != nil {
					continue
				}
				branch := e.resolver.ResolveBranch(pid)
				if e.registry.Excluded(branch) {
					continue
				}
				score := math.Round(decayed*10) / 10
				if existing, ok := hits[pid]; !ok || score > existing.Score {
					hits[pid] = Hit{Id: pid, Label: c.DisplayLabel(), Score: score, Branch: branch}
				}
				next = append(next, e.oracle.Parents(pid)...)
			}
			frontier = next
		}
	}
}

// bridgeBranches re-searches content words from ancestor labels of the
// strongest hits, admitting only concepts in branches that had no direct
// hit. This pulls in sibling vocabulary the original phrasing missed.
func (e *Engine) bridgeBranches(term string, hits map[string]Hit, minScore float64) {
	coveredBranches := make(map[string]bool)
	sorted := make([]Hit, 0, len(hits))
	for _, h := range hits {
		coveredBranches[h.Branch] = true
		sorted = append(sorted, h)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if len(sorted) > bridgeTopHits {
		sorted = sorted[:bridgeTopHits]
	}

	searched := make(map[string]bool)
	for _, h := range sorted {
		if h.Score < bridgeMinScore {
			break
		}
		visited := map[string]bool{h.Id: true}
		frontier := e.oracle.Parents(h.Id)
		for depth := 1; depth <= bridgeMaxDepth && len(frontier) > 0; depth++ {
			accept := h.Score * math.Pow(bridgeDecay, float64(depth))
			var next []string
			for _, pid := range frontier {
				if visited[pid] {
					continue
				}
				visited[pid] = true
				ancestor, err := e.oracle.Get(pid)
				if err != nil {
					continue
				}
				next = append(next, e.oracle.Parents(pid)...)

				for _, word := range ContentWords(ancestor.Label) {
					if len(word) < 3 || searched[word] {
						continue
					}
					searched[word] = true
					for _, c := range e.oracle.SearchByLabel(word, oracleFetchLimit) {
						if _, ok := hits[c.Id]; ok {
							continue
						}
						branch := e.resolver.ResolveBranch(c.Id)
						if coveredBranches[branch] || e.registry.Excluded(branch) {
							continue
						}
						score := math.Round(accept*10) / 10
						if score < minScore {
							continue
						}
						hits[c.Id] = Hit{Id: c.Id, Label: c.DisplayLabel(), Score: score, Branch: branch}
					}
				}
			}
			frontier = next
		}
	}
}

func capPerBranch(hits []Hit, cap int) []Hit {
	counts := make(map[string]int)
	out := hits[:0]
	for _, h := range hits {
		if counts[h.Branch] >= cap {
			continue
		}
		counts[h.Branch]++
		out = append(out, h)
	}
	return out
}
