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
	"context"
	"sort"

	"github.com/poiesic/lexmap/core"
	"github.com/poiesic/lexmap/lexical"
)

// Run maps every item through the staged pipeline, one item at a time.
// Items are processed sequentially; LLM throughput, not CPU, is the
// bottleneck, and sequential calls keep local model servers responsive.
//
// Run only fails on invalid input. Upstream failures degrade the affected
// stage and are recorded in the per-item metadata.
func (p *Pipeline) Run(ctx context.Context, items []string, opts Options) (*core.Response, error) {
	opts = opts.withDefaults()

	for _, item := range items {
		if err := core.ValidateItem(item); err != nil {
			return nil, err
		}
	}

	if p.vectors != nil {
		p.vectors.EnsureBuilt()
	}

	response := &core.Response{}
	for _, item := range items {
		mapping := p.runItem(ctx, item, opts)
		response.Items = append(response.Items, *mapping)
	}
	response.Registry = p.registry.Live()
	return response, nil
}

// runItem drives one item through Stage 0 to the differentiator.
func (p *Pipeline) runItem(ctx context.Context, item string, opts Options) *core.ItemMapping {
	item = sanitizeInput(item)
	p.monitor.StartItem(item)

	meta := core.ItemMetadata{VerdictTallies: make(map[core.Verdict]int)}

	segments, preScanFallback := p.preScan(ctx, item)
	meta.SegmentCount = len(segments)
	meta.PreScanFallback = preScanFallback
	if preScanFallback {
		meta.RecordDegradation("prescan", "whole item used as single segment")
	}
	p.monitor.AfterPreScan(segments, preScanFallback)

	candidates := p.filterCandidates(ctx, item, segments, opts, &meta)
	p.monitor.AfterFilter(candidates)

	candidates = p.expandThinBranches(ctx, item, segments, candidates, opts, &meta)
	meta.ScopedCandidates = len(candidates)
	p.monitor.AfterExpansion(meta.AddedFromExpansion)

	ranked, rankFallback := p.rankCandidates(ctx, item, segments, candidates, &meta)
	meta.RankedCandidates = len(ranked)
	meta.RankFallback = rankFallback
	p.monitor.AfterRank(ranked, rankFallback)

	labels := make(map[string]string, len(candidates))
	branches := make(map[string]string, len(candidates))
	sources := make(map[string][]core.CandidateSource, len(candidates))
	for _, c := range candidates {
		labels[c.Id] = c.Label
		branches[c.Id] = c.Branch
		sources[c.Id] = c.Sources
	}

	judged, judgeFallback := p.judgeCandidates(ctx, item, segments, ranked, labels, &meta)
	meta.JudgeFallback = judgeFallback
	for _, j := range judged {
		meta.VerdictTallies[j.Verdict]++
	}
	p.monitor.AfterJudge(judged, judgeFallback)

	judged, differentiated := p.differentiate(item, judged)
	meta.Differentiated = differentiated

	mapping := &core.ItemMapping{
		Item:     item,
		Branches: p.groupByBranch(judged, labels, branches, sources, opts.MaxPerBranch),
		Metadata: meta,
	}
	p.monitor.FinishItem(mapping)
	return mapping
}

// groupByBranch assembles the final branch-grouped answer. Zero-score
// entries never appear; each branch keeps its top maxPerBranch by score.
func (p *Pipeline) groupByBranch(judged []core.JudgedCandidate, labels map[string]string,
	branches map[string]string, sources map[string][]core.CandidateSource,
	maxPerBranch int) map[string][]core.MappedConcept {

	out := make(map[string][]core.MappedConcept)
	for _, j := range judged {
		if j.AdjustedScore <= 0 {
			continue
		}
		branch := branches[j.Id]
		if branch == "" {
			branch = p.resolver.ResolveBranch(j.Id)
		}
		if len(out[branch]) >= maxPerBranch {
			continue
		}
		out[branch] = append(out[branch], core.MappedConcept{
			Id:        j.Id,
			Label:     labels[j.Id],
			Score:     j.AdjustedScore,
			Verdict:   j.Verdict,
			Reasoning: j.Reasoning,
			Sources:   sources[j.Id],
		})
	}
	return out
}

// MandatoryFallback produces minimal per-branch coverage for an item using
// lexical search only: the guaranteed floor when the full pipeline is not
// worth its LLM calls.
func (p *Pipeline) MandatoryFallback(item string, branchNames []string, opts Options) map[string][]core.MappedConcept {
	opts = opts.withDefaults()
	item = sanitizeInput(item)

	out := make(map[string][]core.MappedConcept)
	for _, branch := range branchNames {
		if p.registry.Excluded(branch) {
			continue
		}
		idFilter := p.descendantSet([]string{branch})
		if len(idFilter) == 0 {
			continue
		}
		hits := p.search.Search(item, lexical.Options{
			Threshold: opts.Threshold,
			IDFilter:  idFilter,
		})
		if len(hits) > opts.MaxPerBranch {
			hits = hits[:opts.MaxPerBranch]
		}
		for _, h := range hits {
			out[branch] = append(out[branch], core.MappedConcept{
				Id:      h.Id,
				Label:   h.Label,
				Score:   h.Score,
				Verdict: core.VerdictConfirmed,
				Sources: []core.CandidateSource{core.SourceMandatory},
			})
		}
	}

	for branch := range out {
		sort.Slice(out[branch], func(i, j int) bool {
			if out[branch][i].Score != out[branch][j].Score {
				return out[branch][i].Score > out[branch][j].Score
			}
			return out[branch][i].Id < out[branch][j].Id
		})
	}
	return out
}
