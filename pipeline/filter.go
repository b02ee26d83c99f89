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
	"errors"
	"math"
	"sort"

	"github.com/poiesic/lexmap/core"
	"github.com/poiesic/lexmap/embedding"
	"github.com/poiesic/lexmap/lexical"
)

const (
	// descendantDepth bounds the id set a branch tag scopes a search to.
	descendantDepth = 4

	// globalFallbackMin triggers one unscoped search when a segment's
	// branch-scoped searches found fewer unique hits.
	globalFallbackMin = 5

	// stage1MaxCandidates hard-caps the merged candidate set.
	stage1MaxCandidates = 60

	embeddingTopK     = 30
	embeddingScale    = 85.0 // cosine similarity maps onto 0-85
	embeddingMinScore = 30.0
)

// filterCandidates runs the branch-scoped lexical retrieval for every
// tagged segment, falls back globally when a segment finds too little,
// covers mandatory branches, and optionally augments from the vector index.
// The merged set keeps one candidate per id with the max score and the
// union of sources.
func (p *Pipeline) filterCandidates(ctx context.Context, item string, segments []core.Segment,
	opts Options, meta *core.ItemMetadata) []core.ScopedCandidate {

	merged := make(map[string]*core.ScopedCandidate)

	taggedBranches := make(map[string]bool)
	for _, seg := range segments {
		for _, branch := range seg.Branches {
			taggedBranches[branch] = true
		}
	}

	for _, seg := range segments {
		if !seg.Tagged() {
			continue
		}
		// An empty descendant set (tags without a matching root) yields
		// zero scoped hits and lands in the global fallback below.
		idFilter := p.descendantSet(seg.Branches)

		unique := make(map[string]bool)
		if len(idFilter) > 0 {
			queries := append([]string{seg.Text}, seg.Paraphrases...)
			for _, query := range queries {
				hits := p.search.Search(query, lexical.Options{
					Threshold: opts.Threshold,
					IDFilter:  idFilter,
				})
				for _, h := range hits {
					unique[h.Id] = true
					mergeHit(merged, h, core.SourceLexical, seg.Text)
				}
			}
		}

		// A thin branch-scoped result usually means the tags were too
		// narrow; one unscoped pass recovers cross-branch matches.
		if len(unique) < globalFallbackMin {
			hits := p.search.Search(seg.Text, lexical.Options{
				Threshold:    opts.Threshold,
				PerBranchCap: opts.MaxPerBranch,
			})
			for _, h := range hits {
				mergeHit(merged, h, core.SourceGlobal, seg.Text)
			}
		}
	}

	// Untagged runs (pre-scan fallback) get one unscoped search so the
	// pipeline still produces candidates.
	if len(taggedBranches) == 0 {
		hits := p.search.Search(item, lexical.Options{
			Threshold:    opts.Threshold,
			PerBranchCap: opts.MaxPerBranch,
		})
		for _, h := range hits {
			mergeHit(merged, h, core.SourceGlobal, item)
		}
	}

	for _, branch := range opts.MandatoryBranches {
		if taggedBranches[branch] {
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
		for _, h := range hits {
			mergeHit(merged, h, core.SourceMandatory, item)
		}
	}

	p.augmentFromVectors(ctx, item, taggedBranches, merged, meta)

	out := make([]core.ScopedCandidate, 0, len(merged))
	for _, c := range merged {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Id < out[j].Id
	})
	if len(out) > stage1MaxCandidates {
		out = out[:stage1MaxCandidates]
	}
	return out
}

// augmentFromVectors adds semantic nearest neighbors the lexical passes
// missed. An unavailable index is a status, not an error; the run simply
// proceeds without this source.
func (p *Pipeline) augmentFromVectors(ctx context.Context, item string,
	taggedBranches map[string]bool, merged map[string]*core.ScopedCandidate, meta *core.ItemMetadata) {

	if p.vectors == nil {
		return
	}

	var branches []string
	for branch := range taggedBranches {
		branches = append(branches, branch)
	}
	sort.Strings(branches)

	matches, err := p.vectors.Query(ctx, item, embeddingTopK, branches)
	if err != nil {
		if !errors.Is(err, embedding.ErrUnavailable) {
			p.logger.Warn("vector query failed", "err", err)
			meta.RecordDegradation("embedding", err.Error())
		}
		return
	}

	for _, m := range matches {
		if _, seen := merged[m.Id]; seen {
			continue
		}
		score := math.Round(clamp(m.Similarity, 0, 1)*embeddingScale*10) / 10
		if score < embeddingMinScore {
			continue
		}
		c, err := p.oracle.Get(m.Id)
		if err != nil {
			continue
		}
		branch := p.resolver.ResolveBranch(m.Id)
		if p.registry.Excluded(branch) {
			continue
		}
		merged[m.Id] = &core.ScopedCandidate{
			Id:      m.Id,
			Label:   c.DisplayLabel(),
			Score:   score,
			Branch:  branch,
			Sources: []core.CandidateSource{core.SourceEmbedding},
		}
		meta.AddedFromEmbedding++
	}
}

// descendantSet resolves branch names to the id set a scoped search may
// return: each branch root plus its descendants to a fixed depth.
func (p *Pipeline) descendantSet(branches []string) map[string]bool {
	set := make(map[string]bool)
	for _, branch := range branches {
		rootId, ok := p.branchRootId(branch)
		if !ok {
			continue
		}
		set[rootId] = true
		for _, id := range p.oracle.Children(rootId, descendantDepth) {
			set[id] = true
		}
	}
	return set
}

// branchRootId finds the root concept whose display label is the branch
// name.
func (p *Pipeline) branchRootId(branch string) (string, bool) {
	for _, id := range p.oracle.BranchRoots() {
		c, err := p.oracle.Get(id)
		if err != nil {
			continue
		}
		if c.DisplayLabel() == branch {
			return id, true
		}
	}
	return "", false
}

// mergeHit folds one lexical hit into the best-per-id map.
func mergeHit(merged map[string]*core.ScopedCandidate, h lexical.Hit,
	source core.CandidateSource, segment string) {

	existing, ok := merged[h.Id]
	if !ok {
		merged[h.Id] = &core.ScopedCandidate{
			Id:       h.Id,
			Label:    h.Label,
			Score:    h.Score,
			Branch:   h.Branch,
			Sources:  []core.CandidateSource{source},
			Segments: []string{segment},
		}
		return
	}
	if h.Score > existing.Score {
		existing.Score = h.Score
	}
	existing.MergeSources(source)
	for _, s := range existing.Segments {
		if s == segment {
			return
		}
	}
	existing.Segments = append(existing.Segments, segment)
}
