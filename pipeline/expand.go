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
	"strings"

	"github.com/poiesic/lexmap/ai"
	"github.com/poiesic/lexmap/core"
	"github.com/poiesic/lexmap/lexical"
)

const (
	// expansionTrigger is the candidate count below which a tagged branch
	// gets an LLM expansion pass.
	expansionTrigger = 3

	// expansionMaxSuggestions caps labels requested per branch.
	expansionMaxSuggestions = 5

	// expansionMaxPerBranch caps new candidates admitted per branch.
	expansionMaxPerBranch = 5

	// expansionThreshold is deliberately permissive; suggested labels are
	// re-scored against the original item text afterwards.
	expansionThreshold = 0.2
)

type suggestionResponse struct {
	Suggestions []string `json:"suggestions"`
}

// expandThinBranches asks the model for likely concept labels in every
// tagged branch that ended Stage 1 with too few candidates, then searches
// for those labels branch-scoped. A model or parse failure costs only that
// branch its additions.
func (p *Pipeline) expandThinBranches(ctx context.Context, item string, segments []core.Segment,
	candidates []core.ScopedCandidate, opts Options, meta *core.ItemMetadata) []core.ScopedCandidate {

	perBranch := make(map[string]int)
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		perBranch[c.Branch]++
		seen[c.Id] = true
	}

	var thin []string
	thinSeen := make(map[string]bool)
	for _, seg := range segments {
		for _, branch := range seg.Branches {
			if perBranch[branch] < expansionTrigger && !thinSeen[branch] {
				thinSeen[branch] = true
				thin = append(thin, branch)
			}
		}
	}
	sort.Strings(thin)

	var addedAny bool
	for _, branch := range thin {
		added := p.expandBranch(ctx, item, branch, seen)
		for i := range added {
			candidates = append(candidates, added[i])
			seen[added[i].Id] = true
			meta.AddedFromExpansion++
			addedAny = true
		}
	}

	// Keep the set sorted by score so downstream consumers that take a
	// prefix still see the best candidates first.
	if addedAny {
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Score != candidates[j].Score {
				return candidates[i].Score > candidates[j].Score
			}
			return candidates[i].Id < candidates[j].Id
		})
	}
	return candidates
}

// expandBranch runs one suggestion round for a single branch.
func (p *Pipeline) expandBranch(ctx context.Context, item, branch string,
	seen map[string]bool) []core.ScopedCandidate {

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: buildExpansionPrompt(branch)},
		{Role: ai.RoleUser, Content: wrapAsData(item)},
	}
	response, err := p.completer.Complete(ctx, messages, ai.CompleteOptions{JSONMode: true})
	if err != nil {
		p.logger.Warn("expansion call failed", "branch", branch, "err", err)
		return nil
	}

	var parsed suggestionResponse
	if err := decodeResponse(response, &parsed); err != nil {
		p.logger.Warn("expansion returned malformed JSON", "branch", branch, "err", err)
		return nil
	}

	idFilter := p.descendantSet([]string{branch})
	if len(idFilter) == 0 {
		return nil
	}

	suggestions := parsed.Suggestions
	if len(suggestions) > expansionMaxSuggestions {
		suggestions = suggestions[:expansionMaxSuggestions]
	}

	// Best re-scored hit per id across all suggestions. Scores come from
	// the original item text so expansion candidates rank on the same
	// scale as Stage 1 output.
	best := make(map[string]core.ScopedCandidate)
	for _, suggestion := range suggestions {
		suggestion = strings.TrimSpace(suggestion)
		if suggestion == "" {
			continue
		}
		hits := p.search.Search(suggestion, lexical.Options{
			Threshold: expansionThreshold,
			IDFilter:  idFilter,
		})
		for _, h := range hits {
			if seen[h.Id] {
				continue
			}
			c, err := p.oracle.Get(h.Id)
			if err != nil {
				continue
			}
			score := lexical.Score(item, c.Label, c.Definition, c.Synonyms)
			if existing, ok := best[h.Id]; ok && existing.Score >= score {
				continue
			}
			best[h.Id] = core.ScopedCandidate{
				Id:      h.Id,
				Label:   h.Label,
				Score:   score,
				Branch:  h.Branch,
				Sources: []core.CandidateSource{core.SourceExpansion},
			}
		}
	}

	out := make([]core.ScopedCandidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Id < out[j].Id
	})
	if len(out) > expansionMaxPerBranch {
		out = out[:expansionMaxPerBranch]
	}
	return out
}
