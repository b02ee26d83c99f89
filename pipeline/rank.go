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

	"github.com/poiesic/lexmap/ai"
	"github.com/poiesic/lexmap/core"
)

// rankFallbackTop is how many Stage-1 candidates survive when the ranking
// call fails; their lexical scores stand in as rank scores.
const rankFallbackTop = 20

type rankResponse struct {
	Ranked []struct {
		Id        string  `json:"id"`
		Score     float64 `json:"score"`
		Reasoning string  `json:"reasoning"`
	} `json:"ranked"`
}

// rankCandidates asks the model to score every candidate against the item.
// Ids the model invents are dropped; scores are clamped to [0,100]. A call
// or parse failure degrades to the top lexical candidates unchanged.
func (p *Pipeline) rankCandidates(ctx context.Context, item string, segments []core.Segment,
	candidates []core.ScopedCandidate, meta *core.ItemMetadata) (ranked []core.RankedCandidate, fallback bool) {

	if len(candidates) == 0 {
		return nil, false
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.Id] = true
	}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: buildRankPrompt(segments, candidates)},
		{Role: ai.RoleUser, Content: wrapAsData(item)},
	}
	response, err := p.completer.Complete(ctx, messages, ai.CompleteOptions{JSONMode: true})
	if err != nil {
		p.logger.Warn("ranking call failed, keeping lexical order", "err", err)
		meta.RecordDegradation("rank", err.Error())
		return lexicalFallback(candidates), true
	}

	var parsed rankResponse
	if err := decodeResponse(response, &parsed); err != nil {
		p.logger.Warn("ranking returned malformed JSON, keeping lexical order", "err", err)
		meta.RecordDegradation("rank", "malformed response")
		return lexicalFallback(candidates), true
	}

	seen := make(map[string]bool)
	for _, r := range parsed.Ranked {
		if !known[r.Id] || seen[r.Id] {
			continue
		}
		seen[r.Id] = true
		ranked = append(ranked, core.RankedCandidate{
			Id:        r.Id,
			Score:     clamp(r.Score, 0, 100),
			Reasoning: r.Reasoning,
		})
	}
	if len(ranked) == 0 {
		p.logger.Warn("ranking returned no usable candidates, keeping lexical order")
		meta.RecordDegradation("rank", "empty result")
		return lexicalFallback(candidates), true
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Id < ranked[j].Id
	})
	return ranked, false
}

// lexicalFallback converts the top Stage-1 candidates directly into ranked
// candidates. The input is already sorted by score descending.
func lexicalFallback(candidates []core.ScopedCandidate) []core.RankedCandidate {
	n := len(candidates)
	if n > rankFallbackTop {
		n = rankFallbackTop
	}
	out := make([]core.RankedCandidate, 0, n)
	for _, c := range candidates[:n] {
		out = append(out, core.RankedCandidate{Id: c.Id, Score: c.Score})
	}
	return out
}
