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
	"math"
	"sort"

	"github.com/poiesic/lexmap/core"
	"github.com/poiesic/lexmap/lexical"
)

const (
	// differentiatorSpread is the score range the tied set is redistributed
	// across, anchored at the top score.
	differentiatorSpread = 50.0

	// differentiatorStep is the extra per-rank decrement guaranteeing
	// strictly decreasing scores after one-decimal rounding.
	differentiatorStep = 0.4
)

// differentiate breaks large score ties. When more than max(3, 40% of the
// set) share the same rounded score, candidates are reordered by a lexical
// relevance signal and redistributed across a fixed spread so the final
// ranking is strictly decreasing. Sets below the trigger come back
// unmodified.
func (p *Pipeline) differentiate(item string, judged []core.JudgedCandidate) ([]core.JudgedCandidate, bool) {
	if len(judged) < 2 {
		return judged, false
	}

	tally := make(map[float64]int)
	maxTied := 0
	for _, j := range judged {
		rounded := math.Round(j.AdjustedScore)
		tally[rounded]++
		if tally[rounded] > maxTied {
			maxTied = tally[rounded]
		}
	}
	trigger := math.Max(3, 0.4*float64(len(judged)))
	if float64(maxTied) <= trigger {
		return judged, false
	}

	type scored struct {
		candidate core.JudgedCandidate
		signal    float64
	}
	entries := make([]scored, len(judged))
	for i, j := range judged {
		entries[i] = scored{candidate: j, signal: p.relevanceSignal(item, j.Id)}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.candidate.AdjustedScore != b.candidate.AdjustedScore {
			return a.candidate.AdjustedScore > b.candidate.AdjustedScore
		}
		if a.signal != b.signal {
			return a.signal > b.signal
		}
		return a.candidate.Id < b.candidate.Id
	})

	top := entries[0].candidate.AdjustedScore
	step := differentiatorSpread / math.Max(float64(len(entries)-1), 1)

	out := make([]core.JudgedCandidate, len(entries))
	for i, e := range entries {
		c := e.candidate
		score := top - float64(i)*step - float64(i)*differentiatorStep
		c.AdjustedScore = math.Round(clamp(score, 1, 99)*10) / 10
		out[i] = c
	}
	return out, true
}

// relevanceSignal measures how lexically tied a candidate is to the item.
func (p *Pipeline) relevanceSignal(item, id string) float64 {
	c, err := p.oracle.Get(id)
	if err != nil {
		return 0
	}
	return lexical.ComputeSignal(item, c.Label, c.Definition, c.Synonyms).Relevance()
}
