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
)

type judgeResponse struct {
	Judged []struct {
		Id            string  `json:"id"`
		AdjustedScore float64 `json:"adjusted_score"`
		Verdict       string  `json:"verdict"`
		Reasoning     string  `json:"reasoning"`
	} `json:"judged"`
}

// judgeCandidates runs the validation pass over the ranked list. Rejected
// candidates are excluded outright; candidates the judge never mentions pass
// through confirmed at their ranked score. A call or parse failure confirms
// everything.
func (p *Pipeline) judgeCandidates(ctx context.Context, item string, segments []core.Segment,
	ranked []core.RankedCandidate, labels map[string]string,
	meta *core.ItemMetadata) (judged []core.JudgedCandidate, fallback bool) {

	if len(ranked) == 0 {
		return nil, false
	}

	byId := make(map[string]core.RankedCandidate, len(ranked))
	for _, r := range ranked {
		byId[r.Id] = r
	}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: buildJudgePrompt(segments, ranked, labels)},
		{Role: ai.RoleUser, Content: wrapAsData(item)},
	}
	response, err := p.completer.Complete(ctx, messages, ai.CompleteOptions{JSONMode: true})
	if err != nil {
		p.logger.Warn("judge call failed, confirming all candidates", "err", err)
		meta.RecordDegradation("judge", err.Error())
		return confirmAll(ranked), true
	}

	var parsed judgeResponse
	if err := decodeResponse(response, &parsed); err != nil {
		p.logger.Warn("judge returned malformed JSON, confirming all candidates", "err", err)
		meta.RecordDegradation("judge", "malformed response")
		return confirmAll(ranked), true
	}

	covered := make(map[string]bool)
	for _, j := range parsed.Judged {
		original, ok := byId[j.Id]
		if !ok || covered[j.Id] {
			continue
		}
		verdict, err := core.ParseVerdict(strings.TrimSpace(j.Verdict))
		if err != nil {
			continue
		}
		covered[j.Id] = true

		adjusted := clamp(j.AdjustedScore, 0, 100)
		if verdict == core.VerdictRejected {
			// Rejection always zeroes the score, whatever the judge wrote.
			adjusted = 0
		}
		judged = append(judged, core.JudgedCandidate{
			Id:            j.Id,
			OriginalScore: original.Score,
			AdjustedScore: adjusted,
			Verdict:       verdict,
			Reasoning:     j.Reasoning,
		})
	}

	for _, r := range ranked {
		if !covered[r.Id] {
			judged = append(judged, confirmed(r))
		}
	}

	kept := judged[:0]
	for _, j := range judged {
		if j.Verdict == core.VerdictRejected {
			continue
		}
		kept = append(kept, j)
	}
	judged = kept

	sort.Slice(judged, func(i, j int) bool {
		if judged[i].AdjustedScore != judged[j].AdjustedScore {
			return judged[i].AdjustedScore > judged[j].AdjustedScore
		}
		return judged[i].Id < judged[j].Id
	})
	return judged, false
}

func confirmAll(ranked []core.RankedCandidate) []core.JudgedCandidate {
	out := make([]core.JudgedCandidate, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, confirmed(r))
	}
	return out
}

func confirmed(r core.RankedCandidate) core.JudgedCandidate {
	return core.JudgedCandidate{
		Id:            r.Id,
		OriginalScore: r.Score,
		AdjustedScore: r.Score,
		Verdict:       core.VerdictConfirmed,
		Reasoning:     r.Reasoning,
	}
}
