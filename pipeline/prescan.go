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
	"strings"

	"github.com/poiesic/lexmap/ai"
	"github.com/poiesic/lexmap/core"
)

// segmentResponse matches the JSON the pre-scan model returns.
type segmentResponse struct {
	Segments []struct {
		Text      string   `json:"text"`
		Branches  []string `json:"branches"`
		Reasoning string   `json:"reasoning"`
		Synonyms  []string `json:"synonyms"`
	} `json:"segments"`
}

// preScan segments the item and tags each segment with candidate branches.
// It never fails: any model or parse problem yields one synthetic segment
// covering the whole input, with no branch tags.
func (p *Pipeline) preScan(ctx context.Context, item string) (segments []core.Segment, fallback bool) {
	fallbackSegments := []core.Segment{{Text: item}}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: buildPreScanPrompt(p.registry.LiveNames())},
		{Role: ai.RoleUser, Content: wrapAsData(item)},
	}
	response, err := p.completer.Complete(ctx, messages, ai.CompleteOptions{JSONMode: true})
	if err != nil {
		p.logger.Warn("pre-scan call failed, using whole item", "err", err)
		return fallbackSegments, true
	}

	var parsed segmentResponse
	if err := decodeResponse(response, &parsed); err != nil {
		p.logger.Warn("pre-scan returned malformed JSON, using whole item", "err", err)
		return fallbackSegments, true
	}

	for _, s := range parsed.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segments = append(segments, core.Segment{
			Text:        text,
			Branches:    p.validBranches(s.Branches),
			Reasoning:   strings.TrimSpace(s.Reasoning),
			Paraphrases: trimAll(s.Synonyms),
		})
	}
	if len(segments) == 0 {
		p.logger.Warn("pre-scan returned no usable segments, using whole item")
		return fallbackSegments, true
	}

	return segments, false
}

// validBranches keeps only live, non-excluded registry branches. Unknown
// names are dropped silently; the model occasionally invents plausible ones.
func (p *Pipeline) validBranches(names []string) []string {
	var out []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if p.registry.Known(name) {
			out = append(out, name)
		}
	}
	return out
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
