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
	"math"
	"strings"
)

// Scoring constants. Empirically tuned: the exact values shape ranking
// quality, so they are configuration, not derivation.
const (
	prefixCredit  = 0.8  // both tokens >=3 chars, one prefixes the other
	stemCredit    = 0.7  // both >=5 chars sharing a long common prefix
	reverseWeight = 0.75 // reverse overlap downweight

	exactLabelScore     = 99.0 // normalized label equality
	substringLabelScore = 92.0 // full query inside label, query >=4 chars
	partialLabelScore   = 88.0 // label inside query covering >30% of it
	labelOverlapWeight  = 88.0
	synonymWeight       = 82.0
	defSubstringScore   = 60.0
	defOverlapWeight    = 55.0
	defBonusWeight      = 0.12
	defBonusCap         = 8.0

	maxScore = 99.0
)

// Score rates free text against a concept's label, definition and synonyms
// on a 0-99 scale. It is a pure function: identical inputs always produce
// identical output.
func Score(query, label, definition string, synonyms []string) float64 {
	queryNorm := normalizeText(query)
	queryTokens := contentWords(tokenize(queryNorm))

	labelScore := scoreLabel(queryNorm, queryTokens, label)
	synScore := scoreSynonyms(queryTokens, synonyms)
	defScore := scoreDefinition(queryNorm, queryTokens, definition)

	primary := math.Max(labelScore, synScore)
	var final float64
	if primary > 0 {
		final = primary + math.Min(defScore*defBonusWeight, defBonusCap)
	} else {
		final = defScore
	}

	if final < 0 {
		final = 0
	}
	if final > maxScore {
		final = maxScore
	}
	return math.Round(final*10) / 10
}

func scoreLabel(queryNorm string, queryTokens []string, label string) float64 {
	labelNorm := normalizeText(label)
	if labelNorm == "" {
		return 0
	}

	best := 0.0
	if labelNorm == queryNorm {
		best = exactLabelScore
	}
	if len(queryNorm) >= 4 && strings.Contains(labelNorm, queryNorm) {
		best = math.Max(best, substringLabelScore)
	}
	if strings.Contains(queryNorm, labelNorm) &&
		float64(len(labelNorm)) > 0.3*float64(len(queryNorm)) {
		best = math.Max(best, partialLabelScore)
	}

	labelTokens := contentWords(tokenize(labelNorm))
	best = math.Max(best, overlap(queryTokens, labelTokens)*labelOverlapWeight)
	return best
}

func scoreSynonyms(queryTokens []string, synonyms []string) float64 {
	best := 0.0
	for _, syn := range synonyms {
		synTokens := contentWords(tokenize(syn))
		if o := overlap(queryTokens, synTokens); o > best {
			best = o
		}
	}
	return best * synonymWeight
}

func scoreDefinition(queryNorm string, queryTokens []string, definition string) float64 {
	defNorm := normalizeText(definition)
	if defNorm == "" {
		return 0
	}

	score := 0.0
	if len(queryNorm) >= 4 && strings.Contains(defNorm, queryNorm) {
		score = defSubstringScore
	}
	defTokens := contentWords(tokenize(defNorm))
	return math.Max(score, overlap(queryTokens, defTokens)*defOverlapWeight)
}

// overlap is the bidirectional word overlap of two content-word sets:
// max(forward, reverse), where reverse is downweighted and only applied for
// multi-word targets.
func overlap(queryTokens, targetTokens []string) float64 {
	if len(queryTokens) == 0 || len(targetTokens) == 0 {
		return 0
	}
	fwd := matchFraction(queryTokens, targetTokens)
	rev := 0.0
	if len(targetTokens) >= 2 {
		rev = matchFraction(targetTokens, queryTokens) * reverseWeight
	}
	return math.Max(fwd, rev)
}

// matchFraction is the mean best-match credit of tokens in a against b.
func matchFraction(a, b []string) float64 {
	var sum float64
	for _, tok := range a {
		sum += bestCredit(tok, b)
	}
	return sum / float64(len(a))
}

func bestCredit(tok string, candidates []string) float64 {
	best := 0.0
	for _, cand := range candidates {
		c := tokenCredit(tok, cand)
		if c > best {
			best = c
			if best == 1.0 {
				break
			}
		}
	}
	return best
}

func tokenCredit(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) >= 3 && len(b) >= 3 &&
		(strings.HasPrefix(a, b) || strings.HasPrefix(b, a)) {
		return prefixCredit
	}
	if len(a) >= 5 && len(b) >= 5 {
		common := commonPrefixLen(a, b)
		shorter := len(a)
		if len(b) < shorter {
			shorter = len(b)
		}
		if common >= 4 && float64(common) >= 0.7*float64(shorter) {
			return stemCredit
		}
	}
	return 0
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// Signal carries the raw overlap components used by the score
// differentiator to break ties between equal-scored candidates.
type Signal struct {
	Forward    float64
	Reverse    float64
	Definition float64
	Synonym    float64
}

// ComputeSignal measures the per-component relevance of a query against a
// concept. All components are in [0,1].
func ComputeSignal(query, label, definition string, synonyms []string) Signal {
	queryTokens := contentWords(tokenize(normalizeText(query)))
	labelTokens := contentWords(tokenize(normalizeText(label)))

	var sig Signal
	if len(queryTokens) > 0 && len(labelTokens) > 0 {
		sig.Forward = matchFraction(queryTokens, labelTokens)
		sig.Reverse = matchFraction(labelTokens, queryTokens)
	}
	if definition != "" && len(queryTokens) > 0 {
		defTokens := contentWords(tokenize(normalizeText(definition)))
		if len(defTokens) > 0 {
			sig.Definition = matchFraction(queryTokens, defTokens)
		}
	}
	for _, syn := range synonyms {
		synTokens := contentWords(tokenize(normalizeText(syn)))
		if len(synTokens) == 0 || len(queryTokens) == 0 {
			continue
		}
		if o := matchFraction(queryTokens, synTokens); o > sig.Synonym {
			sig.Synonym = o
		}
	}
	return sig
}

// Relevance collapses a Signal into the differentiator's single ordering
// value: 0.4*forward + 0.3*reverse + 0.3*definition + 0.2*synonym.
func (s Signal) Relevance() float64 {
	return 0.4*s.Forward + 0.3*s.Reverse + 0.3*s.Definition + 0.2*s.Synonym
}
