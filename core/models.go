package core

import (
	"fmt"
	"strings"
)

// Concept is an immutable node in the reference taxonomy. Concepts are owned
// by the taxonomy oracle and are never mutated by the mapping pipeline.
type Concept struct {
	Id         string
	Label      string
	Definition string
	Synonyms   []string
	Parents    []string // subclass-of edges; polyhierarchy tolerated
	Children   []string
	SeeAlso    []string // cross-reference edges
}

// DisplayLabel returns the label, falling back to the id when the label is
// empty. Some taxonomy exports carry bare identifier nodes.
func (c *Concept) DisplayLabel() string {
	if strings.TrimSpace(c.Label) == "" {
		return c.Id
	}
	return c.Label
}

// Segment is a substring of the input produced by the pre-scan stage,
// annotated with the branches it appears to concern. Segments are per-run
// and never persisted.
type Segment struct {
	Text        string
	Branches    []string
	Reasoning   string
	Paraphrases []string
}

// Tagged reports whether the segment carries at least one branch tag.
func (s *Segment) Tagged() bool {
	return len(s.Branches) > 0
}

// CandidateSource identifies which retrieval path surfaced a candidate.
type CandidateSource string

const (
	SourceLexical   CandidateSource = "lexical"
	SourceGlobal    CandidateSource = "global"
	SourceMandatory CandidateSource = "mandatory"
	SourceExpansion CandidateSource = "expansion"
	SourceEmbedding CandidateSource = "embedding"
)

// ScopedCandidate is a concept enriched with a lexical relevance score and
// the branches/segments that surfaced it. Identity is the concept id: a run
// holds at most one ScopedCandidate per id; merges keep the max score and
// the union of sources.
type ScopedCandidate struct {
	Id       string
	Label    string
	Score    float64 // 0-100
	Branch   string  // resolved top-level branch
	Sources  []CandidateSource
	Segments []string // segment texts that surfaced this candidate
}

// MergeSources appends any sources not already present.
func (c *ScopedCandidate) MergeSources(sources ...CandidateSource) {
	for _, s := range sources {
		found := false
		for _, existing := range c.Sources {
			if existing == s {
				found = true
				break
			}
		}
		if !found {
			c.Sources = append(c.Sources, s)
		}
	}
}

// RankedCandidate is the ranking stage's assessment of one candidate.
type RankedCandidate struct {
	Id        string
	Score     float64 // clamped to [0,100]
	Reasoning string
}

// Verdict is the judge stage's categorical assessment of a candidate.
type Verdict string

const (
	VerdictConfirmed Verdict = "confirmed"
	VerdictBoosted   Verdict = "boosted"
	VerdictPenalized Verdict = "penalized"
	VerdictRejected  Verdict = "rejected"
)

// ValidVerdict reports whether s is one of the four judge verdicts.
func ValidVerdict(s string) bool {
	switch Verdict(s) {
	case VerdictConfirmed, VerdictBoosted, VerdictPenalized, VerdictRejected:
		return true
	}
	return false
}

// JudgedCandidate is the judge stage's output for one ranked candidate.
// Rejected candidates carry AdjustedScore 0 and never reach the final
// response.
type JudgedCandidate struct {
	Id            string
	OriginalScore float64
	AdjustedScore float64
	Verdict       Verdict
	Reasoning     string
}

// MappedConcept is a final, branch-grouped answer entry for one item.
type MappedConcept struct {
	Id        string
	Label     string
	Score     float64
	Verdict   Verdict
	Reasoning string
	Sources   []CandidateSource
}

// BranchInfo describes one top-level branch for presentation.
type BranchInfo struct {
	Key   string
	Name  string
	Color string
}

// ItemMetadata is the per-item audit record. Informational only; it never
// influences ranking.
type ItemMetadata struct {
	SegmentCount       int
	PreScanFallback    bool
	ScopedCandidates   int
	AddedFromExpansion int
	AddedFromEmbedding int
	RankedCandidates   int
	RankFallback       bool
	JudgeFallback      bool
	VerdictTallies     map[Verdict]int
	Differentiated     bool
	Degradations       []string // human-readable per-stage fallback reasons
}

// RecordDegradation appends a stage fallback note to the audit record.
func (m *ItemMetadata) RecordDegradation(stage, reason string) {
	m.Degradations = append(m.Degradations, fmt.Sprintf("%s: %s", stage, reason))
}

// ItemMapping is the complete answer for one input item: candidates grouped
// by resolved branch, plus audit metadata.
type ItemMapping struct {
	Item     string
	Branches map[string][]MappedConcept
	Metadata ItemMetadata
}

// Response is the result of mapping a batch of items.
type Response struct {
	Items    []ItemMapping
	Registry []BranchInfo
}
