package pipeline

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lexmap/ai"
	"github.com/poiesic/lexmap/ai/mock"
	"github.com/poiesic/lexmap/core"
	"github.com/poiesic/lexmap/embedding"
	"github.com/poiesic/lexmap/taxonomy"
)

func newTestPipeline(t *testing.T, completer ai.Completer, opts ...PipelineOption) *Pipeline {
	t.Helper()
	oracle, err := taxonomy.NewFixtureOracle()
	require.NoError(t, err)
	resolver := taxonomy.NewResolver(oracle)
	registry := taxonomy.NewRegistry()

	p, err := New(oracle, resolver, registry, completer, opts...)
	require.NoError(t, err)
	return p
}

// dispatchCompleter routes calls to canned responses by the opening words
// of each stage's system prompt.
func dispatchCompleter(responses map[string]string) *mock.MockCompleter {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(_ context.Context, messages []ai.Message, _ ai.CompleteOptions) (string, error) {
		system := messages[0].Content
		for marker, response := range responses {
			if strings.Contains(system, marker) {
				return response, nil
			}
		}
		return "{}", nil
	}
	return completer
}

const (
	preScanMarker   = "split them into segments"
	expansionMarker = "You suggest taxonomy concept labels"
	rankMarker      = "You rank candidate taxonomy concepts"
	judgeMarker     = "final reviewer"
)

func TestNewRequiresCollaborators(t *testing.T) {
	oracle, err := taxonomy.NewFixtureOracle()
	require.NoError(t, err)
	resolver := taxonomy.NewResolver(oracle)
	registry := taxonomy.NewRegistry()

	_, err = New(nil, resolver, registry, mock.NewMockCompleter())
	assert.ErrorIs(t, err, taxonomy.ErrOracleRequired)

	_, err = New(oracle, resolver, registry, nil)
	assert.ErrorIs(t, err, ErrCompleterRequired)
}

func TestPreScanMalformedJSON(t *testing.T) {
	// Scenario: the segmentation model returns garbage. The run continues
	// with one synthetic segment covering the whole input.
	completer := mock.NewMockCompleter()
	completer.EnqueueResponse("this is not json at all")
	p := newTestPipeline(t, completer)

	segments, fallback := p.preScan(context.Background(), "breach of contract dispute")
	assert.True(t, fallback)
	require.Len(t, segments, 1)
	assert.Equal(t, "breach of contract dispute", segments[0].Text)
	assert.Empty(t, segments[0].Branches)
}

func TestPreScanCallFailure(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.EnqueueError(errors.New("connection refused"))
	p := newTestPipeline(t, completer)

	segments, fallback := p.preScan(context.Background(), "employment termination")
	assert.True(t, fallback)
	require.Len(t, segments, 1)
	assert.Equal(t, "employment termination", segments[0].Text)
}

func TestPreScanDropsUnknownBranches(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.EnqueueResponse(`{"segments": [
		{"text": "contract claim", "branches": ["Area of Law", "Made Up Branch", "Currency"], "reasoning": "r"}
	]}`)
	p := newTestPipeline(t, completer)

	segments, fallback := p.preScan(context.Background(), "contract claim")
	assert.False(t, fallback)
	require.Len(t, segments, 1)
	// "Made Up Branch" is not registered and "Currency" is excluded.
	assert.Equal(t, []string{"Area of Law"}, segments[0].Branches)
}

func TestPreScanStripsFences(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.EnqueueResponse("```json\n{\"segments\": [{\"text\": \"patent filing\", \"branches\": [\"Area of Law\"], \"reasoning\": \"r\"}]}\n```")
	p := newTestPipeline(t, completer)

	segments, fallback := p.preScan(context.Background(), "patent filing")
	assert.False(t, fallback)
	require.Len(t, segments, 1)
	assert.Equal(t, "patent filing", segments[0].Text)
}

func TestRunEndToEnd(t *testing.T) {
	completer := dispatchCompleter(map[string]string{
		preScanMarker: `{"segments": [
			{"text": "Breach of contract dispute", "branches": ["Area of Law"], "reasoning": "contract claim"}
		]}`,
		expansionMarker: `{"suggestions": ["Commercial Contracts"]}`,
		rankMarker: `{"ranked": [
			{"id": "AOL-110", "score": 95, "reasoning": "exact match"},
			{"id": "AOL-100", "score": 80, "reasoning": "parent area"}
		]}`,
		judgeMarker: `{"judged": [
			{"id": "AOL-100", "adjusted_score": 75, "verdict": "penalized", "reasoning": "broader than the item"}
		]}`,
	})
	p := newTestPipeline(t, completer)

	response, err := p.Run(context.Background(), []string{"Breach of contract dispute"}, Options{})
	require.NoError(t, err)
	require.Len(t, response.Items, 1)
	assert.NotEmpty(t, response.Registry)

	item := response.Items[0]
	meta := item.Metadata
	assert.Equal(t, 1, meta.SegmentCount)
	assert.False(t, meta.PreScanFallback)
	assert.False(t, meta.RankFallback)
	assert.False(t, meta.JudgeFallback)
	assert.Equal(t, 2, meta.RankedCandidates)
	assert.Equal(t, 1, meta.VerdictTallies[core.VerdictConfirmed])
	assert.Equal(t, 1, meta.VerdictTallies[core.VerdictPenalized])

	area := item.Branches["Area of Law"]
	require.Len(t, area, 2)
	assert.Equal(t, "AOL-110", area[0].Id)
	assert.Equal(t, 95.0, area[0].Score)
	assert.Equal(t, core.VerdictConfirmed, area[0].Verdict)
	assert.Equal(t, "AOL-100", area[1].Id)
	assert.Equal(t, 75.0, area[1].Score)
	assert.Equal(t, core.VerdictPenalized, area[1].Verdict)
}

func TestRunRejectsEmptyItems(t *testing.T) {
	p := newTestPipeline(t, mock.NewMockCompleter())
	_, err := p.Run(context.Background(), []string{"valid item", "   "}, Options{})
	assert.ErrorIs(t, err, core.ErrEmptyItem)
}

func TestRankHallucinationGuard(t *testing.T) {
	// Scenario: the ranking model cites an id that was never a candidate.
	completer := dispatchCompleter(map[string]string{
		preScanMarker: `{"segments": [
			{"text": "breach of contract claim", "branches": ["Area of Law"], "reasoning": "r"}
		]}`,
		rankMarker: `{"ranked": [
			{"id": "FAKE123", "score": 99, "reasoning": "fabricated"},
			{"id": "AOL-110", "score": 90, "reasoning": "real"}
		]}`,
	})
	p := newTestPipeline(t, completer)

	response, err := p.Run(context.Background(), []string{"breach of contract claim"}, Options{})
	require.NoError(t, err)

	item := response.Items[0]
	assert.Equal(t, 1, item.Metadata.RankedCandidates)
	for branch, concepts := range item.Branches {
		for _, c := range concepts {
			assert.NotEqual(t, "FAKE123", c.Id, "hallucinated id leaked into branch %s", branch)
		}
	}
	require.Len(t, item.Branches["Area of Law"], 1)
	assert.Equal(t, "AOL-110", item.Branches["Area of Law"][0].Id)
}

func TestJudgeRejectionExcluded(t *testing.T) {
	// Scenario: the judge rejects a candidate but still states a score.
	// Rejection wins; the candidate never reaches the output.
	completer := dispatchCompleter(map[string]string{
		preScanMarker: `{"segments": [
			{"text": "breach of contract claim", "branches": ["Area of Law"], "reasoning": "r"}
		]}`,
		rankMarker: `{"ranked": [
			{"id": "AOL-110", "score": 95, "reasoning": "match"},
			{"id": "AOL-100", "score": 80, "reasoning": "parent"}
		]}`,
		judgeMarker: `{"judged": [
			{"id": "AOL-110", "adjusted_score": 50, "verdict": "rejected", "reasoning": "wrong sense"}
		]}`,
	})
	p := newTestPipeline(t, completer)

	response, err := p.Run(context.Background(), []string{"breach of contract claim"}, Options{})
	require.NoError(t, err)

	item := response.Items[0]
	for _, concepts := range item.Branches {
		for _, c := range concepts {
			assert.NotEqual(t, "AOL-110", c.Id)
			assert.Greater(t, c.Score, 0.0)
		}
	}
	require.Len(t, item.Branches["Area of Law"], 1)
	assert.Equal(t, "AOL-100", item.Branches["Area of Law"][0].Id)
	assert.Zero(t, item.Metadata.VerdictTallies[core.VerdictRejected])
}

func TestRankFallbackOnFailure(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(_ context.Context, messages []ai.Message, _ ai.CompleteOptions) (string, error) {
		system := messages[0].Content
		if strings.Contains(system, preScanMarker) {
			return `{"segments": [{"text": "breach of contract claim", "branches": ["Area of Law"], "reasoning": "r"}]}`, nil
		}
		if strings.Contains(system, rankMarker) {
			return "", errors.New("model unreachable")
		}
		return "{}", nil
	}
	p := newTestPipeline(t, completer)

	response, err := p.Run(context.Background(), []string{"breach of contract claim"}, Options{})
	require.NoError(t, err)

	item := response.Items[0]
	assert.True(t, item.Metadata.RankFallback)
	assert.NotEmpty(t, item.Metadata.Degradations)
	// The lexical candidates still produce an answer.
	assert.NotEmpty(t, item.Branches["Area of Law"])
	assert.LessOrEqual(t, item.Metadata.RankedCandidates, rankFallbackTop)
}

func TestJudgeFallbackOnFailure(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(_ context.Context, messages []ai.Message, _ ai.CompleteOptions) (string, error) {
		system := messages[0].Content
		if strings.Contains(system, preScanMarker) {
			return `{"segments": [{"text": "breach of contract claim", "branches": ["Area of Law"], "reasoning": "r"}]}`, nil
		}
		if strings.Contains(system, rankMarker) {
			return `{"ranked": [{"id": "AOL-110", "score": 90, "reasoning": "match"}]}`, nil
		}
		if strings.Contains(system, judgeMarker) {
			return "", errors.New("model unreachable")
		}
		return "{}", nil
	}
	p := newTestPipeline(t, completer)

	response, err := p.Run(context.Background(), []string{"breach of contract claim"}, Options{})
	require.NoError(t, err)

	item := response.Items[0]
	assert.True(t, item.Metadata.JudgeFallback)
	require.Len(t, item.Branches["Area of Law"], 1)
	got := item.Branches["Area of Law"][0]
	assert.Equal(t, "AOL-110", got.Id)
	assert.Equal(t, 90.0, got.Score)
	assert.Equal(t, core.VerdictConfirmed, got.Verdict)
}

func TestExpansionFillsThinBranch(t *testing.T) {
	expansionCalls := 0
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(_ context.Context, messages []ai.Message, _ ai.CompleteOptions) (string, error) {
		system := messages[0].Content
		if strings.Contains(system, preScanMarker) {
			return `{"segments": [{"text": "breach of contract dispute", "branches": ["Area of Law"], "reasoning": "r"}]}`, nil
		}
		if strings.Contains(system, expansionMarker) {
			expansionCalls++
			return `{"suggestions": ["Commercial Contracts", "Contract Law"]}`, nil
		}
		return "{}", nil
	}
	p := newTestPipeline(t, completer)

	response, err := p.Run(context.Background(), []string{"breach of contract dispute"}, Options{})
	require.NoError(t, err)

	meta := response.Items[0].Metadata
	if expansionCalls > 0 {
		assert.Positive(t, meta.AddedFromExpansion)
	}
}

func TestExpansionFailureIsolated(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(_ context.Context, messages []ai.Message, _ ai.CompleteOptions) (string, error) {
		system := messages[0].Content
		if strings.Contains(system, preScanMarker) {
			return `{"segments": [{"text": "lease renewal", "branches": ["Legal Services"], "reasoning": "r"}]}`, nil
		}
		if strings.Contains(system, expansionMarker) {
			return "", errors.New("model unreachable")
		}
		return "{}", nil
	}
	p := newTestPipeline(t, completer)

	response, err := p.Run(context.Background(), []string{"lease renewal"}, Options{})
	require.NoError(t, err)
	assert.Zero(t, response.Items[0].Metadata.AddedFromExpansion)
}

func TestExpansionKeepsCandidatesSorted(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(_ context.Context, messages []ai.Message, _ ai.CompleteOptions) (string, error) {
		if strings.Contains(messages[0].Content, expansionMarker) {
			return `{"suggestions": ["Contract Law"]}`, nil
		}
		return "{}", nil
	}
	p := newTestPipeline(t, completer)

	// A weak pre-existing candidate must not shadow stronger expansion
	// additions when downstream stages take a score-ordered prefix.
	var meta core.ItemMetadata
	candidates := []core.ScopedCandidate{
		{Id: "SRV-110", Label: "Commercial Litigation", Score: 12,
			Branch: "Legal Services", Sources: []core.CandidateSource{core.SourceLexical}},
	}
	segments := []core.Segment{{Text: "contract law advice", Branches: []string{"Area of Law"}}}

	out := p.expandThinBranches(context.Background(), "contract law advice", segments, candidates, Options{}.withDefaults(), &meta)
	require.Positive(t, meta.AddedFromExpansion)
	require.Greater(t, len(out), 1)

	assert.True(t, sort.SliceIsSorted(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	}))
	assert.Equal(t, "AOL-100", out[0].Id)
	assert.Equal(t, "SRV-110", out[len(out)-1].Id)
}

func TestFilterFallsBackWhenBranchHasNoRoot(t *testing.T) {
	p := newTestPipeline(t, mock.NewMockCompleter())

	// Tags naming a branch with no matching root concept still earn the
	// thin-result global fallback instead of an empty run.
	var meta core.ItemMetadata
	segments := []core.Segment{{Text: "breach of contract", Branches: []string{"Practice Groups"}}}
	candidates := p.filterCandidates(context.Background(), "breach of contract", segments, Options{}.withDefaults(), &meta)

	require.NotEmpty(t, candidates)
	for _, c := range candidates {
		assert.Contains(t, c.Sources, core.SourceGlobal)
	}
}

func TestStage1CandidateCap(t *testing.T) {
	completer := mock.NewMockCompleter()
	p := newTestPipeline(t, completer)

	var meta core.ItemMetadata
	segments := []core.Segment{{Text: "law"}}
	candidates := p.filterCandidates(context.Background(), "law", segments, Options{}.withDefaults(), &meta)
	assert.LessOrEqual(t, len(candidates), stage1MaxCandidates)
}

func TestRunWithoutVectorIndex(t *testing.T) {
	// Scenario: no embedding capability at all. The run proceeds and the
	// audit record shows zero embedding additions.
	p := newTestPipeline(t, mock.NewMockCompleter())

	response, err := p.Run(context.Background(), []string{"patent infringement analysis"}, Options{})
	require.NoError(t, err)
	assert.Zero(t, response.Items[0].Metadata.AddedFromEmbedding)
}

func TestRunWithVectorIndex(t *testing.T) {
	oracle, err := taxonomy.NewFixtureOracle()
	require.NoError(t, err)
	resolver := taxonomy.NewResolver(oracle)

	// "Intellectual Property Law" shares no content word with the item, so
	// lexical retrieval never surfaces it. The injected vectors place the
	// query next to it and far from everything else, making it reachable
	// only through the index.
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			if strings.HasPrefix(text, "Intellectual Property Law") {
				vectors[i] = []float32{1, 0, 0}
			} else {
				vectors[i] = []float32{0, 1, 0}
			}
		}
		return vectors, nil
	}
	embedder.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return []float32{0.95, 0.3, 0}, nil
	}

	manager, err := embedding.NewManager(embedder, oracle, resolver)
	require.NoError(t, err)
	t.Cleanup(manager.Release)
	require.NoError(t, manager.BuildSync(context.Background()))

	p := newTestPipeline(t, mock.NewMockCompleter(), WithVectorIndex(manager))

	response, err := p.Run(context.Background(), []string{"patent infringement analysis"}, Options{})
	require.NoError(t, err)

	meta := response.Items[0].Metadata
	assert.Equal(t, 1, meta.AddedFromEmbedding)

	var ipLaw *core.MappedConcept
	for _, c := range response.Items[0].Branches["Area of Law"] {
		if c.Id == "AOL-200" {
			ipLaw = &c
			break
		}
	}
	require.NotNil(t, ipLaw, "index-only neighbor must survive to the output")
	assert.Contains(t, ipLaw.Sources, core.SourceEmbedding)
}

func TestDifferentiatorSpreadsTies(t *testing.T) {
	// Scenario: ten candidates all land on the same judged score.
	p := newTestPipeline(t, mock.NewMockCompleter())

	ids := []string{
		"AOL-100", "AOL-110", "AOL-120", "AOL-121", "AOL-200",
		"AOL-210", "AOL-220", "AOL-300", "SRV-100", "SRV-110",
	}
	judged := make([]core.JudgedCandidate, len(ids))
	for i, id := range ids {
		judged[i] = core.JudgedCandidate{
			Id: id, OriginalScore: 70, AdjustedScore: 70, Verdict: core.VerdictConfirmed,
		}
	}

	out, differentiated := p.differentiate("patent law", judged)
	assert.True(t, differentiated)
	require.Len(t, out, len(ids))

	// Most lexically relevant candidate leads the redistributed set.
	assert.Equal(t, "AOL-210", out[0].Id)

	for i := 1; i < len(out); i++ {
		prev := math.Round(out[i-1].AdjustedScore * 10)
		curr := math.Round(out[i].AdjustedScore * 10)
		assert.Greater(t, prev, curr, "scores must strictly decrease after rounding")
	}
	spread := out[0].AdjustedScore - out[len(out)-1].AdjustedScore
	assert.GreaterOrEqual(t, spread, 30.0)

	for _, j := range out {
		assert.GreaterOrEqual(t, j.AdjustedScore, 1.0)
		assert.LessOrEqual(t, j.AdjustedScore, 99.0)
	}
}

func TestDifferentiatorLeavesDistinctScoresAlone(t *testing.T) {
	p := newTestPipeline(t, mock.NewMockCompleter())

	judged := []core.JudgedCandidate{
		{Id: "AOL-110", AdjustedScore: 90, Verdict: core.VerdictConfirmed},
		{Id: "AOL-100", AdjustedScore: 75, Verdict: core.VerdictConfirmed},
		{Id: "SRV-100", AdjustedScore: 60, Verdict: core.VerdictConfirmed},
	}
	out, differentiated := p.differentiate("contract dispute", judged)
	assert.False(t, differentiated)
	assert.Equal(t, judged, out)
}

func TestMandatoryFallback(t *testing.T) {
	p := newTestPipeline(t, mock.NewMockCompleter())

	result := p.MandatoryFallback("commercial litigation", []string{"Legal Services", "Currency"}, Options{})

	// Excluded branches never produce coverage.
	assert.NotContains(t, result, "Currency")

	services := result["Legal Services"]
	require.NotEmpty(t, services)
	assert.Equal(t, "SRV-110", services[0].Id)
	for _, c := range services {
		assert.Equal(t, []core.CandidateSource{core.SourceMandatory}, c.Sources)
	}
}

func TestMandatoryBranchesCovered(t *testing.T) {
	completer := dispatchCompleter(map[string]string{
		preScanMarker: `{"segments": [{"text": "commercial litigation", "branches": ["Area of Law"], "reasoning": "r"}]}`,
	})
	p := newTestPipeline(t, completer)

	var meta core.ItemMetadata
	segments := []core.Segment{{Text: "commercial litigation", Branches: []string{"Area of Law"}}}
	candidates := p.filterCandidates(context.Background(), "commercial litigation", segments,
		Options{MandatoryBranches: []string{"Legal Services"}}.withDefaults(), &meta)

	// The tagged segment scopes to Area of Law descendants; SRV-110 must
	// pick up the mandatory source from the extra Legal Services search.
	foundCovered := false
	for _, c := range candidates {
		if c.Id != "SRV-110" {
			continue
		}
		foundCovered = true
		assert.Equal(t, "Legal Services", c.Branch)
		assert.Contains(t, c.Sources, core.SourceMandatory)
	}
	assert.True(t, foundCovered)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "abc", sanitizeInput("a\x00b\x1bc"))
	assert.Equal(t, "a\nb\tc", sanitizeInput("a\nb\tc"))

	long := strings.Repeat("x", maxInputLength+500)
	assert.Len(t, sanitizeInput(long), maxInputLength)
}

func TestSanitizeInputTruncatesOnRuneBoundary(t *testing.T) {
	// A multi-byte rune straddling the cut must not be split in half.
	text := strings.Repeat("x", maxInputLength-1) + "ᚠᚠ"
	out := sanitizeInput(text)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, maxInputLength, utf8.RuneCountInString(out))

	// Multi-byte input under the character limit survives untouched even
	// though its byte length exceeds it.
	wide := strings.Repeat("ᚠ", maxInputLength)
	assert.Equal(t, wide, sanitizeInput(wide))
}

func TestRepairJSON(t *testing.T) {
	repaired := repairJSON(`{id": "A", score": 5}`)
	assert.Equal(t, `{"id": "A", "score": 5}`, repaired)

	valid := `{"id": "A"}`
	assert.Equal(t, valid, repairJSON(valid))
}
