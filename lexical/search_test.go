package lexical

import (
	"testing"

	"github.com/poiesic/lexmap/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *taxonomy.InMemoryOracle) {
	t.Helper()
	oracle, err := taxonomy.NewFixtureOracle()
	require.NoError(t, err)
	resolver := taxonomy.NewResolver(oracle)
	return NewEngine(oracle, resolver, taxonomy.NewRegistry()), oracle
}

func hitIds(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Id
	}
	return ids
}

func TestSearchDirectMatch(t *testing.T) {
	engine, _ := newTestEngine(t)

	hits := engine.Search("Contract Law", Options{Threshold: 0.3})
	require.NotEmpty(t, hits)
	assert.Equal(t, "AOL-100", hits[0].Id)
	assert.Equal(t, 99.0, hits[0].Score)
	assert.Equal(t, "Area of Law", hits[0].Branch)
}

func TestSearchVariantsReachSubPhrases(t *testing.T) {
	engine, _ := newTestEngine(t)

	// "commercial lease" appears only as a sub-phrase of the query.
	hits := engine.Search("disputes over a commercial lease agreement", Options{Threshold: 0.3})
	assert.Contains(t, hitIds(hits), "AOL-121")
}

func TestSearchDomainExpansion(t *testing.T) {
	engine, _ := newTestEngine(t)

	// "litigation" expands to "dispute resolution", which is a synonym of
	// SRV-100 and surfaces it even at a strict threshold.
	hits := engine.Search("litigation", Options{Threshold: 0.3})
	assert.Contains(t, hitIds(hits), "SRV-100")
}

func TestSearchThreshold(t *testing.T) {
	engine, _ := newTestEngine(t)

	loose := engine.Search("law", Options{Threshold: 0.1})
	strict := engine.Search("law", Options{Threshold: 0.9})
	assert.True(t, len(strict) <= len(loose))
	for _, h := range strict {
		assert.GreaterOrEqual(t, h.Score, 90.0)
	}
}

func TestSearchIDFilter(t *testing.T) {
	engine, oracle := newTestEngine(t)

	// Scope to the Contract Law subtree only.
	idFilter := map[string]bool{"AOL-100": true}
	for _, id := range oracle.Children("AOL-100", 4) {
		idFilter[id] = true
	}

	hits := engine.Search("commercial", Options{Threshold: 0.2, IDFilter: idFilter})
	for _, h := range hits {
		assert.True(t, idFilter[h.Id], h.Id)
	}
	assert.Contains(t, hitIds(hits), "AOL-120")
	assert.NotContains(t, hitIds(hits), "SRV-110")
}

func TestSearchBranchFilter(t *testing.T) {
	engine, _ := newTestEngine(t)

	hits := engine.Search("commercial", Options{
		Threshold:    0.2,
		BranchFilter: map[string]bool{"Legal Services": true},
	})
	for _, h := range hits {
		assert.Equal(t, "Legal Services", h.Branch)
	}
	assert.Contains(t, hitIds(hits), "SRV-110")
}

func TestSearchExcludedBranches(t *testing.T) {
	engine, _ := newTestEngine(t)

	// "US Dollar" lives in the excluded Currency branch.
	hits := engine.Search("US Dollar", Options{Threshold: 0.2})
	assert.NotContains(t, hitIds(hits), "CUR-100")
}

func TestSearchPerBranchCap(t *testing.T) {
	engine, _ := newTestEngine(t)

	hits := engine.Search("law", Options{Threshold: 0.1, PerBranchCap: 2})
	counts := make(map[string]int)
	for _, h := range hits {
		counts[h.Branch]++
	}
	for branch, n := range counts {
		assert.LessOrEqual(t, n, 2, branch)
	}
}

func TestSearchAncestorSurfacing(t *testing.T) {
	engine, _ := newTestEngine(t)

	// A strong hit on "Breach of Contract" surfaces its parent
	// "Contract Law" at a decayed score.
	hits := engine.Search("breach of contract", Options{Threshold: 0.2})
	ids := hitIds(hits)
	require.Contains(t, ids, "AOL-110")
	assert.Contains(t, ids, "AOL-100")

	var direct, ancestor float64
	for _, h := range hits {
		switch h.Id {
		case "AOL-110":
			direct = h.Score
		case "AOL-100":
			ancestor = h.Score
		}
	}
	assert.Greater(t, direct, ancestor)
}

func TestSearchAncestorsSkippedInScopedMode(t *testing.T) {
	engine, _ := newTestEngine(t)

	hits := engine.Search("breach of contract", Options{
		Threshold: 0.2,
		IDFilter:  map[string]bool{"AOL-110": true},
	})
	assert.Equal(t, []string{"AOL-110"}, hitIds(hits))
}

func TestSearchResultsSortedDescending(t *testing.T) {
	engine, _ := newTestEngine(t)

	hits := engine.Search("commercial contract law", Options{Threshold: 0.1})
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestVariants(t *testing.T) {
	engine, _ := newTestEngine(t)

	t.Run("single word", func(t *testing.T) {
		vs := engine.variants("litigation")
		assert.Contains(t, vs, "litigation")
		// Stem-prefix truncation of a long token.
		assert.Contains(t, vs, "litigati")
	})

	t.Run("multi word", func(t *testing.T) {
		vs := engine.variants("breach of commercial contract")
		assert.Contains(t, vs, "breach of commercial contract")
		assert.Contains(t, vs, "breach of commercial")
		assert.Contains(t, vs, "of commercial contract")
		assert.Contains(t, vs, "commercial")
		assert.Contains(t, vs, "breach")
	})

	t.Run("content words longest first", func(t *testing.T) {
		vs := engine.variants("tax litigation")
		idxLit, idxTax := -1, -1
		for i, v := range vs {
			switch v {
			case "litigation":
				idxLit = i
			case "tax":
				idxTax = i
			}
		}
		require.GreaterOrEqual(t, idxLit, 0)
		require.GreaterOrEqual(t, idxTax, 0)
		assert.Less(t, idxLit, idxTax)
	})
}
