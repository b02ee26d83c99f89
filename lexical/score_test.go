package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreExactLabel(t *testing.T) {
	// Exact normalized label match pins the score at 99.
	assert.Equal(t, 99.0, Score("Contract Law", "Contract Law", "", nil))
	assert.Equal(t, 99.0, Score("contract law", "Contract Law", "", nil))
	assert.Equal(t, 99.0, Score("  Contract Law  ", "contract law", "", nil))
}

func TestScoreSubstringRules(t *testing.T) {
	t.Run("query inside label", func(t *testing.T) {
		s := Score("lease", "Commercial Lease Agreements", "", nil)
		assert.GreaterOrEqual(t, s, 92.0)
	})

	t.Run("label inside long query", func(t *testing.T) {
		s := Score("disputes arising from commercial lease", "Commercial Lease", "", nil)
		assert.GreaterOrEqual(t, s, 88.0)
	})

	t.Run("short label inside query needs coverage", func(t *testing.T) {
		// "tax" is under 30% of the query length, so the 88 rule does not
		// fire; overlap still contributes.
		s := Score("complex multinational tax structuring advice", "Tax", "", nil)
		assert.Less(t, s, 88.0)
	})
}

func TestScorePrefixAndStemCredit(t *testing.T) {
	t.Run("prefix credit", func(t *testing.T) {
		s := Score("litigating", "Litigation", "", nil)
		assert.Greater(t, s, 0.0)
	})

	t.Run("stem credit", func(t *testing.T) {
		// "trademark" vs "trademarks" shares a long stem.
		s := Score("trademarks", "Trademark Law", "", nil)
		assert.Greater(t, s, 40.0)
	})
}

func TestScoreSynonyms(t *testing.T) {
	s := Score("labor law", "Employment Law", "", []string{"Labor Law"})
	// Synonym overlap path: best synonym overlap x 82, so at least in the
	// 80s even though the label differs.
	assert.GreaterOrEqual(t, s, 80.0)
}

func TestScoreDefinitionOnly(t *testing.T) {
	t.Run("substring", func(t *testing.T) {
		s := Score("binding agreement", "Zoning", "Failure to honor a binding agreement.", nil)
		assert.GreaterOrEqual(t, s, 60.0)
	})

	t.Run("no primary no definition", func(t *testing.T) {
		assert.Equal(t, 0.0, Score("maritime salvage", "Zoning", "", nil))
	})
}

func TestScoreDefinitionBonusCapped(t *testing.T) {
	withDef := Score("contract", "Contract Law", "The law of contract formation and contract enforcement for every contract.", nil)
	withoutDef := Score("contract", "Contract Law", "", nil)
	assert.LessOrEqual(t, withDef-withoutDef, 8.0)
	assert.GreaterOrEqual(t, withDef, withoutDef)
}

func TestScoreBounds(t *testing.T) {
	cases := []struct{ q, label, def string }{
		{"", "", ""},
		{"a", "b", "c"},
		{"contract law", "Contract Law", "Definition text"},
		{"x y z w", "completely unrelated", "nothing shared"},
	}
	for _, tc := range cases {
		s := Score(tc.q, tc.label, tc.def, nil)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 99.0)
	}
}

func TestScoreDeterministic(t *testing.T) {
	first := Score("employment disputes", "Employment Law", "Law governing the employer-employee relationship.", []string{"Labor Law"})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score("employment disputes", "Employment Law", "Law governing the employer-employee relationship.", []string{"Labor Law"}))
	}
}

func TestTokenize(t *testing.T) {
	t.Run("lowercase alphabetic min two chars", func(t *testing.T) {
		assert.Equal(t, []string{"contract", "law"}, tokenize("Contract Law, 4 2!"))
	})

	t.Run("digits split tokens", func(t *testing.T) {
		assert.Equal(t, []string{"ab", "cd"}, tokenize("ab12cd"))
	})
}

func TestContentWords(t *testing.T) {
	t.Run("stopwords removed", func(t *testing.T) {
		assert.Equal(t, []string{"breach", "contract"}, ContentWords("breach of the contract"))
	})

	t.Run("all stopwords falls back", func(t *testing.T) {
		assert.Equal(t, []string{"of", "the"}, ContentWords("of the"))
	})
}

func TestComputeSignal(t *testing.T) {
	sig := ComputeSignal("contract law", "Contract Law", "The law of contracts.", []string{"Agreements Law"})
	assert.Equal(t, 1.0, sig.Forward)
	assert.Equal(t, 1.0, sig.Reverse)
	assert.Greater(t, sig.Definition, 0.0)
	assert.Greater(t, sig.Synonym, 0.0)
	assert.Greater(t, sig.Relevance(), 0.7)

	empty := ComputeSignal("quantum physics", "Zoning", "", nil)
	assert.Equal(t, 0.0, empty.Relevance())
}
