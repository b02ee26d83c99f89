package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	ids := []string{"A", "B", "C"}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.8, 0.6, 0},
	}
	return NewIndex(ids, vectors, "test-model@local", "fp-1")
}

func TestIndexSearch(t *testing.T) {
	idx := testIndex(t)

	t.Run("OrdersBySimilarity", func(t *testing.T) {
		matches := idx.Search([]float32{1, 0, 0}, 3, nil)
		require.Len(t, matches, 3)
		assert.Equal(t, "A", matches[0].Id)
		assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
		assert.Equal(t, "C", matches[1].Id)
		assert.InDelta(t, 0.8, matches[1].Similarity, 1e-6)
		assert.Equal(t, "B", matches[2].Id)
	})

	t.Run("RespectsK", func(t *testing.T) {
		matches := idx.Search([]float32{1, 0, 0}, 1, nil)
		require.Len(t, matches, 1)
		assert.Equal(t, "A", matches[0].Id)
	})

	t.Run("AdmitPredicate", func(t *testing.T) {
		matches := idx.Search([]float32{1, 0, 0}, 3, func(id string) bool {
			return id != "A"
		})
		require.Len(t, matches, 2)
		assert.Equal(t, "C", matches[0].Id)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		assert.Nil(t, idx.Search([]float32{1, 0}, 3, nil))
	})

	t.Run("ZeroK", func(t *testing.T) {
		assert.Nil(t, idx.Search([]float32{1, 0, 0}, 0, nil))
	})
}

func TestIndexScore(t *testing.T) {
	idx := testIndex(t)

	scores := idx.Score([]float32{0, 1, 0}, []string{"A", "C", "missing"})
	require.Len(t, scores, 2)
	assert.InDelta(t, 0.0, scores["A"], 1e-9)
	assert.InDelta(t, 0.6, scores["C"], 1e-6)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	// Zero vectors stay zero.
	z := Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, z)
}
