package embedding

import (
	"math"
	"sort"
)

// Match is one nearest-neighbor result.
type Match struct {
	Id         string
	Similarity float64 // cosine similarity, clamped to [0,1] by callers
}

// Index is an exact inner-product nearest-neighbor index over
// unit-normalized vectors. Immutable after construction and safe for
// concurrent readers.
type Index struct {
	ids       []string
	vectors   [][]float32
	byId      map[string]int
	dimension int

	modelIdentity string
	fingerprint   string
}

// NewIndex builds an index from parallel id/vector slices. Vectors must be
// unit-normalized already; dot product then equals cosine similarity.
func NewIndex(ids []string, vectors [][]float32, modelIdentity, fingerprint string) *Index {
	byId := make(map[string]int, len(ids))
	for i, id := range ids {
		byId[id] = i
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	return &Index{
		ids:           ids,
		vectors:       vectors,
		byId:          byId,
		dimension:     dim,
		modelIdentity: modelIdentity,
		fingerprint:   fingerprint,
	}
}

// Search returns the k nearest neighbors of the query vector, optionally
// restricted by an admit predicate. Results are sorted by similarity
// descending.
func (idx *Index) Search(query []float32, k int, admit func(id string) bool) []Match {
	if k <= 0 || len(query) != idx.dimension {
		return nil
	}
	matches := make([]Match, 0, len(idx.ids))
	for i, id := range idx.ids {
		if admit != nil && !admit(id) {
			continue
		}
		matches = append(matches, Match{Id: id, Similarity: dot(query, idx.vectors[i])})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Id < matches[j].Id
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Score computes the similarity of the query against a specific id list,
// for re-ranking known candidates. Unknown ids are omitted from the
// result.
func (idx *Index) Score(query []float32, ids []string) map[string]float64 {
	if len(query) != idx.dimension {
		return nil
	}
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		pos, ok := idx.byId[id]
		if !ok {
			continue
		}
		out[id] = dot(query, idx.vectors[pos])
	}
	return out
}

// Len returns the number of indexed concepts.
func (idx *Index) Len() int {
	return len(idx.ids)
}

// Dimension returns the vector width.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// ModelIdentity returns the embedding model the index was built with.
func (idx *Index) ModelIdentity() string {
	return idx.modelIdentity
}

// Fingerprint returns the taxonomy content fingerprint the index was built
// against.
func (idx *Index) Fingerprint() string {
	return idx.fingerprint
}

func dot(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Normalize scales a vector to unit length. Zero vectors are returned as a
// fresh zero vector.
func Normalize(v []float32) []float32 {
	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}
