package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lexmap/ai/mock"
	"github.com/poiesic/lexmap/taxonomy"
)

func testManager(t *testing.T, embedder *mock.MockEmbedder, opts ...ManagerOption) *Manager {
	t.Helper()
	oracle, err := taxonomy.NewFixtureOracle()
	require.NoError(t, err)
	resolver := taxonomy.NewResolver(oracle)

	// A typed nil stuffed into the interface would not compare equal to
	// nil inside the manager, so branch here.
	var mgr *Manager
	if embedder == nil {
		mgr, err = NewManager(nil, oracle, resolver, opts...)
	} else {
		mgr, err = NewManager(embedder, oracle, resolver, opts...)
	}
	require.NoError(t, err)
	t.Cleanup(mgr.Release)
	return mgr
}

func TestManagerUnavailableWithoutEmbedder(t *testing.T) {
	mgr := testManager(t, nil)

	assert.Equal(t, StatusUnavailable, mgr.Status())
	mgr.EnsureBuilt()
	assert.Equal(t, StatusUnavailable, mgr.Status())

	_, err := mgr.Query(context.Background(), "contract dispute", 5, nil)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = mgr.ScoreIDs(context.Background(), "contract dispute", []string{"AOL-100"})
	assert.ErrorIs(t, err, ErrUnavailable)

	err = mgr.BuildSync(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestManagerBuildSync(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	mgr := testManager(t, embedder)

	require.NoError(t, mgr.BuildSync(context.Background()))
	assert.Equal(t, StatusReady, mgr.Status())

	oracle, err := taxonomy.NewFixtureOracle()
	require.NoError(t, err)

	// Querying with a concept's own embedded text must put that concept
	// first: the mock embedder is deterministic per input text.
	concept, err := oracle.Get("AOL-210")
	require.NoError(t, err)

	matches, err := mgr.Query(context.Background(),
		conceptText(concept.Label, concept.Definition), 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "AOL-210", matches[0].Id)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-5)
}

func TestManagerQueryBranchFilter(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	mgr := testManager(t, embedder)
	require.NoError(t, mgr.BuildSync(context.Background()))

	matches, err := mgr.Query(context.Background(), "commercial dispute", 10,
		[]string{"Legal Services"})
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	oracle, err := taxonomy.NewFixtureOracle()
	require.NoError(t, err)
	resolver := taxonomy.NewResolver(oracle)
	for _, match := range matches {
		assert.Equal(t, "Legal Services", resolver.ResolveBranch(match.Id),
			"id %s leaked through the branch filter", match.Id)
	}
}

func TestManagerScoreIDs(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	mgr := testManager(t, embedder)
	require.NoError(t, mgr.BuildSync(context.Background()))

	scores, err := mgr.ScoreIDs(context.Background(), "patent infringement",
		[]string{"AOL-210", "AOL-220", "nonexistent"})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Contains(t, scores, "AOL-210")
	assert.Contains(t, scores, "AOL-220")
}

func TestManagerEnsureBuilt(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	mgr := testManager(t, embedder)

	mgr.EnsureBuilt()

	// The build runs on a background worker; poll until it lands.
	deadline := time.Now().Add(5 * time.Second)
	for mgr.Status() != StatusReady {
		if time.Now().After(deadline) {
			t.Fatalf("index never became ready, status %s", mgr.Status())
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Idempotent once ready.
	mgr.EnsureBuilt()
	assert.Equal(t, StatusReady, mgr.Status())
}

func TestManagerEnsureBuiltAfterRelease(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	mgr := testManager(t, embedder)

	// A released pool rejects the submit; the manager must not report
	// "building" forever.
	mgr.Release()
	mgr.EnsureBuilt()
	assert.Equal(t, StatusUnavailable, mgr.Status())
}

func TestManagerUsesCache(t *testing.T) {
	cache := testCache(t)

	embedder := mock.NewMockEmbedder()
	mgr := testManager(t, embedder, WithCache(cache))
	require.NoError(t, mgr.BuildSync(context.Background()))
	firstCalls := embedder.CallCount()
	require.Positive(t, firstCalls)

	// A second manager over the same taxonomy and model loads from cache
	// without embedding anything.
	embedder2 := mock.NewMockEmbedder()
	mgr2 := testManager(t, embedder2, WithCache(cache))
	require.NoError(t, mgr2.BuildSync(context.Background()))
	assert.Equal(t, StatusReady, mgr2.Status())
	assert.Zero(t, embedder2.CallCount())
}
