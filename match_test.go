package orbmatch

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoodMatchesRatioTest(t *testing.T) {
	reference := &ReferenceEntry{Descriptors: []Descriptor{withBits(10), withBits(100)}}

	// Clear winner: 10 < 0.75 * 100.
	assert.Equal(t, 1, GoodMatches([]Descriptor{{}}, reference, DefaultRatio, DefaultMaxDistance))

	// Ambiguous: two equally close candidates.
	ambiguous := &ReferenceEntry{Descriptors: []Descriptor{withBits(10), withBits(10)}}
	assert.Equal(t, 0, GoodMatches([]Descriptor{{}}, ambiguous, DefaultRatio, DefaultMaxDistance))

	// Exact duplicate in the reference: 0 < 0.75 * 0 does not hold.
	duplicate := &ReferenceEntry{Descriptors: []Descriptor{{}, {}}}
	assert.Equal(t, 0, GoodMatches([]Descriptor{{}}, duplicate, DefaultRatio, DefaultMaxDistance))

	// Close call: 80 < 0.75 * 100 does not hold, but does with a looser ratio.
	near := &ReferenceEntry{Descriptors: []Descriptor{withBits(80), withBits(100)}}
	assert.Equal(t, 0, GoodMatches([]Descriptor{{}}, near, DefaultRatio, DefaultMaxDistance))
	assert.Equal(t, 1, GoodMatches([]Descriptor{{}}, near, 0.9, DefaultMaxDistance))
}

func TestGoodMatchesSingleDescriptor(t *testing.T) {
	reference := &ReferenceEntry{Descriptors: []Descriptor{withBits(0)}}
	query := []Descriptor{withBits(0), withBits(DefaultMaxDistance), withBits(DefaultMaxDistance + 1), withBits(200)}

	assert.Equal(t, 2, GoodMatches(query, reference, DefaultRatio, DefaultMaxDistance))
	assert.Equal(t, 1, GoodMatches(query, reference, DefaultRatio, 0))
}

func TestGoodMatchesEmpty(t *testing.T) {
	reference := &ReferenceEntry{Descriptors: []Descriptor{withBits(3), withBits(9)}}
	assert.Zero(t, GoodMatches(nil, reference, DefaultRatio, DefaultMaxDistance))
	assert.Zero(t, GoodMatches([]Descriptor{{}}, &ReferenceEntry{}, DefaultRatio, DefaultMaxDistance))
}

func TestScore(t *testing.T) {
	assert.Equal(t, 0.0, Score(0, 0, 0))
	assert.Equal(t, 0.5, Score(5, 10, 4))
	assert.Equal(t, 0.25, Score(5, 4, 20))
	assert.Equal(t, 1.0, Score(7, 7, 7))
}

// Scores stay in [0,1] for arbitrary descriptor sets.
func TestScoreBounds(t *testing.T) {
	random := rand.New(rand.NewSource(1))
	randomSet := func(n int) []Descriptor {
		set := make([]Descriptor, n)
		for index := range set {
			for word := range set[index] {
				set[index][word] = random.Uint64()
			}
		}
		return set
	}

	for round := 0; round < 200; round++ {
		query := randomSet(random.Intn(30))
		reference := &ReferenceEntry{Descriptors: randomSet(random.Intn(30))}
		reference.KeypointCount = len(reference.Descriptors)
		if round%4 == 0 {
			// Reuse query descriptors so some matches are exact.
			reference.Descriptors = append(reference.Descriptors, query...)
			reference.KeypointCount = len(reference.Descriptors)
		}

		good := GoodMatches(query, reference, DefaultRatio, DefaultMaxDistance)
		score := Score(good, reference.KeypointCount, len(query))
		require.GreaterOrEqual(t, score, 0.0, "round %d", round)
		require.LessOrEqual(t, score, 1.0, "round %d", round)
	}
}

func TestMatchResultConfident(t *testing.T) {
	assert.False(t, MatchResult{}.Found())
	assert.False(t, MatchResult{Score: 0.9}.Confident(DefaultMinScore))
	assert.False(t, MatchResult{Label: "the_scream", Score: 0.01}.Confident(DefaultMinScore))
	assert.True(t, MatchResult{Label: "the_scream", Score: DefaultMinScore}.Confident(DefaultMinScore))
}

// overlapIndex returns a query of 40 descriptors, each 12 bits away from all
// others, and an index of n entries where entry i holds the first i+2 query
// descriptors. Entry i thus scores (i+2)/40.
func overlapIndex(t *testing.T, n int) (*Index, FeatureSet) {
	t.Helper()
	var query FeatureSet
	for i := 0; i < 40; i++ {
		var d Descriptor
		for bit := 6 * i; bit < 6*i+6; bit++ {
			d.set(bit)
		}
		query = append(query, Feature{Descriptor: d})
	}

	entries := make([]ReferenceEntry, n)
	for i := range entries {
		entries[i] = ReferenceEntry{
			Label:       fmt.Sprintf("ref%d", i),
			Descriptors: query.Descriptors()[:i+2],
		}
	}
	index, err := NewIndex(Options{}, entries...)
	require.NoError(t, err)
	return index, query
}

func TestRankOrdering(t *testing.T) {
	index, query := overlapIndex(t, 6)

	result := index.Rank(query)
	require.Len(t, result.Alternatives, MaxAlternatives)
	assert.Equal(t, "ref5", result.Label)
	assert.Equal(t, result.Alternatives[0].Label, result.Label)
	assert.Equal(t, result.Alternatives[0].Score, result.Score)
	for position := 1; position < len(result.Alternatives); position++ {
		assert.GreaterOrEqual(t, result.Alternatives[position-1].Score, result.Alternatives[position].Score)
	}
	for _, alternative := range result.Alternatives {
		assert.True(t, index.Contains(alternative.Label), alternative.Label)
	}
}

func TestRankFewerEntriesThanAlternatives(t *testing.T) {
	index, query := overlapIndex(t, 2)
	result := index.Rank(query)
	assert.Len(t, result.Alternatives, 2)
}

func TestRankTiesKeepIndexOrder(t *testing.T) {
	descriptors := []Descriptor{withBits(0), withBits(128), withBits(256)}
	index, err := NewIndex(Options{},
		ReferenceEntry{Label: "first", Descriptors: descriptors},
		ReferenceEntry{Label: "second", Descriptors: descriptors},
		ReferenceEntry{Label: "third", Descriptors: descriptors})
	require.NoError(t, err)

	query := FeatureSet{{Descriptor: withBits(0)}, {Descriptor: withBits(256)}}
	for round := 0; round < 20; round++ {
		result := index.Rank(query)
		require.Equal(t, "first", result.Label)
		require.Equal(t, []string{"first", "second", "third"},
			[]string{result.Alternatives[0].Label, result.Alternatives[1].Label, result.Alternatives[2].Label})
	}
}

func TestRankEmptyQuery(t *testing.T) {
	index, _ := overlapIndex(t, 3)
	result := index.Rank(FeatureSet{})
	assert.Equal(t, MatchResult{Alternatives: []Alternative{}}, result)
	assert.False(t, result.Found())
}

func TestRankEmptyIndex(t *testing.T) {
	index, err := NewIndex(Options{})
	require.NoError(t, err)
	_, query := overlapIndex(t, 1)

	result := index.Rank(query)
	assert.Equal(t, "", result.Label)
	assert.Zero(t, result.Score)
	assert.Empty(t, result.Alternatives)
}

// The ranking does not depend on how scoring is spread over workers.
func TestRankWorkers(t *testing.T) {
	reference, query := overlapIndex(t, 7)
	var entries []ReferenceEntry
	for _, label := range reference.Labels() {
		entry, _ := reference.Entry(label)
		entries = append(entries, entry)
	}

	for _, workers := range []int{1, 2, 3, 7, 32} {
		index, err := NewIndex(Options{Workers: workers}, entries...)
		require.NoError(t, err)
		assert.Equal(t, reference.Rank(query), index.Rank(query), "workers %d", workers)
	}
}
