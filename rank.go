package orbmatch

import (
	"image"
	"sort"
	"sync"
)

// Match extracts the features of the query image and ranks every reference
// against them. See Rank.
func (index *Index) Match(img image.Image) MatchResult {
	return index.Rank(index.extractor.Extract(img))
}

// Rank scores the query features against every reference of the index and
// returns the best reference with up to MaxAlternatives ranked candidates.
// Equal scores keep index order, so the first indexed reference wins a tie.
//
// A query without features, or an empty index, yields a result without a
// label, a score of 0 and no alternatives. Whether a found label is
// trustworthy is up to the caller, see MatchResult.Confident.
func (index *Index) Rank(query FeatureSet) MatchResult {
	result := MatchResult{Alternatives: []Alternative{}}
	if len(query) == 0 || len(index.entries) == 0 {
		return result
	}

	options := index.extractor.options
	descriptors := query.Descriptors()

	// Each entry's score is independent of the others. Positions are fixed up
	// front so the merge below is deterministic.
	scored := make([]Alternative, len(index.entries))
	var wg sync.WaitGroup
	for worker := 0; worker < min(options.Workers, len(scored)); worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for position := worker; position < len(scored); position += options.Workers {
				entry := &index.entries[position]
				good := GoodMatches(descriptors, entry, options.Ratio, options.MaxDistance)
				scored[position] = Alternative{
					Label: entry.Label,
					Score: Score(good, entry.KeypointCount, len(descriptors)),
				}
			}
		}()
	}
	wg.Wait()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	result.Label = scored[0].Label
	result.Score = scored[0].Score
	result.Alternatives = scored[:min(MaxAlternatives, len(scored))]
	return result
}
