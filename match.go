package orbmatch

// MatchResult is the outcome of a query against an index.
type MatchResult struct {
	// Label of the best ranked reference, or "" if nothing could be matched.
	Label string `json:"label"`

	// Score of the best ranked reference, in [0,1].
	Score float64 `json:"score"`

	// Alternatives are the best ranked references, best first, at most
	// MaxAlternatives of them. The first one is the best match itself.
	Alternatives []Alternative `json:"alternatives"`
}

// Alternative is one ranked candidate of a query.
type Alternative struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Found reports whether the query produced a best label at all.
func (result MatchResult) Found() bool {
	return result.Label != ""
}

// Confident reports whether the best match reaches the minimum score. Use
// DefaultMinScore unless the deployment has tuned its own threshold.
func (result MatchResult) Confident(minScore float64) bool {
	return result.Found() && result.Score >= minScore
}

// GoodMatches counts the query descriptors that have a good match in the
// reference. For every query descriptor the two nearest reference descriptors
// are searched by Hamming distance and the match is good if the nearest one is
// closer than ratio times the second nearest (Lowe's ratio test).
//
// A reference with a single descriptor has no second neighbour. In that case
// the ratio test is skipped and a match is good if its distance is at most
// maxDistance. A reference without descriptors matches nothing.
func GoodMatches(query []Descriptor, reference *ReferenceEntry, ratio float64, maxDistance int) int {
	candidates := reference.Descriptors
	switch {
	case len(query) == 0 || len(candidates) == 0:
		return 0

	case len(candidates) == 1:
		good := 0
		for _, descriptor := range query {
			if Distance(descriptor, candidates[0]) <= maxDistance {
				good++
			}
		}
		return good
	}

	good := 0
	for _, descriptor := range query {
		first, second := DescriptorBits+1, DescriptorBits+1
		for _, candidate := range candidates {
			distance := Distance(descriptor, candidate)
			if distance < first {
				first, second = distance, first
			} else if distance < second {
				second = distance
			}
		}
		if float64(first) < ratio*float64(second) {
			good++
		}
	}
	return good
}

// Score normalizes a good match count by the larger of the two keypoint
// counts. The result is 0 if either side has no keypoints and never exceeds 1
// as long as good does not exceed the query count.
func Score(good, referenceCount, queryCount int) float64 {
	denominator := max(referenceCount, queryCount, 1)
	score := float64(good) / float64(denominator)
	if score > 1 {
		return 1
	}
	return score
}
