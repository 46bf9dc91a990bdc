package facematch

import "github.com/kozaktomas/rollcall/internal/constants"

// Matcher performs nearest-neighbour identification under a distance threshold.
type Matcher struct {
	// Threshold is exclusive: a distance equal to it is not a match.
	Threshold float64
}

// NewMatcher returns a matcher using threshold, or the default when threshold <= 0.
func NewMatcher(threshold float64) Matcher {
	if threshold <= 0 {
		threshold = constants.DefaultDistanceThreshold
	}
	return Matcher{Threshold: threshold}
}

// Match returns the label of the closest reference when its distance is below
// the threshold. The first reference wins among equal minima. An empty
// registry never matches.
func (m Matcher) Match(q Embedding, registry Registry) Result {
	best := -1
	var bestDist float64
	for i, ref := range registry {
		d := EuclideanDistance(q, ref.Embedding)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || !(bestDist < m.Threshold) {
		return Unknown()
	}
	return Identified(registry[best].Label, bestDist)
}
