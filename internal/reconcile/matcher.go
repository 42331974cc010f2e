package reconcile

import "github.com/agnivade/levenshtein"

// Match is the winning candidate of an approximate search.
type Match struct {
	Index    int
	Distance int
}

// Closest returns the candidate with the smallest edit distance to query.
// Distances count single-rune insertions, deletions, and substitutions and
// are case-sensitive. Among equal minima the earliest candidate wins.
func Closest(query string, candidates []string) (Match, error) {
	if len(candidates) == 0 {
		return Match{}, ErrEmptyCandidateSet
	}
	best := Match{Index: 0, Distance: levenshtein.ComputeDistance(query, candidates[0])}
	for i := 1; i < len(candidates) && best.Distance > 0; i++ {
		d := levenshtein.ComputeDistance(query, candidates[i])
		if d < best.Distance {
			best = Match{Index: i, Distance: d}
		}
	}
	return best, nil
}
