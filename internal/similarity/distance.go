package similarity

import "github.com/agnivade/levenshtein"

// Distance returns the Levenshtein distance between a and b: the minimum
// number of single-rune insertions, deletions or substitutions turning a into b.
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	return levenshtein.ComputeDistance(a, b)
}
