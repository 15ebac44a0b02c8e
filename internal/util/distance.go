// Package util provides small helpers shared across the report pipeline.
package util

// ClosestMatch returns the candidate closest to input by Levenshtein
// distance, or "" when nothing is within maxDistance edits.
func ClosestMatch(input string, candidates []string, maxDistance int) string {
	bestDistance := maxDistance + 1
	var bestMatch string

	for _, c := range candidates {
		distance := LevenshteinDistance(input, c)
		if distance < bestDistance {
			bestDistance = distance
			bestMatch = c
		}
	}

	if bestDistance <= maxDistance {
		return bestMatch
	}
	return ""
}

// LevenshteinDistance calculates the Levenshtein distance between two strings.
// This is the minimum number of single-character edits (insertions, deletions,
// or substitutions) required to change one string into the other.
func LevenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Create a matrix to store distances
	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}

	// Initialize the first row and column
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	// Fill in the rest of the matrix
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}
