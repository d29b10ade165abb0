// Package stats holds the frequency statistics shared by the corpus and the
// scoring components: document frequency over a postings list, L2 vector
// length over a term-frequency map, and query vectors.
package stats

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/tokenizer"
)

// DocumentFrequency returns the number of distinct document ids in postings.
// Postings built by the index are already unique, but repeats are tolerated.
func DocumentFrequency(postings []int) int {
	switch len(postings) {
	case 0, 1:
		return len(postings)
	}
	seen := make(map[int]struct{}, len(postings))
	for _, id := range postings {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// VectorLength is the Euclidean norm of the frequency values.
func VectorLength(freqs map[string]int) float64 {
	var sum float64
	for _, f := range freqs {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// QueryVector tokenizes query and counts each term, case-insensitively.
func QueryVector(query string) map[string]int {
	return tokenizer.Count(query)
}
