// Package ranker orders scored documents for a response.
package ranker

import (
	"sort"
)

// ScoredDoc is one ranked document with its own score.
type ScoredDoc struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Rank orders scores by descending score, breaking ties by ascending name.
// limit <= 0 returns every document. The input map is not modified.
func Rank(scores map[string]float64, limit int) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(scores))
	for name, score := range scores {
		result = append(result, ScoredDoc{
			Name:  name,
			Score: score,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Name < result[j].Name
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
