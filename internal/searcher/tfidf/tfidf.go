// Package tfidf weights query terms by inverse document frequency. The
// weights are reported next to the cosine ranking and never change it.
package tfidf

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/stats"
)

// TermScore is one query term and its weight.
type TermScore struct {
	Term  string  `json:"term"`
	Count int     `json:"count"`
	DF    int     `json:"df"`
	IDF   float64 `json:"idf"`
	Score float64 `json:"tfidf"`
}

// IDF returns ln(n / (df + 1)). The +1 keeps absent terms finite; terms that
// occur in every document come out slightly negative.
func IDF(n, df int) float64 {
	if n == 0 {
		return 0
	}
	return math.Log(float64(n) / float64(df+1))
}

// Score returns term -> query count * idf for every distinct term of query.
func Score(query string, corpus *index.Corpus) map[string]float64 {
	scores := make(map[string]float64)
	for _, ts := range Sorted(query, corpus) {
		scores[ts.Term] = ts.Score
	}
	return scores
}

// Sorted is Score with the per-term inputs kept, ordered by term.
func Sorted(query string, corpus *index.Corpus) []TermScore {
	qv := stats.QueryVector(query)
	out := make([]TermScore, 0, len(qv))
	n := corpus.DocCount()
	for term, count := range qv {
		df := stats.DocumentFrequency(corpus.Postings(term))
		idf := IDF(n, df)
		out = append(out, TermScore{
			Term:  term,
			Count: count,
			DF:    df,
			IDF:   idf,
			Score: float64(count) * idf,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out
}
