// Package report lists term and document frequencies for a whole corpus or
// for the terms of a single query.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/stats"
)

// TermStat is the frequency line for one term. TF is the collection term
// frequency for corpus reports and the query count for query reports.
type TermStat struct {
	Term string `json:"term"`
	TF   int    `json:"tf"`
	DF   int    `json:"df"`
}

// CorpusStats returns every indexed term, sorted by term.
func CorpusStats(corpus *index.Corpus) []TermStat {
	terms := corpus.Terms()
	out := make([]TermStat, 0, len(terms))
	for _, term := range terms {
		out = append(out, TermStat{
			Term: term,
			TF:   corpus.CollectionFrequency(term),
			DF:   stats.DocumentFrequency(corpus.Postings(term)),
		})
	}
	return out
}

// QueryStats returns every distinct query term, sorted by term. Terms the
// corpus never saw have DF 0.
func QueryStats(query string, corpus *index.Corpus) []TermStat {
	qv := stats.QueryVector(query)
	out := make([]TermStat, 0, len(qv))
	for term, count := range qv {
		out = append(out, TermStat{
			Term: term,
			TF:   count,
			DF:   stats.DocumentFrequency(corpus.Postings(term)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out
}

// Write prints stats as an aligned table.
func Write(w io.Writer, rows []TermStat) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TERM\tTF\tDF")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", r.Term, r.TF, r.DF)
	}
	return tw.Flush()
}
