// Package similarity scores every document of a corpus against a query by
// cosine similarity over raw term counts.
package similarity

import (
	"context"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/stats"
)

// ZeroNormScore is the score given when the query or the document vector
// has length zero.
const ZeroNormScore = 0.0

// minChunk keeps goroutines from being spawned for a handful of documents.
const minChunk = 64

// Result is the outcome of scoring one query.
type Result struct {
	Query       string             `json:"query"`
	QueryVector map[string]int     `json:"query_vector"`
	QueryNorm   float64            `json:"query_norm"`
	Scores      map[string]float64 `json:"scores"`
	// ByID holds the score of every document, indexed by document id.
	ByID []float64 `json:"-"`
	// Matching lists the documents whose postings contain at least one query
	// term, ascending by document id.
	Matching []string `json:"matching"`
	// ZeroNorm counts the documents that got ZeroNormScore because the query
	// or the document vector has length zero.
	ZeroNorm int `json:"-"`
}

// Empty reports whether the query had no terms.
func (r *Result) Empty() bool {
	return len(r.QueryVector) == 0
}

type Scorer struct {
	workers int
}

// NewScorer returns a Scorer that splits documents across up to workers
// goroutines. workers <= 1 scores on the calling goroutine.
func NewScorer(workers int) *Scorer {
	if workers < 1 {
		workers = 1
	}
	return &Scorer{workers: workers}
}

// Score scores query against corpus on the calling goroutine.
func Score(query string, corpus *index.Corpus) *Result {
	res, _ := NewScorer(1).Score(context.Background(), query, corpus)
	return res
}

// Score computes the cosine similarity of query against every document in
// corpus. It only fails when ctx is done before parallel scoring finishes.
func (s *Scorer) Score(ctx context.Context, query string, corpus *index.Corpus) (*Result, error) {
	qv := stats.QueryVector(query)
	terms := sortedTerms(qv)
	res := &Result{
		Query:       query,
		QueryVector: qv,
		QueryNorm:   stats.VectorLength(qv),
		ByID:        make([]float64, corpus.DocCount()),
	}

	n := corpus.DocCount()
	if s.workers <= 1 || n < 2*minChunk {
		scoreRange(res, terms, corpus, 0, n)
	} else {
		chunk := (n + s.workers - 1) / s.workers
		if chunk < minChunk {
			chunk = minChunk
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for lo := 0; lo < n; lo += chunk {
			lo := lo
			hi := min(lo+chunk, n)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				scoreRange(res, terms, corpus, lo, hi)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	res.Scores = make(map[string]float64, n)
	for id, score := range res.ByID {
		res.Scores[corpus.Name(id)] = score
		if res.QueryNorm == 0 || corpus.Norm(id) == 0 {
			res.ZeroNorm++
		}
	}
	res.Matching = matching(terms, corpus)
	return res, nil
}

// scoreRange writes scores for documents [lo, hi). Ranges never overlap, so
// concurrent calls do not race on res.ByID.
func scoreRange(res *Result, terms []string, corpus *index.Corpus, lo, hi int) {
	for id := lo; id < hi; id++ {
		res.ByID[id] = Cosine(res.QueryVector, terms, res.QueryNorm, corpus, id)
	}
}

// Cosine scores one document. terms must be the keys of qv in a fixed order
// so that the floating-point sum is reproducible.
func Cosine(qv map[string]int, terms []string, queryNorm float64, corpus *index.Corpus, id int) float64 {
	docNorm := corpus.Norm(id)
	if queryNorm == 0 || docNorm == 0 {
		return ZeroNormScore
	}
	var dot float64
	for _, term := range terms {
		if dc := corpus.Count(id, term); dc > 0 {
			dot += float64(qv[term]) * float64(dc)
		}
	}
	return dot / (queryNorm * docNorm)
}

func matching(terms []string, corpus *index.Corpus) []string {
	bm := roaring.New()
	for _, term := range terms {
		for _, id := range corpus.Postings(term) {
			bm.Add(uint32(id))
		}
	}
	names := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		names = append(names, corpus.Name(int(it.Next())))
	}
	return names
}

func sortedTerms(qv map[string]int) []string {
	terms := make([]string, 0, len(qv))
	for term := range qv {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
