package executor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/metrics"
)

func catDog() *index.Corpus {
	b := index.NewBuilder()
	b.Add("doc1", "the cat sat")
	b.Add("doc2", "the dog sat")
	return b.Build()
}

func TestExecuteCatDog(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	exec := New(catDog(), config.SearchConfig{}, WithMetrics(m))

	res, err := exec.Execute(context.Background(), "cat sat", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"doc1", "doc2"}, res.Matching)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "doc1", res.Results[0].Name)
	assert.Equal(t, "doc2", res.Results[1].Name)
	assert.Greater(t, res.Results[0].Score, res.Results[1].Score)
	assert.InDelta(t, 2/math.Sqrt(6), res.Results[0].Score, 1e-12)

	require.Len(t, res.TFIDF, 2)
	assert.Equal(t, "cat", res.TFIDF[0].Term)
	assert.InDelta(t, 0, res.TFIDF[0].Score, 1e-12)
	assert.InDelta(t, math.Log(2.0/3.0), res.TFIDF[1].Score, 1e-12)

	assert.Equal(t, ResultMatch, res.Kind())
	assert.Equal(t, 2, res.TotalDocs)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(ResultMatch)))
}

func TestExecuteEmptyQuery(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	exec := New(catDog(), config.SearchConfig{}, WithMetrics(m))

	res, err := exec.Execute(context.Background(), "  ", 0)
	require.NoError(t, err)

	assert.Empty(t, res.Matching)
	assert.Empty(t, res.TFIDF)
	require.Len(t, res.Results, 2)
	for _, d := range res.Results {
		assert.Equal(t, 0.0, d.Score)
	}
	assert.Equal(t, ResultEmptyQuery, res.Kind())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(ResultEmptyQuery)))
}

func TestExecuteNoMatch(t *testing.T) {
	exec := New(catDog(), config.SearchConfig{})

	res, err := exec.Execute(context.Background(), "zebra", 0)
	require.NoError(t, err)
	assert.Equal(t, ResultZero, res.Kind())
	require.Len(t, res.QueryStats, 1)
	assert.Equal(t, 0, res.QueryStats[0].DF)
}

func TestExecuteLimits(t *testing.T) {
	b := index.NewBuilder()
	for i := 0; i < 20; i++ {
		b.Add(fmt.Sprintf("d%02d", i), "word")
	}
	exec := New(b.Build(), config.SearchConfig{MaxResults: 5})

	res, err := exec.Execute(context.Background(), "word", 3)
	require.NoError(t, err)
	assert.Len(t, res.Results, 3)
	assert.Equal(t, 20, res.TotalHits)

	res, err = exec.Execute(context.Background(), "word", 0)
	require.NoError(t, err)
	assert.Len(t, res.Results, 5)

	res, err = exec.Execute(context.Background(), "word", 50)
	require.NoError(t, err)
	assert.Len(t, res.Results, 5)
}

func TestSetCorpus(t *testing.T) {
	exec := New(nil, config.SearchConfig{})
	assert.Equal(t, 0, exec.Corpus().DocCount())

	before := exec.Corpus().Fingerprint()
	exec.SetCorpus(catDog())
	res, err := exec.Execute(context.Background(), "dog", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc2"}, res.Matching)
	assert.NotEqual(t, before, res.Corpus)
}

func TestExecuteCancelled(t *testing.T) {
	b := index.NewBuilder()
	for i := 0; i < 1000; i++ {
		b.Add(fmt.Sprintf("d%d", i), "word")
	}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	exec := New(b.Build(), config.SearchConfig{ScoringWorkers: 4, QueryTimeout: time.Minute}, WithMetrics(m))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, "word", 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(ResultError)))
}

func TestExecuteLogsZeroNormFallback(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	logger.SetupWriter(&buf, "debug", "json")

	b := index.NewBuilder()
	b.Add("empty", "")
	b.Add("full", "cat")
	exec := New(b.Build(), config.SearchConfig{})

	res, err := exec.Execute(context.Background(), "cat", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Results[1].Score)
	assert.Contains(t, buf.String(), apperrors.ErrZeroNormDivision.Error())
	assert.Contains(t, buf.String(), `"documents":1`)
}
