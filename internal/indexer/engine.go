// Package indexer drives a corpus build: it drains a document source into an
// index.Builder, skips documents the source could not read, and reports what
// was indexed.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/metrics"
)

// BuildReport summarises one build.
type BuildReport struct {
	Source    string        `json:"source"`
	Indexed   int           `json:"indexed"`
	Terms     int           `json:"terms"`
	Skipped   []error       `json:"-"`
	Duration  time.Duration `json:"duration"`
	Workers   int           `json:"workers"`
	StartedAt time.Time     `json:"started_at"`
}

// SkippedNames lists the documents that were left out, in source order.
func (r *BuildReport) SkippedNames() []string {
	names := make([]string, 0, len(r.Skipped))
	for _, err := range r.Skipped {
		var docErr *apperrors.DocumentError
		if errors.As(err, &docErr) {
			names = append(names, docErr.Name)
		}
	}
	return names
}

// ProgressFunc is called after each document is handled.
type ProgressFunc func(handled int, name string, err error)

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

type Engine struct {
	cfg      config.IndexerConfig
	metrics  *metrics.Metrics
	progress ProgressFunc
	logger   *slog.Logger
}

func NewEngine(cfg config.IndexerConfig, opts ...Option) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	e := &Engine{
		cfg:    cfg,
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build drains src into a new Corpus. Documents that src reports as
// unreadable are skipped and listed in the report. An error is returned only
// when src cannot be enumerated or ctx is done; no partial corpus is
// returned in that case.
func (e *Engine) Build(ctx context.Context, src source.Source) (*index.Corpus, *BuildReport, error) {
	report := &BuildReport{
		Source:    src.Kind(),
		Workers:   e.cfg.Workers,
		StartedAt: time.Now(),
	}
	e.logger.Info("corpus build starting", "source", report.Source, "workers", report.Workers)

	var (
		corpus *index.Corpus
		err    error
	)
	if e.cfg.Workers > 1 {
		corpus, err = e.buildParallel(ctx, src, report)
	} else {
		corpus, err = e.buildSequential(ctx, src, report)
	}
	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		e.logger.Error("corpus build failed", "source", report.Source, "error", err)
		return nil, nil, fmt.Errorf("building corpus from %s source: %w", report.Source, err)
	}
	// The verdict is cached on the corpus for the readiness check.
	if err := corpus.Verify(); err != nil {
		e.logger.Error("corpus failed verification", "source", report.Source, "error", err)
		return nil, nil, fmt.Errorf("verifying corpus from %s source: %w", report.Source, err)
	}
	report.Indexed = corpus.DocCount()
	report.Terms = corpus.NumTerms()

	if e.metrics != nil {
		e.metrics.BuildDuration.Observe(report.Duration.Seconds())
		e.metrics.CorpusDocuments.Set(float64(report.Indexed))
		e.metrics.CorpusTerms.Set(float64(report.Terms))
	}
	e.logger.Info("corpus build complete",
		"source", report.Source,
		"indexed", report.Indexed,
		"skipped", len(report.Skipped),
		"terms", report.Terms,
		"duration", report.Duration,
	)
	return corpus, report, nil
}

func (e *Engine) buildSequential(ctx context.Context, src source.Source, report *BuildReport) (*index.Corpus, error) {
	builder := index.NewBuilder()
	handled := 0
	err := src.Walk(ctx, func(doc source.Document) error {
		handled++
		if doc.Err != nil {
			e.skip(report, doc)
		} else {
			id := builder.Add(doc.Name, doc.Text)
			e.indexed(doc.Name, id)
		}
		e.notify(handled, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return builder.Build(), nil
}

type slot struct {
	doc source.Document
	tf  index.Frequencies
}

// buildParallel reads documents in source order, counts terms on up to
// cfg.Workers goroutines, then adds them to the builder in source order so
// ids and postings match a sequential build.
func (e *Engine) buildParallel(ctx context.Context, src source.Source, report *BuildReport) (*index.Corpus, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	var slots []*slot
	walkErr := src.Walk(gctx, func(doc source.Document) error {
		s := &slot{doc: doc}
		slots = append(slots, s)
		if doc.Err != nil {
			return nil
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.tf = index.Frequencies(tokenizer.Count(s.doc.Text))
			return nil
		})
		return nil
	})
	if err := g.Wait(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		return nil, walkErr
	}

	builder := index.NewBuilder()
	for i, s := range slots {
		if s.doc.Err != nil {
			e.skip(report, s.doc)
		} else {
			id := builder.AddFrequencies(s.doc.Name, s.tf)
			e.indexed(s.doc.Name, id)
		}
		e.notify(i+1, s.doc)
	}
	return builder.Build(), nil
}

func (e *Engine) skip(report *BuildReport, doc source.Document) {
	err := doc.Err
	var docErr *apperrors.DocumentError
	if !errors.As(err, &docErr) {
		err = apperrors.Unreadable(doc.Name, err)
	}
	report.Skipped = append(report.Skipped, err)
	if e.metrics != nil {
		e.metrics.DocsSkippedTotal.Inc()
	}
	e.logger.Warn("skipping unreadable document", "name", doc.Name, "error", doc.Err)
}

func (e *Engine) indexed(name string, id int) {
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
	}
	e.logger.Debug("document indexed", "name", name, "doc_id", id)
}

func (e *Engine) notify(handled int, doc source.Document) {
	if e.progress != nil {
		e.progress(handled, doc.Name, doc.Err)
	}
}
