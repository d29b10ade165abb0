package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/source"
)

// buildCorpus reads the configured source into a corpus, showing a spinner
// on progress. Unreadable documents are listed on progress and skipped.
func (a *app) buildCorpus(ctx context.Context, progress io.Writer) (*index.Corpus, *indexer.BuildReport, error) {
	src, closeSrc, err := source.Open(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	defer closeSrc()

	var opts []indexer.Option
	if !a.quiet {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(progress),
			progressbar.OptionSetDescription("Indexing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		opts = append(opts, indexer.WithProgress(func(handled int, name string, err error) {
			bar.Describe(fmt.Sprintf("Indexing %s", name))
			bar.Add(1)
		}))
	}

	corpus, report, err := indexer.NewEngine(a.cfg.Indexer, opts...).Build(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	for _, skipped := range report.Skipped {
		fmt.Fprintf(progress, "warning: %v\n", skipped)
	}
	return corpus, report, nil
}
