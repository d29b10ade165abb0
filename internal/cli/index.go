package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/report"
)

func newIndexCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the corpus and print term and document frequencies",
		Long: `Build the corpus from the configured source and print every indexed term
with its collection term frequency and its document frequency.

Examples:
  invidx index --dir ./files
  invidx index --config corpus.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus, rep, err := a.buildCorpus(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			stats := report.CorpusStats(corpus)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"build":   rep,
					"skipped": rep.SkippedNames(),
					"terms":   stats,
				})
			}

			fmt.Fprintf(out, "Indexed %d documents, %d terms (%d skipped) in %s\n\n",
				rep.Indexed, rep.Terms, len(rep.Skipped), rep.Duration.Round(time.Millisecond))
			return report.Write(out, stats)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
