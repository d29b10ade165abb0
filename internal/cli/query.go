package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/report"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		queryText string
		limit     int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Rank documents against a query",
		Long: `Build the corpus, then rank every document by cosine similarity to the query.
Without -q the query is read from standard input.

Examples:
  invidx query -q "the cat sat"
  invidx query -q "dog" --limit 5 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus, _, err := a.buildCorpus(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("query") {
				queryText, err = prompt(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}

			exec := executor.New(corpus, config.SearchConfig{ScoringWorkers: a.cfg.Search.ScoringWorkers})
			result, err := exec.Execute(cmd.Context(), queryText, limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (prompted for when omitted)")
	cmd.Flags().IntVarP(&limit, "limit", "k", 0, "number of ranked documents to print (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func prompt(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter your query: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading query: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func printResult(out io.Writer, res *executor.SearchResult) error {
	fmt.Fprintf(out, "Query: %q\n", res.Query)
	fmt.Fprintf(out, "Matching documents (%d): %s\n\n", res.TotalHits, strings.Join(res.Matching, ", "))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tDOCUMENT\tCOSINE")
	for i, d := range res.Results {
		fmt.Fprintf(tw, "%d\t%s\t%.6f\n", i+1, d.Name, d.Score)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(res.QueryStats) == 0 {
		fmt.Fprintln(out, "\nThe query contains no terms.")
		return nil
	}
	fmt.Fprintln(out)
	if err := report.Write(out, res.QueryStats); err != nil {
		return err
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TERM\tIDF\tTF-IDF")
	for _, ts := range res.TFIDF {
		fmt.Fprintf(tw, "%s\t%.6f\t%.6f\n", ts.Term, ts.IDF, ts.Score)
	}
	return tw.Flush()
}
