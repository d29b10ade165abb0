package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/crawler"
)

func newCrawlCmd(a *app) *cobra.Command {
	var (
		maxPages int
		maxDepth int
		rps      float64
		noRobots bool
		sameHost bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "List the pages reachable from a URL by following links",
		Long: `Follow a[href] links breadth-first from the seed URL and print every URL
visited, in visit order. The crawl is bounded by --max-pages and --max-depth.

Examples:
  invidx crawl https://example.com/
  invidx crawl https://example.com/ --max-pages 20 --same-host`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Crawler
			flags := cmd.Flags()
			if flags.Changed("max-pages") {
				cfg.MaxPages = maxPages
			}
			if flags.Changed("max-depth") {
				cfg.MaxDepth = maxDepth
			}
			if flags.Changed("rps") {
				cfg.RequestsPerSecond = rps
			}
			if noRobots {
				cfg.RespectRobots = false
			}
			if sameHost {
				cfg.SameHost = true
			}

			var opts []crawler.Option
			if !a.quiet {
				opts = append(opts, crawler.WithVisitFunc(func(u string, depth int, err error) {
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "For %q: %v\n", u, err)
					}
				}))
			}
			res, err := crawler.New(cfg, opts...).Crawl(cmd.Context(), args[0])
			if res == nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(res); encErr != nil {
					return encErr
				}
				return err
			}
			for _, u := range res.Visited {
				fmt.Fprintln(out, u)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d visited, %d failed, %d disallowed by robots.txt\n",
				len(res.Visited), len(res.Errors), len(res.Disallowed))
			return err
		},
	}
	f := cmd.Flags()
	f.IntVar(&maxPages, "max-pages", 0, "maximum number of URLs to visit (0 for unbounded)")
	f.IntVar(&maxDepth, "max-depth", 0, "maximum link depth from the seed (0 for unbounded)")
	f.Float64Var(&rps, "rps", 0, "requests per second (0 for unpaced)")
	f.BoolVar(&noRobots, "no-robots", false, "ignore robots.txt")
	f.BoolVar(&sameHost, "same-host", false, "only follow links on the seed's host")
	f.BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
