// Package cli implements the invidx command line: build a corpus from the
// configured source, query it, publish documents to Kafka and crawl links.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/logger"
)

type app struct {
	cfgFile  string
	dir      string
	logLevel string
	quiet    bool
	cfg      *config.Config
}

// NewRootCmd returns the invidx command tree. Each call has its own flag
// state.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "invidx",
		Short: "Inverted index and cosine-similarity search over a text corpus",
		Long: `invidx builds an inverted index over a corpus of text documents and ranks
documents against free-text queries by cosine similarity of raw term counts.
TF-IDF weights of the query terms are reported alongside the ranking.

Example usage:
  invidx index --dir ./files          # Build and print corpus term statistics
  invidx query -q "cat sat"           # Rank documents for a query
  invidx query                        # Prompt for the query
  invidx publish --dir ./files        # Publish documents to the Kafka topic
  invidx crawl https://example.com/   # List pages reachable by links`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if a.dir != "" {
				cfg.Source.Kind = config.SourceDirectory
				cfg.Source.Dir = a.dir
			}
			if a.logLevel != "" {
				cfg.Logging.Level = a.logLevel
			}
			logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, "text")
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().StringVarP(&a.dir, "dir", "d", "", "read the corpus from this directory")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.quiet, "quiet", false, "disable progress output")

	root.AddCommand(
		newIndexCmd(a),
		newQueryCmd(a),
		newPublishCmd(a),
		newCrawlCmd(a),
	)
	return root
}

// Execute runs the command tree; SIGINT and SIGTERM cancel the running
// command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
