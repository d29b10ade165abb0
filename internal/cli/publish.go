package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/kafka"
)

func newPublishCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the source corpus to the Kafka corpus topic",
		Long: `Read documents from the configured directory and publish each one, keyed by
name, to the configured topic partition. A searcher started with the kafka
source then builds the same corpus in the same order.

Examples:
  invidx publish --dir ./files
  invidx publish --dir ./files --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, closeSrc, err := source.Open(a.cfg)
			if err != nil {
				return err
			}
			defer closeSrc()
			docs, err := source.Collect(cmd.Context(), src)
			if err != nil {
				return err
			}

			records := make([]kafka.Record, 0, len(docs))
			for _, doc := range docs {
				if doc.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", doc.Err)
					continue
				}
				rec, err := source.EncodeMessage(doc.Name, doc.Text)
				if err != nil {
					return err
				}
				records = append(records, rec)
			}
			out := cmd.OutOrStdout()
			if dryRun {
				for _, rec := range records {
					fmt.Fprintln(out, rec.Key)
				}
				fmt.Fprintf(out, "%d documents would be published to %s\n", len(records), a.cfg.Kafka.Topic)
				return nil
			}

			producer := kafka.NewProducer(a.cfg.Kafka)
			defer producer.Close()
			if _, err := producer.Publish(cmd.Context(), records); err != nil {
				return err
			}
			fmt.Fprintf(out, "Published %d documents to %s/%d\n", len(records), a.cfg.Kafka.Topic, a.cfg.Kafka.Partition)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the documents without publishing")
	return cmd
}
