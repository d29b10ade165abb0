package source

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/postgres"
)

// Open builds the Source selected by cfg.Source.Kind. The returned close
// function releases whatever connection the source holds and is never nil.
func Open(cfg *config.Config) (Source, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Source.Kind {
	case config.SourceDirectory:
		return NewDirectory(
			cfg.Source.Dir,
			cfg.Source.Includes,
			cfg.Source.Excludes,
			WithReadAttempts(cfg.Source.ReadAttempts),
		), noop, nil
	case config.SourcePostgres:
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, noop, fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
		}
		return NewPostgres(client, cfg.Postgres.Table), client.Close, nil
	case config.SourceKafka:
		return NewKafka(kafka.NewPartitionReader(cfg.Kafka)), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown source kind %q: %w", cfg.Source.Kind, apperrors.ErrInvalidInput)
	}
}
