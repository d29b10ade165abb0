package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/kafka"
)

// Message is the JSON value of a corpus document on the Kafka topic.
type Message struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// EncodeMessage renders doc as a Kafka record keyed by its name.
func EncodeMessage(name, text string) (kafka.Record, error) {
	value, err := json.Marshal(Message{Name: name, Text: text})
	if err != nil {
		return kafka.Record{}, fmt.Errorf("encoding document %q: %w", name, err)
	}
	return kafka.Record{Key: name, Value: value}, nil
}

// Kafka drains one topic partition from its first offset to the high-water
// mark seen at the start of Walk. Records that fail to decode, or that are
// tombstones, are delivered as unreadable documents.
type Kafka struct {
	reader *kafka.PartitionReader
	logger *slog.Logger
}

func NewKafka(reader *kafka.PartitionReader) *Kafka {
	return &Kafka{
		reader: reader,
		logger: slog.Default().With("component", "kafka-source"),
	}
}

func (k *Kafka) Kind() string { return "kafka" }

func (k *Kafka) Walk(ctx context.Context, fn VisitFunc) error {
	n, err := k.reader.Drain(ctx, func(ctx context.Context, offset int64, key, value []byte) error {
		return fn(decodeMessage(offset, key, value))
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if n == 0 {
			return fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
		}
		return err
	}
	k.logger.Info("kafka drain complete", "messages", n)
	return nil
}

func decodeMessage(offset int64, key, value []byte) Document {
	name := string(key)
	if name == "" {
		name = fmt.Sprintf("offset-%d", offset)
	}
	if value == nil {
		return Document{Name: name, Err: apperrors.Unreadable(name, errors.New("tombstone record"))}
	}
	msg, err := kafka.DecodeJSON[Message](value)
	if err != nil {
		return Document{Name: name, Err: apperrors.Unreadable(name, err)}
	}
	if msg.Name != "" {
		name = msg.Name
	}
	return Document{Name: name, Text: msg.Text}
}
