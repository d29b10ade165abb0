package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
)

// publishBatch bounds the messages handed to one WriteMessages call.
const publishBatch = 100

// Record is one keyed message. Value is written verbatim.
type Record struct {
	Key   string
	Value []byte
}

// Producer writes records to a single partition of the corpus topic, so a
// later drain reads them back in publish order.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     fixedPartition(cfg.Partition),
			BatchSize:    publishBatch,
			BatchTimeout: 10 * time.Millisecond,
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireAll,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", cfg.Topic, "partition", cfg.Partition),
	}
}

// Publish writes records in order, publishBatch at a time, and returns how
// many were acknowledged before any error.
func (p *Producer) Publish(ctx context.Context, records []Record) (int, error) {
	sent := 0
	for sent < len(records) {
		end := min(sent+publishBatch, len(records))
		msgs := make([]kafka.Message, 0, end-sent)
		for _, r := range records[sent:end] {
			msgs = append(msgs, kafka.Message{Key: []byte(r.Key), Value: r.Value})
		}
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			p.logger.Error("publish failed", "sent", sent, "batch", len(msgs), "error", err)
			return sent, fmt.Errorf("publishing to %s after %d records: %w", p.writer.Topic, sent, err)
		}
		sent = end
		p.logger.Debug("batch published", "sent", sent, "total", len(records))
	}
	return sent, nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// fixedPartition sends every message to one partition, falling back to the
// first available if it does not exist.
type fixedPartition int

func (f fixedPartition) Balance(msg kafka.Message, partitions ...int) int {
	for _, p := range partitions {
		if p == int(f) {
			return p
		}
	}
	return partitions[0]
}
