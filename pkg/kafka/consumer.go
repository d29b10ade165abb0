// Package kafka provides Kafka producer and partition-reader clients backed
// by segmentio/kafka-go. The producer publishes corpus documents, while the
// reader drains a partition from its first offset up to the high-water mark
// observed when the drain starts.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
	"github.com/segmentio/kafka-go"
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, offset int64, key []byte, value []byte) error

// PartitionReader reads a bounded range of one topic partition.
type PartitionReader struct {
	cfg    config.KafkaConfig
	logger *slog.Logger
}

// NewPartitionReader creates a reader for cfg.Topic / cfg.Partition.
func NewPartitionReader(cfg config.KafkaConfig) *PartitionReader {
	return &PartitionReader{
		cfg:    cfg,
		logger: slog.Default().With("component", "kafka-reader", "topic", cfg.Topic, "partition", cfg.Partition),
	}
}

// Offsets returns the first and the next-to-be-written offsets of the
// partition.
func (p *PartitionReader) Offsets(ctx context.Context) (first, last int64, err error) {
	if len(p.cfg.Brokers) == 0 {
		return 0, 0, fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialLeader(ctx, "tcp", p.cfg.Brokers[0], p.cfg.Topic, p.cfg.Partition)
	if err != nil {
		return 0, 0, fmt.Errorf("dialing partition leader: %w", err)
	}
	defer conn.Close()
	first, last, err = conn.ReadOffsets()
	if err != nil {
		return 0, 0, fmt.Errorf("reading partition offsets: %w", err)
	}
	return first, last, nil
}

// Drain delivers every message in [first, last) to handler in offset order
// and returns the number of messages read. A handler error stops the drain.
func (p *PartitionReader) Drain(ctx context.Context, handler MessageHandler) (int, error) {
	first, last, err := p.Offsets(ctx)
	if err != nil {
		return 0, err
	}
	if first >= last {
		p.logger.Info("partition empty, nothing to drain")
		return 0, nil
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   p.cfg.Brokers,
		Topic:     p.cfg.Topic,
		Partition: p.cfg.Partition,
		MinBytes:  1,
		MaxBytes:  10e6,
		MaxWait:   p.cfg.MaxWait,
	})
	defer r.Close()
	if err := r.SetOffset(first); err != nil {
		return 0, fmt.Errorf("seeking to offset %d: %w", first, err)
	}
	p.logger.Info("draining partition", "first_offset", first, "last_offset", last)

	read := 0
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			return read, fmt.Errorf("reading message after offset %d: %w", first+int64(read)-1, err)
		}
		p.logger.Debug("message received",
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		read++
		if err := handler(ctx, msg.Offset, msg.Key, msg.Value); err != nil {
			return read, err
		}
		if msg.Offset+1 >= last {
			return read, nil
		}
	}
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
