package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rpattn/salespipe/internal/domain"
	"github.com/rpattn/salespipe/internal/logger"
)

// kafkaMessageReader abstracts kafka.Reader for testability.
type kafkaMessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaSource reads a bounded batch of JSON-encoded raw records from a
// topic. Upstream producers publish one RawRecord per message; the source
// stops at maxRecords or when the topic stays quiet past the idle timeout,
// whichever comes first.
type KafkaSource struct {
	reader      kafkaMessageReader
	maxRecords  int
	idleTimeout time.Duration
}

// NewKafkaSource connects a consumer group to the topic.
func NewKafkaSource(brokers []string, topic, groupID string, maxRecords int) *KafkaSource {
	return &KafkaSource{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10 << 20,
		}),
		maxRecords:  maxRecords,
		idleTimeout: 5 * time.Second,
	}
}

// Read consumes up to maxRecords messages and decodes them into raw
// records. Messages that fail to decode are skipped and counted, matching
// the file reader's shape-only contract.
func (s *KafkaSource) Read(ctx context.Context) ([]domain.RawRecord, Stats, error) {
	log := logger.FromContext(ctx)
	var records []domain.RawRecord
	var stats Stats

	for s.maxRecords <= 0 || stats.TotalRows < s.maxRecords {
		msgCtx, cancel := context.WithTimeout(ctx, s.idleTimeout)
		msg, err := s.reader.ReadMessage(msgCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break // topic idle, batch complete
			}
			if errors.Is(err, context.Canceled) {
				return nil, stats, ctx.Err()
			}
			return nil, stats, fmt.Errorf("read kafka message: %w", err)
		}

		stats.TotalRows++
		var raw domain.RawRecord
		if err := json.Unmarshal(msg.Value, &raw); err != nil {
			stats.Skipped++
			log.Warn().Int64("offset", msg.Offset).Err(err).Msg("skipping malformed kafka message")
			continue
		}
		raw.Line = int(msg.Offset)
		records = append(records, raw)
		stats.Parsed++
	}

	if stats.Parsed == 0 {
		return nil, stats, ErrNoRecords
	}
	return records, stats, nil
}

// Close releases the underlying consumer.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
