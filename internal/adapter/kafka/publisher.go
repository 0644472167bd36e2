package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/collapse-story-etl/internal/config"
	"github.com/couchcryptid/collapse-story-etl/internal/domain"
	"github.com/couchcryptid/collapse-story-etl/internal/observability"
	"github.com/couchcryptid/collapse-story-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

// Record types carried in the record_type header.
const (
	RecordAccident      = "accident"
	RecordMedia         = "media"
	RecordAccidentStats = "accident_stats"
	RecordMediaStats    = "media_stats"
	RecordCoverage      = "coverage"
)

// Header keys set on every message.
const (
	HeaderRecordType = "record_type"
	HeaderSnapshotID = "snapshot_id"
	HeaderBuiltAt    = "built_at"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher exports snapshots to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured export topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger, metrics: metrics}
}

// Publish writes every record of the snapshot plus its three statistics
// documents in a single WriteMessages call.
func (p *Publisher) Publish(ctx context.Context, s pipeline.Snapshot) error {
	msgs, err := snapshotMessages(s)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write snapshot %s: %w", s.ID, err)
	}

	p.metrics.RecordsPublished.Add(float64(len(msgs)))
	p.logger.Info("snapshot published", "snapshot_id", s.ID, "messages", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// snapshotMessages flattens a snapshot into keyed messages: accidents and
// media records first, then the statistics documents.
func snapshotMessages(s pipeline.Snapshot) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, len(s.Accidents)+len(s.Media)+3)

	for i := range s.Accidents {
		msg, err := serializeToMessage(s, RecordAccident, s.Accidents[i].ID, s.Accidents[i])
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	for i := range s.Media {
		msg, err := serializeToMessage(s, RecordMedia, s.Media[i].ID, s.Media[i])
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	docs := []struct {
		recordType string
		value      any
	}{
		{RecordAccidentStats, s.AccidentStats},
		{RecordMediaStats, s.MediaStats},
		{RecordCoverage, coverageSummary(s.Coverage)},
	}
	for _, d := range docs {
		msg, err := serializeToMessage(s, d.recordType, d.recordType, d.value)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// coverageSummary drops the article lists; articles travel as media records.
func coverageSummary(c domain.Coverage) domain.Coverage {
	days := make([]domain.DailyStats, len(c.DailyStats))
	for i, d := range c.DailyStats {
		days[i] = domain.DailyStats{Date: d.Date, Count: d.Count}
	}
	c.Articles = nil
	c.DailyStats = days
	return c
}

// serializeToMessage marshals one snapshot document into a Kafka message.
func serializeToMessage(s pipeline.Snapshot, recordType, key string, v any) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s %s: %w", recordType, key, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderRecordType, Value: []byte(recordType)},
			{Key: HeaderSnapshotID, Value: []byte(s.ID)},
			{Key: HeaderBuiltAt, Value: []byte(s.BuiltAt.Format(time.RFC3339))},
		},
	}, nil
}
