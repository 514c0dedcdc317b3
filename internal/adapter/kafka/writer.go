package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/deposition-etl/internal/config"
	"github.com/couchcryptid/deposition-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every published reading.
const (
	HeaderGranularity = "granularity"
	HeaderRunID       = "run_id"
	HeaderProcessedAt = "processed_at"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces aggregated readings to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer messageWriter
	runID  string
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. Every
// message carries runID so consumers can group the output of one run.
func NewWriter(cfg *config.Config, runID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, runID: runID, clock: clockwork.NewRealClock(), logger: logger}
}

// LoadBatch serializes and publishes readings to the sink topic in a single
// WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, readings []domain.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	processedAt := w.clock.Now().UTC()
	msgs := make([]kafkago.Message, len(readings))
	for i := range readings {
		msg, err := serializeToMessage(readings[i], w.runID, processedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write readings: %w", err)
	}
	w.logger.Debug("readings published", "count", len(msgs), "run_id", w.runID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Reading into a Kafka message keyed by its ID.
func serializeToMessage(r domain.Reading, runID string, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading %s: %w", r.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(r.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderGranularity, Value: []byte(r.Granularity.String())},
			{Key: HeaderRunID, Value: []byte(runID)},
			{Key: HeaderProcessedAt, Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
