package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/svg-world-map/internal/config"
	"github.com/couchcryptid/svg-world-map/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// SnapshotWriter publishes day snapshots to a Kafka topic, one message per day.
// It implements pipeline.SnapshotPublisher.
type SnapshotWriter struct {
	writer messageWriter
	logger *slog.Logger
}

// NewSnapshotWriter creates a Kafka producer for the configured snapshot topic.
func NewSnapshotWriter(cfg *config.Config, logger *slog.Logger) *SnapshotWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &SnapshotWriter{writer: w, logger: logger}
}

// snapshotMessage is the published value of one day.
type snapshotMessage struct {
	BuildID string            `json:"build_id"`
	Index   int               `json:"index"`
	Date    string            `json:"date"`
	BuiltAt time.Time         `json:"built_at"`
	Colors  map[string]string `json:"colors"`
}

// PublishSnapshots serializes every snapshot and writes them in a single
// WriteMessages call. Keying by date keeps a day on one partition.
func (w *SnapshotWriter) PublishSnapshots(ctx context.Context, buildID string, builtAt time.Time, snapshots []domain.DaySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snapshots))
	for i := range snapshots {
		msg, err := serializeSnapshot(buildID, builtAt, snapshots[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish snapshots: %w", err)
	}
	w.logger.Info("snapshots published", "build_id", buildID, "days", len(msgs))
	return nil
}

// Close flushes pending messages and closes the underlying writer.
func (w *SnapshotWriter) Close() error {
	return w.writer.Close()
}

func serializeSnapshot(buildID string, builtAt time.Time, s domain.DaySnapshot) (kafkago.Message, error) {
	data, err := sonic.Marshal(snapshotMessage{
		BuildID: buildID,
		Index:   s.Index,
		Date:    s.Date,
		BuiltAt: builtAt.UTC(),
		Colors:  s.Colors,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot %s: %w", s.Date, err)
	}
	return kafkago.Message{
		Key:   []byte(s.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "build_id", Value: []byte(buildID)},
			{Key: "date", Value: []byte(s.Date)},
			{Key: "index", Value: []byte(strconv.Itoa(s.Index))},
		},
	}, nil
}
