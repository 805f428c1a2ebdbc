//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafkatc "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/svg-world-map/internal/adapter/kafka"
	"github.com/couchcryptid/svg-world-map/internal/adapter/svg"
	"github.com/couchcryptid/svg-world-map/internal/config"
	"github.com/couchcryptid/svg-world-map/internal/domain"
	"github.com/couchcryptid/svg-world-map/internal/observability"
	"github.com/couchcryptid/svg-world-map/internal/pipeline"
	"github.com/couchcryptid/svg-world-map/internal/regionindex"
	"github.com/couchcryptid/svg-world-map/internal/timeline"
)

const testSnapshotTopic = "test-snapshots"

const testMap = `<svg xmlns="http://www.w3.org/2000/svg">
<g id="World">
  <rect id="Ocean" fill="#ffffff"/>
  <path id="AA" fill="#cccccc"/>
  <g id="BB"><path id="BB-1" fill="#cccccc"/><path id="BB-2" fill="#cccccc"/></g>
</g>
</svg>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := kafkatc.Run(ctx, "confluentinc/confluent-local:7.5.0", kafkatc.WithClusterID("svg-world-map"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type staticPayloads struct{ payload domain.Payload }

func (s staticPayloads) FetchPayload(context.Context) (domain.Payload, string, error) {
	return s.payload, "static", nil
}

func history(values ...int64) map[string]int64 {
	h := make(map[string]int64, len(values))
	for i, v := range values {
		h[time.Date(2020, time.March, 1+i, 0, 0, 0, 0, time.UTC).Format("1/2/06")] = v
	}
	return h
}

func testPayload() domain.Payload {
	feed := func(aa, bb1, bb2 []int64) domain.MetricFeed {
		return domain.MetricFeed{Locations: []domain.LocationRecord{
			{CountryCode: "AA", Country: "Alderia", History: history(aa...)},
			{CountryCode: "BB", Country: "Borovia", Province: "One", History: history(bb1...)},
			{CountryCode: "BB", Country: "Borovia", Province: "Two", History: history(bb2...)},
		}}
	}
	return domain.Payload{
		domain.MetricConfirmed: feed([]int64{1, 10, 400}, []int64{0, 5, 50}, []int64{2, 2, 9}),
		domain.MetricRecovered: feed([]int64{0, 1, 100}, []int64{0, 0, 10}, []int64{0, 1, 1}),
		domain.MetricDeaths:    feed([]int64{0, 0, 4}, []int64{0, 0, 1}, []int64{0, 0, 0}),
	}
}

type snapshotRecord struct {
	BuildID string            `json:"build_id"`
	Index   int               `json:"index"`
	Date    string            `json:"date"`
	Colors  map[string]string `json:"colors"`
}

// TestSnapshotWriterRoundTrip builds a session through the pipeline, publishes
// its snapshots to a real broker and reads them back in order.
func TestSnapshotWriterRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSnapshotTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSnapshotTopic: testSnapshotTopic,
	}
	writer := kafka.NewSnapshotWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	docs := func(context.Context) (pipeline.Document, error) { return svg.ParseBytes([]byte(testMap)) }
	p := pipeline.New(docs, staticPayloads{testPayload()}, pipeline.Options{
		Style:       regionindex.DefaultStyle(),
		Normalizer:  domain.DefaultNormalizerOptions(),
		DisplayMode: domain.DisplayCompact,
		Timeline:    timeline.DefaultOptions(),
		Publisher:   writer,
	}, discardLogger(), observability.NewMetricsForTesting())

	sess, err := p.Refresh(ctx)
	require.NoError(t, err)
	require.Same(t, sess, p.Session())
	require.Len(t, sess.Snapshots, 3)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSnapshotTopic,
		GroupID:     fmt.Sprintf("test-snapshots-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i, want := range sess.Snapshots {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read snapshot %d", i)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, want.Date, string(msg.Key))
		assert.Equal(t, sess.BuildID, headers["build_id"])
		assert.Equal(t, strconv.Itoa(i), headers["index"])

		var rec snapshotRecord
		require.NoError(t, json.Unmarshal(msg.Value, &rec))
		assert.Equal(t, i, rec.Index)
		assert.Equal(t, want.Colors, rec.Colors)
		assert.Contains(t, rec.Colors, "AA")
		assert.Contains(t, rec.Colors, "BB")
	}
}
