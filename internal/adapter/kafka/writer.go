package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/rubbish-tips-etl/internal/config"
	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

// Writer publishes one message per converted location.
// It implements pipeline.Loader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured facilities topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the loader in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Load serializes every location and publishes them in a single
// WriteMessages call. Keys are "city/slug" so a facility always lands on the
// same partition.
func (w *Writer) Load(ctx context.Context, res domain.ConversionResult) error {
	msgs := make([]kafkago.Message, 0, res.Output.Metadata.TotalLocations)
	for _, g := range res.Output.Cities {
		for _, loc := range g.Locations {
			msg, err := serializeToMessage(loc, res.GeneratedAt)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish locations: %w", err)
	}
	w.logger.Info("locations published", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// MessageKey is the partition key for a location.
func MessageKey(loc domain.Location) string {
	return loc.CitySlug + "/" + loc.Slug
}

// serializeToMessage marshals a Location into a Kafka message.
func serializeToMessage(loc domain.Location, convertedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(loc)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize location %d: %w", loc.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(loc)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "city_slug", Value: []byte(loc.CitySlug)},
			{Key: "facility_type", Value: []byte(loc.Type)},
			{Key: "converted_at", Value: []byte(convertedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
