// Package kafka publishes pipeline run outputs to a Kafka topic for
// downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// Publisher produces corrected readings and their anomaly records to a
// Kafka topic. It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishRun serializes one run's corrected reading and anomaly records and
// publishes them in a single WriteMessages call.
func (p *Publisher) PublishRun(ctx context.Context, reading domain.Reading, anomalies []domain.AnomalyRecord) error {
	msgs, err := buildMessages(reading, anomalies)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func buildMessages(reading domain.Reading, anomalies []domain.AnomalyRecord) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, 1+len(anomalies))

	readingMsg, err := serializeToMessage(reading.ID, "reading", reading, reading.Timestamp)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, readingMsg)

	for _, a := range anomalies {
		msg, err := serializeToMessage(a.ID, "anomaly", a, a.Timestamp)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// serializeToMessage marshals an event into a Kafka message with a type
// header so consumers can route readings and anomalies separately.
func serializeToMessage(key, eventType string, v any, ts time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s event: %w", eventType, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "recorded_at", Value: []byte(ts.Format(time.RFC3339))},
		},
	}, nil
}
