package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Config holds configuration for the Kafka flood-alert publisher.
type Config struct {
	// Enabled switches alert publishing on.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Brokers is a comma-separated broker list.
	Brokers string `mapstructure:"brokers" default:"localhost:9092"`
	// Topic is the alert topic.
	Topic string `mapstructure:"topic" default:"flood-alerts"`
	// MinTier is the lowest tier that triggers an alert (alert, minor, major).
	MinTier string `mapstructure:"min_tier" default:"alert"`
}

// Event is the alert payload published per qualifying reading.
type Event struct {
	Station    string    `json:"station"`
	Basin      *string   `json:"basin,omitempty"`
	Level      float64   `json:"level"`
	Status     string    `json:"status"`
	ObservedAt time.Time `json:"observed_at"`
	Time       string    `json:"time"`
}

// Publisher produces flood alerts to a Kafka topic for newly persisted
// readings at or above the configured tier.
type Publisher struct {
	writer  *kafkago.Writer
	minTier models.Tier
	logger  *zap.Logger
}

// NewPublisher creates a Kafka producer for the configured alert topic.
func NewPublisher(cfg Config, logger *zap.Logger) *Publisher {
	brokers := strings.Split(cfg.Brokers, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, minTier: models.ParseTier(cfg.MinTier), logger: logger}
}

// Publish filters the readings by tier and publishes the qualifying ones
// in a single WriteMessages call. Alerting is best effort: a failure is
// returned for logging but never affects the reconciled state.
func (p *Publisher) Publish(ctx context.Context, readings []models.Reading) error {
	var msgs []kafkago.Message
	for _, r := range readings {
		if r.Tier < p.minTier || p.minTier == models.TierNormal {
			continue
		}
		msg, err := serializeToMessage(r)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish alerts: %w", err)
	}
	p.logger.Info("flood alerts published", zap.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(r models.Reading) (kafkago.Message, error) {
	event := Event{
		Station:    r.StationKey,
		Basin:      r.Basin,
		Level:      r.Level,
		Status:     r.Tier.String(),
		ObservedAt: r.ObservedAt,
		Time:       r.DisplayTime,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.StationKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(r.Tier.String())},
		},
	}, nil
}
