// Package events publishes order lifecycle events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const EventTypeOrderStatusChanged = "order.status_changed"

// Event sources.
const (
	SourceWebhook = "webhook"
	SourceAdmin   = "admin"
)

// OrderStatusChanged is emitted whenever a payment notification creates or
// updates an order, or an administrator changes its status.
type OrderStatusChanged struct {
	EventType  string    `json:"event_type"`
	Source     string    `json:"source"`
	OrderID    string    `json:"order_id"`
	PaymentID  string    `json:"payment_id"`
	Status     string    `json:"status"`
	Total      string    `json:"total"`
	Email      string    `json:"email,omitempty"`
	Created    bool      `json:"created"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishOrderStatusChanged(ctx context.Context, event OrderStatusChanged) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by payment id, so all
// events for one payment land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// publishBatchTimeout bounds how long a synchronous publish waits for a
// batch to fill. kafka-go defaults to one second.
const publishBatchTimeout = 10 * time.Millisecond

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchTimeout: publishBatchTimeout,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &KafkaPublisher{writer: writer, logger: logger}
}

func (p *KafkaPublisher) PublishOrderStatusChanged(ctx context.Context, event OrderStatusChanged) error {
	if event.EventType == "" {
		event.EventType = EventTypeOrderStatusChanged
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: value,
		Time:  event.OccurredAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.Debug("published event",
		slog.String("type", event.EventType),
		slog.String("order_id", event.OrderID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderStatusChanged(context.Context, OrderStatusChanged) error { return nil }

func (NopPublisher) Close() error { return nil }
