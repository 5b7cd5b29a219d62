// Package messaging publishes domain events to Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/pdmews/internal/config"
	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/pkg/logger"
)

// EventAlertCreated is the event name carried by every alert message.
const EventAlertCreated = "alert.created"

// AlertMessage is the JSON payload written to the alert topic.
type AlertMessage struct {
	Event       string        `json:"event"`
	Alert       *models.Alert `json:"alert"`
	PublishedAt time.Time     `json:"published_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaAlertPublisher is a Kafka-backed implementation of service.AlertPublisher.
type KafkaAlertPublisher struct {
	writer messageWriter
	logger logger.Logger
}

var _ service.AlertPublisher = (*KafkaAlertPublisher)(nil)

// NewKafkaAlertPublisher creates a publisher writing to cfg.AlertTopic.
func NewKafkaAlertPublisher(cfg config.KafkaConfig, log logger.Logger) *KafkaAlertPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.AlertTopic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		BatchTimeout: cfg.BatchTimeout,
	}
	return newKafkaAlertPublisher(writer, log)
}

func newKafkaAlertPublisher(writer messageWriter, log logger.Logger) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{
		writer: writer,
		logger: log.WithComponent("KafkaAlertPublisher"),
	}
}

// Publish writes alert keyed by user so one user's alerts stay ordered on a partition.
func (p *KafkaAlertPublisher) Publish(ctx context.Context, alert *models.Alert) error {
	bytes, err := json.Marshal(AlertMessage{
		Event:       EventAlertCreated,
		Alert:       alert,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error(ctx, "failed to marshal alert event", err)
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(alert.UserID.String()),
		Value: bytes,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(EventAlertCreated)},
		},
	})
	if err != nil {
		p.logger.Error(ctx, "failed to write alert to Kafka", err,
			logger.ID("alert_id", alert.ID))
	}
	return err
}

// Close closes the underlying Kafka writer.
func (p *KafkaAlertPublisher) Close() error {
	return p.writer.Close()
}

// NoopAlertPublisher drops every alert; used when Kafka is disabled.
type NoopAlertPublisher struct{}

func (NoopAlertPublisher) Publish(context.Context, *models.Alert) error { return nil }
func (NoopAlertPublisher) Close() error                                 { return nil }
