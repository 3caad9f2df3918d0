// Package events publishes import lifecycle events to Kafka so downstream
// consumers (report refreshers, notification services) can react to new
// data without polling the import tables.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"dashboard-service/internal/importer"
)

const (
	EventImportCompleted = "import.completed"
	EventImportFailed    = "import.failed"
)

// Envelope wraps every published event with an identity, type tag and
// timestamp.
type Envelope struct {
	ID        string               `json:"id"`
	Type      string               `json:"type"`
	Source    string               `json:"source"`
	Timestamp time.Time            `json:"timestamp"`
	Data      importer.ImportEvent `json:"data"`
}

// Publisher writes import events to a single Kafka topic. A nil *Publisher
// is valid and publishes nothing, so Kafka stays optional in local setups.
type Publisher struct {
	writer *kafka.Writer
	logger *logrus.Entry
}

func NewPublisher(brokers []string, topic string, logger *logrus.Logger) *Publisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{
		writer: writer,
		logger: logger.WithField("component", "events"),
	}
}

// PublishImportCompleted emits an import.completed event.
func (p *Publisher) PublishImportCompleted(ctx context.Context, event importer.ImportEvent) error {
	return p.publish(ctx, EventImportCompleted, event)
}

// PublishImportFailed emits an import.failed event.
func (p *Publisher) PublishImportFailed(ctx context.Context, event importer.ImportEvent) error {
	return p.publish(ctx, EventImportFailed, event)
}

func (p *Publisher) publish(ctx context.Context, eventType string, event importer.ImportEvent) error {
	if p == nil {
		return nil
	}

	envelope := Envelope{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    "dashboard-service",
		Timestamp: time.Now().UTC(),
		Data:      event,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.BatchID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "import-type", Value: []byte(event.ImportType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"eventType": eventType,
			"batchId":   event.BatchID,
		}).Error("Failed to publish import event")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"eventType": eventType,
		"batchId":   event.BatchID,
		"topic":     p.writer.Topic,
	}).Info("Import event published")
	return nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
