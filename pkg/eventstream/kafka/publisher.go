// Package kafka publishes ingestion events to an Apache Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/eventstream"
)

// DefaultTopic is the Kafka topic ingestion events are published to.
const DefaultTopic = "folio.ingestion"

// Config holds the Kafka publisher configuration.
type Config struct {
	// Brokers is the list of broker addresses, host:port.
	Brokers []string

	// Topic overrides DefaultTopic when set.
	Topic string

	// Logger is the logger the publisher writes to.
	Logger *zap.Logger
}

// Publisher publishes ingestion events to a Kafka topic.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a Kafka-backed eventstream publisher. The connection
// is lazy; the first publish dials the brokers.
func NewPublisher(c *Config) (*Publisher, error) {
	if c == nil || len(c.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// Topic returns the topic the publisher writes to.
func (p *Publisher) Topic() string {
	return p.writer.Topic
}

// PublishDocumentIndexed publishes a document outcome event, keyed by
// document ID so events for one document land on one partition.
func (p *Publisher) PublishDocumentIndexed(ctx context.Context, event *eventstream.DocumentIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return p.publish(ctx, event.DocumentID, event.EventType, event.SchemaVersion, event)
}

// PublishIngestionCompleted publishes a batch summary event keyed by batch ID.
func (p *Publisher) PublishIngestionCompleted(ctx context.Context, event *eventstream.IngestionCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return p.publish(ctx, event.BatchID, event.EventType, event.SchemaVersion, event)
}

func (p *Publisher) publish(ctx context.Context, key, eventType string, schemaVersion int, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(schemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}

	p.logger.Debug("event published",
		zap.String("topic", p.writer.Topic),
		zap.String("event_type", eventType),
		zap.String("key", key),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
