// Package kafka publishes usage events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/raggadon/pkg/eventstream"
)

const defaultTopic = "raggadon.usage"

// Config configures the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish. Defaults to 10s.
	WriteTimeout time.Duration
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes each event as one JSON message keyed by project, so a
// project's events stay in partition order.
type Publisher struct {
	writer  MessageWriter
	timeout time.Duration
}

var _ eventstream.Publisher = (*Publisher)(nil)

// NewPublisher creates a publisher backed by a kafka-go Writer.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if c.Topic == "" {
		c.Topic = defaultTopic
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return NewPublisherWithWriter(w, c.WriteTimeout), nil
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Publisher{writer: w, timeout: timeout}
}

// PublishUsage marshals event and writes it to the topic.
func (p *Publisher) PublishUsage(ctx context.Context, event *eventstream.UsageRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilUsageEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal usage event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.Project),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	})
	if err != nil {
		return fmt.Errorf("write usage event: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
