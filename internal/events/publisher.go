package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

const partitionKeyMetadata = "partition_key"

// EventPublisher sends lifecycle events out of the service. Publishing is
// best effort: callers log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// KafkaEventPublisher writes events to one Kafka topic through Watermill.
// Messages are partitioned by Event.Key so a session's events stay ordered.
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	if len(config.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("failed to create Kafka publisher: no brokers configured")
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
			return msg.Metadata.Get(partitionKeyMetadata), nil
		}),
	}, watermill.NewSlogLogger(config.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
	}, nil
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event *Event) error {
	msg, err := toMessage(ctx, event)
	if err != nil {
		return err
	}

	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("Failed to publish event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Published event",
		"event_id", event.ID,
		"event_type", event.Type,
		"key", event.Key(),
		"topic", p.topicName)
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

func toMessage(ctx context.Context, event *Event) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))
	msg.Metadata.Set(partitionKeyMetadata, event.Key())
	return msg, nil
}

// defaultRetention bounds InMemoryPublisher when it stands in for Kafka in a
// long running process.
const defaultRetention = 1000

// InMemoryPublisher keeps the most recent events. It is the publisher when
// Kafka is disabled or unreachable, and the one tests inspect.
type InMemoryPublisher struct {
	mu        sync.Mutex
	events    []Event
	retention int
	logger    *slog.Logger
}

func NewInMemoryPublisher(logger *slog.Logger) *InMemoryPublisher {
	return &InMemoryPublisher{retention: defaultRetention, logger: logger}
}

func (m *InMemoryPublisher) Publish(_ context.Context, event *Event) error {
	m.mu.Lock()
	m.events = append(m.events, *event)
	if over := len(m.events) - m.retention; over > 0 {
		m.events = append([]Event(nil), m.events[over:]...)
	}
	m.mu.Unlock()

	m.logger.Debug("Recorded event in memory",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

func (m *InMemoryPublisher) Close() error {
	return nil
}

// Events returns a copy of the retained events, oldest first.
func (m *InMemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func (m *InMemoryPublisher) EventsOfType(eventType EventType) []Event {
	var result []Event
	for _, e := range m.Events() {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

func (m *InMemoryPublisher) Reset() {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
}
