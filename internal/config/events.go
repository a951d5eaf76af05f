package config

import (
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/proctor-service/internal/events"
)

// EventConfig holds configuration for lifecycle event publishing
type EventConfig struct {
	Enabled      bool
	Publisher    string // kafka or memory
	KafkaBrokers string
	Topic        string
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// CreateEventPublisher creates an event publisher based on configuration
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, keeping events in memory")
		return events.NewInMemoryPublisher(logger), nil
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka event publisher",
			"brokers", c.KafkaBrokers,
			"topic", c.Topic)

		return events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			TopicName:    c.Topic,
			Logger:       logger,
		})
	case "memory", "mock":
		logger.Info("Using in-memory event publisher")
		return events.NewInMemoryPublisher(logger), nil
	default:
		logger.Warn("Unknown event publisher type, falling back to memory", "publisher", c.Publisher)
		return events.NewInMemoryPublisher(logger), nil
	}
}
