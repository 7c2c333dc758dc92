package config

import (
	"log/slog"

	"github.com/itqan-learning/progress-service/internal/events"
)

// EventConfig holds configuration for event publishing
type EventConfig struct {
	Enabled           bool
	NotificationTopic string
	BufferSize        int64
}

// EventConfigFrom derives event settings from the loaded config.
func EventConfigFrom(cfg *Config) EventConfig {
	return EventConfig{
		Enabled:           cfg.EventsEnabled,
		NotificationTopic: getEnv("NOTIFICATION_TOPIC", "notifications"),
		BufferSize:        int64(getEnvInt("NOTIFICATION_BUFFER", 64)),
	}
}

// CreateEventPublisher creates the in-process publisher, or a mock when
// events are disabled.
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) events.EventPublisher {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return events.NewMockEventPublisher()
	}

	logger.Info("Creating in-process event publisher", "topic", c.NotificationTopic)
	return events.NewGoChannelEventPublisher(events.PublisherConfig{
		TopicName:  c.NotificationTopic,
		BufferSize: c.BufferSize,
		Logger:     logger,
	})
}
