package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community), NATS (Pro) or Kafka.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel", "nats" or "kafka"
	Type string `yaml:"type"`

	// Channel settings (Community tier)
	ChannelBufferSize int `yaml:"channelBufferSize"`

	// NATS settings (Pro tier)
	NATSUrl           string `yaml:"natsUrl"`
	NATSToken         string `yaml:"natsToken"`
	NATSMaxReconnects int    `yaml:"natsMaxReconnects"`
	NATSReconnectWait int    `yaml:"natsReconnectWait"` // seconds

	// Kafka settings
	KafkaBrokers []string `yaml:"kafkaBrokers"`
	KafkaGroupID string   `yaml:"kafkaGroupId"`
}

// Topics carrying scan events.
const (
	TopicScanCompleted = "scamsniper.scan.completed"
	TopicScanFlagged   = "scamsniper.scan.flagged"
)

// ScanEvent is published after every scoring request.
type ScanEvent struct {
	Type      string `json:"type"`
	Input     string `json:"input"`
	Verdict   string `json:"verdict"`
	Score     int    `json:"score"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Flagged reports whether the verdict warrants the flagged topic.
func (e ScanEvent) Flagged() bool {
	switch e.Verdict {
	case LabelScam, LabelSuspicious, EmailLabelScam, EmailLabelSuspicious:
		return true
	}
	return false
}
