package domain

import (
	"context"
)

// EventBus decouples ingestion from downstream consumers.
// Backed by Go channels (community tier) or NATS (pro tier).
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Ping checks bus health.
	Ping(ctx context.Context) error

	// Close shuts the bus down.
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is an event envelope.
type Message struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Payload   []byte `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// Subscription is an active topic subscription.
type Subscription interface {
	Unsubscribe() error
	Topic() string
}

// Topics used by the scoring pipeline.
const (
	TopicTransactionIngested = "kestrel.transaction.ingested"
	TopicAlert               = "kestrel.alert"
)

// IngestedEvent is the payload published on TopicTransactionIngested.
// It carries the raw payload fields a scoring request needs beyond what
// the Transaction record itself holds.
type IngestedEvent struct {
	Transaction       Transaction `json:"transaction"`
	Duration          float64     `json:"duration"`
	LoginAttempts     float64     `json:"loginAttempts"`
	AccountBalance    float64     `json:"accountBalance"`
	PreviousTimestamp string      `json:"previousTimestamp"`
}

// AlertEvent is the payload published on TopicAlert for flagged verdicts.
type AlertEvent struct {
	EvaluationID string  `json:"evaluationId"`
	AccountID    string  `json:"accountId"`
	Composite    float64 `json:"compositeScore"`
	Drift        bool    `json:"driftDetected"`
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats".
	Type string

	// Channel settings (community tier).
	ChannelBufferSize int

	// NATS settings (pro tier).
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}
