package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// IncomingMessage wraps a raw Kafka message with parsed headers.
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

func newIncomingMessage(msg kafka.Message) *IncomingMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &IncomingMessage{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Headers:   headers,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Topic:     msg.Topic,
	}
}

// Coordinates identifies the message within its topic.
func (m *IncomingMessage) Coordinates() string {
	return fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset)
}

type IdentityEventType string

const (
	UserCreated IdentityEventType = "user.created"
	UserUpdated IdentityEventType = "user.updated"
	UserDeleted IdentityEventType = "user.deleted"
)

// IdentityEvent is a user lifecycle notification from the identity service.
type IdentityEvent struct {
	EventID   string            `json:"event_id"`
	Type      IdentityEventType `json:"type"`
	UserID    int64             `json:"user_id"`
	Username  string            `json:"username"`
	Email     string            `json:"email"`
	Timestamp time.Time         `json:"timestamp"`
}

// ParseIdentityEvent decodes and checks an identity event. Events without an
// id are keyed by their position in the topic.
func (m *IncomingMessage) ParseIdentityEvent() (*IdentityEvent, error) {
	var evt IdentityEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		return nil, fmt.Errorf("invalid identity event: %w", err)
	}

	switch evt.Type {
	case UserCreated, UserUpdated, UserDeleted:
	default:
		return nil, fmt.Errorf("unknown identity event type %q", evt.Type)
	}
	if evt.UserID <= 0 {
		return nil, fmt.Errorf("identity event %s has no user_id", evt.Type)
	}
	if evt.EventID == "" {
		evt.EventID = m.Coordinates()
	}
	return &evt, nil
}
