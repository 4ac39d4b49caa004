package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is the envelope every bus message is carried in. IDs are ULIDs so
// consumers can order events from one producer without the timestamp.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent encodes payload and stamps the event with a fresh id.
func NewEvent(eventType, sessionID string, payload any) (*Event, error) {
	if eventType == "" {
		return nil, fmt.Errorf("event type is empty")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	now := time.Now().UTC()
	return &Event{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Type:      eventType,
		SessionID: sessionID,
		Payload:   data,
		Timestamp: now,
	}, nil
}

// Decode unpacks the payload into v.
func (e *Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.ID)
	}
	return json.Unmarshal(e.Payload, v)
}

func (e *Event) encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event %s: %w", e.ID, err)
	}
	return data, nil
}

// Publisher sends events to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// PubSub is a Publisher that owns a broker connection.
type PubSub interface {
	Publisher
	Close() error
}
