package domain

import "time"

// Event types pushed to viewers.
const (
	EventTypeCommentary = "commentary"
	EventTypeAudio      = "audio"
	EventTypeGameState  = "game_state"
	EventTypeStatus     = "status"
	EventTypeError      = "error"
)

// Status event kinds.
const (
	StatusKindConnected = "connected"
	StatusKindStarted   = "started"
	StatusKindPaused    = "paused"
	StatusKindResumed   = "resumed"
	StatusKindStopped   = "stopped"
	StatusKindCompleted = "completed"
)

// Event is a typed result delivered to a viewer.
type Event interface {
	EventType() string
}

// Envelope is the wire form of every event sent over the viewer connection.
type Envelope struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Data      Event     `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEnvelope wraps an event for delivery.
func NewEnvelope(sessionID string, ev Event) *Envelope {
	return &Envelope{
		Type:      ev.EventType(),
		SessionID: sessionID,
		Data:      ev,
		Timestamp: time.Now(),
	}
}

// CommentaryEvent carries generated commentary text.
type CommentaryEvent struct {
	Text      string    `json:"text"`
	Style     string    `json:"style"`
	Language  string    `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}

func (CommentaryEvent) EventType() string { return EventTypeCommentary }

// AudioEvent points the viewer at a synthesized audio artifact.
type AudioEvent struct {
	Text                     string  `json:"text"`
	Style                    string  `json:"style"`
	URL                      string  `json:"url"`
	EstimatedDurationSeconds float64 `json:"estimated_duration_seconds"`
	SizeBytes                int64   `json:"size_bytes"`
}

func (AudioEvent) EventType() string { return EventTypeAudio }

// GameStateEvent carries the extracted view model for one snapshot.
type GameStateEvent struct {
	State GameState `json:"game_state"`
}

func (GameStateEvent) EventType() string { return EventTypeGameState }

// StatusEvent reports a lifecycle change.
type StatusEvent struct {
	Kind    string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (StatusEvent) EventType() string { return EventTypeStatus }

// ErrorEvent reports a failure with a machine-readable code.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ErrorEvent) EventType() string { return EventTypeError }

// NewErrorEvent creates an error event.
func NewErrorEvent(code, message string) ErrorEvent {
	return ErrorEvent{Code: code, Message: message}
}

// EstimateDurationSeconds approximates spoken duration from text length.
func EstimateDurationSeconds(text string) float64 {
	return float64(len([]rune(text))) * 0.05
}
