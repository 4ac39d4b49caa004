package pubsub

import "strings"

const channelPrefix = "commentary"

// Lifecycle event types.
const (
	EventSessionStarted = "session_started"
	EventSessionEnded   = "session_ended"
)

// SessionLifecycleChannel is the channel carrying one session's lifecycle:
// "commentary:session:<id>:lifecycle".
func SessionLifecycleChannel(sessionID string) string {
	return strings.Join([]string{channelPrefix, "session", sessionID, "lifecycle"}, ":")
}

// SessionStartedPayload is sent once a worker runs for the session.
type SessionStartedPayload struct {
	SessionID string `json:"session_id"`
	ViewerID  string `json:"viewer_id"`
	EventID   string `json:"event_id"`
	Style     string `json:"style"`
	Language  string `json:"language"`
}

// SessionEndedPayload is sent after the session left the registry.
type SessionEndedPayload struct {
	SessionID string `json:"session_id"`
	ViewerID  string `json:"viewer_id"`
	EventID   string `json:"event_id"`
	Reason    string `json:"reason"`
	Processed int    `json:"processed"`
}
