package domain

// WebSocket message types from client.
const (
	MsgTypeStart  = "start"
	MsgTypeStop   = "stop"
	MsgTypePause  = "pause"
	MsgTypeResume = "resume"
	MsgTypePing   = "ping"
)

// WebSocket message types to client (besides event envelopes).
const (
	MsgTypePong = "pong"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// StartMessage asks for commentary on an event.
type StartMessage struct {
	Type     string `json:"type"`
	EventID  string `json:"event_id"`
	GameID   string `json:"game_id,omitempty"` // accepted alias of event_id
	Style    string `json:"style"`
	Language string `json:"language"`
}

// TargetEventID returns event_id, falling back to game_id.
func (m *StartMessage) TargetEventID() string {
	if m.EventID != "" {
		return m.EventID
	}
	return m.GameID
}

// PongMessage answers a ping.
type PongMessage struct {
	Type string `json:"type"`
}
