package domain

import "time"

// SessionStatus is the lifecycle state of a commentary session.
type SessionStatus string

const (
	StatusRunning   SessionStatus = "running"
	StatusPaused    SessionStatus = "paused"
	StatusStopped   SessionStatus = "stopped"
	StatusCompleted SessionStatus = "completed"
)

// Commentary styles understood by the pipeline.
const (
	StyleEnthusiastic = "enthusiastic"
	StyleDramatic     = "dramatic"
	StyleCalm         = "calm"
	// StyleAuto picks a style from the generated commentary text.
	StyleAuto = "auto"
)

const (
	DefaultStyle    = StyleEnthusiastic
	DefaultLanguage = "en-US"
)

// IsTerminal reports whether no further transitions are allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusStopped || s == StatusCompleted
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusRunning:
		return next == StatusPaused || next == StatusStopped || next == StatusCompleted
	case StatusPaused:
		return next == StatusRunning || next == StatusStopped || next == StatusCompleted
	default:
		return false
	}
}

// Session is one viewer's subscription to commentary for one event.
type Session struct {
	ID        string        `json:"session_id"`
	ViewerID  string        `json:"viewer_id"`
	EventID   string        `json:"event_id"`
	Style     string        `json:"style"`
	Language  string        `json:"language"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
}

// SessionID derives the deterministic session id for a viewer and event.
func SessionID(viewerID, eventID string) string {
	return viewerID + "_" + eventID
}

// NewSession creates a running session, filling in default style and language.
func NewSession(viewerID, eventID, style, language string) *Session {
	if style == "" {
		style = DefaultStyle
	}
	if language == "" {
		language = DefaultLanguage
	}
	return &Session{
		ID:        SessionID(viewerID, eventID),
		ViewerID:  viewerID,
		EventID:   eventID,
		Style:     style,
		Language:  language,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
}
