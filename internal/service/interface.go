package service

import (
	"context"
	"time"
)

// StartRequest asks for commentary on one event.
type StartRequest struct {
	EventID  string
	Style    string
	Language string
}

// Status is a point-in-time summary of the service.
type Status struct {
	Status         string    `json:"status"`
	Clients        int       `json:"clients"`
	ActiveSessions int       `json:"active_sessions"`
	Timestamp      time.Time `json:"timestamp"`
}

// CommentaryService is the control surface for viewers: it starts, pauses,
// resumes and stops sessions, and reacts to connection lifecycle events.
type CommentaryService interface {
	// HandleConnect acknowledges a newly connected viewer.
	HandleConnect(ctx context.Context, viewerID string) error

	// HandleDisconnect stops every session owned by the viewer.
	HandleDisconnect(ctx context.Context, viewerID string) error

	// Start creates a session and spawns its worker. It returns the session id.
	Start(ctx context.Context, viewerID string, req StartRequest) (string, error)

	// Stop stops every session owned by the viewer and returns their ids.
	Stop(ctx context.Context, viewerID string) ([]string, error)

	// Pause pauses every running session owned by the viewer.
	Pause(ctx context.Context, viewerID string) ([]string, error)

	// Resume resumes every paused session owned by the viewer.
	Resume(ctx context.Context, viewerID string) ([]string, error)

	// Status reports connection and session counts.
	Status(ctx context.Context) Status
}
