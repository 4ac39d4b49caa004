// Package broadcast delivers session results to the viewer that owns them.
package broadcast

import (
	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
)

// Sender delivers a message to one connected client.
type Sender interface {
	SendToClient(clientID string, message interface{}) error
}

// Broadcaster wraps events in envelopes and addresses them by viewer id.
type Broadcaster struct {
	sender Sender
}

// New creates a Broadcaster over sender (normally the websocket hub).
func New(sender Sender) *Broadcaster {
	return &Broadcaster{sender: sender}
}

// Publish sends ev to viewerID. An unknown or disconnected viewer is a no-op.
func (b *Broadcaster) Publish(viewerID, sessionID string, ev domain.Event) {
	if err := b.sender.SendToClient(viewerID, domain.NewEnvelope(sessionID, ev)); err != nil {
		l := pkglog.L()
		l.Error().Err(err).
			Str(pkglog.FieldViewerID, viewerID).
			Str(pkglog.FieldSessionID, sessionID).
			Str("event_type", ev.EventType()).
			Msg("failed to publish event")
	}
}
