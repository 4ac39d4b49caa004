// Package notifier publishes session lifecycle notifications to the event bus
// so that other services can follow which viewers are watching what.
package notifier

import (
	"context"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
	"github.com/weiawesome/wes-io-live/commentary-service/pkg/pubsub"
)

// Reasons a session ended.
const (
	ReasonCompleted = "completed"
	ReasonStopped   = "stopped"
	ReasonError     = "error"
)

// Notifier receives session lifecycle transitions.
type Notifier interface {
	SessionStarted(ctx context.Context, session domain.Session)
	SessionEnded(ctx context.Context, session domain.Session, reason string, processed int)
}

// PubSubNotifier publishes lifecycle events on a per-session channel.
type PubSubNotifier struct {
	publisher pubsub.Publisher
}

// NewPubSubNotifier creates a notifier over publisher.
func NewPubSubNotifier(publisher pubsub.Publisher) *PubSubNotifier {
	return &PubSubNotifier{publisher: publisher}
}

func (n *PubSubNotifier) SessionStarted(ctx context.Context, session domain.Session) {
	n.publish(ctx, session.ID, pubsub.EventSessionStarted, pubsub.SessionStartedPayload{
		SessionID: session.ID,
		ViewerID:  session.ViewerID,
		EventID:   session.EventID,
		Style:     session.Style,
		Language:  session.Language,
	})
}

func (n *PubSubNotifier) SessionEnded(ctx context.Context, session domain.Session, reason string, processed int) {
	n.publish(ctx, session.ID, pubsub.EventSessionEnded, pubsub.SessionEndedPayload{
		SessionID: session.ID,
		ViewerID:  session.ViewerID,
		EventID:   session.EventID,
		Reason:    reason,
		Processed: processed,
	})
}

// publish is best effort; a broker outage must not affect commentary delivery.
func (n *PubSubNotifier) publish(ctx context.Context, sessionID, eventType string, payload interface{}) {
	l := pkglog.Ctx(ctx)

	event, err := pubsub.NewEvent(eventType, sessionID, payload)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldSessionID, sessionID).Msg("failed to build lifecycle event")
		return
	}
	if err := n.publisher.Publish(ctx, pubsub.SessionLifecycleChannel(sessionID), event); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldSessionID, sessionID).Str("event_type", eventType).Msg("failed to publish lifecycle event")
	}
}

// Noop discards lifecycle notifications.
type Noop struct{}

func (Noop) SessionStarted(ctx context.Context, session domain.Session) {}

func (Noop) SessionEnded(ctx context.Context, session domain.Session, reason string, processed int) {}
