package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
)

// SessionRegistry is the subset of the registry the control surface needs.
type SessionRegistry interface {
	Create(session *domain.Session) (string, error)
	UpdateStatus(sessionID string, status domain.SessionStatus) error
	Remove(sessionID string) (*domain.Session, bool)
	ListByViewer(viewerID string) []string
	Count() int
}

// Spawner starts the worker for a registered session.
type Spawner interface {
	Spawn(session domain.Session) error
}

// Initializer prepares the generation pipeline.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Publisher delivers events to a viewer.
type Publisher interface {
	Publish(viewerID, sessionID string, ev domain.Event)
}

// ClientCounter reports how many viewers are connected.
type ClientCounter interface {
	ClientCount() int
}

type commentaryService struct {
	registry  SessionRegistry
	spawner   Spawner
	pipeline  Initializer
	publisher Publisher
	clients   ClientCounter

	initTimeout time.Duration
	ready       atomic.Bool
	initGroup   singleflight.Group
}

// NewCommentaryService creates a new CommentaryService instance.
func NewCommentaryService(
	reg SessionRegistry,
	spawner Spawner,
	pipe Initializer,
	pub Publisher,
	clients ClientCounter,
) CommentaryService {
	return &commentaryService{
		registry:    reg,
		spawner:     spawner,
		pipeline:    pipe,
		publisher:   pub,
		clients:     clients,
		initTimeout: 30 * time.Second,
	}
}

func (s *commentaryService) HandleConnect(ctx context.Context, viewerID string) error {
	l := pkglog.Ctx(ctx)
	l.Info().Str(pkglog.FieldViewerID, viewerID).Msg("viewer connected")

	s.publisher.Publish(viewerID, "", domain.StatusEvent{
		Kind:    domain.StatusKindConnected,
		Message: viewerID,
	})
	return nil
}

func (s *commentaryService) HandleDisconnect(ctx context.Context, viewerID string) error {
	stopped := s.transitionAll(viewerID, domain.StatusStopped)

	l := pkglog.Ctx(ctx)
	l.Info().Str(pkglog.FieldViewerID, viewerID).Strs("sessions", stopped).Msg("viewer disconnected")
	return nil
}

func (s *commentaryService) Start(ctx context.Context, viewerID string, req StartRequest) (string, error) {
	l := pkglog.Ctx(ctx).With().
		Str(pkglog.FieldViewerID, viewerID).
		Str(pkglog.FieldEventID, req.EventID).
		Logger()

	if req.EventID == "" {
		s.publisher.Publish(viewerID, "", domain.NewErrorEvent(domain.ErrCodeNotFound, "missing event_id"))
		return "", domain.ErrMissingEventID
	}

	if err := s.ensurePipeline(); err != nil {
		l.Error().Err(err).Msg("pipeline unavailable")
		s.publisher.Publish(viewerID, "", domain.NewErrorEvent(domain.ErrCodeConfiguration, "pipeline unavailable"))
		return "", fmt.Errorf("%w: %v", domain.ErrPipelineUnavailable, err)
	}

	session := domain.NewSession(viewerID, req.EventID, req.Style, req.Language)
	id, err := s.registry.Create(session)
	if err != nil {
		s.publisher.Publish(viewerID, session.ID, domain.NewErrorEvent(domain.ErrorCode(err), fmt.Sprintf("session %s is already active", session.ID)))
		return "", err
	}

	s.publisher.Publish(viewerID, id, domain.StatusEvent{
		Kind:    domain.StatusKindStarted,
		Message: fmt.Sprintf("commentary started for event %s", req.EventID),
	})

	if err := s.spawner.Spawn(*session); err != nil {
		s.registry.Remove(id)
		s.publisher.Publish(viewerID, id, domain.NewErrorEvent(domain.ErrCodeInternal, "service is shutting down"))
		return "", err
	}

	l.Info().Str(pkglog.FieldSessionID, id).Str("style", session.Style).Msg("session started")
	return id, nil
}

func (s *commentaryService) Stop(ctx context.Context, viewerID string) ([]string, error) {
	stopped := s.transitionAll(viewerID, domain.StatusStopped)
	if len(stopped) == 0 {
		// Workers report their own terminal status; answer directly when there are none.
		s.publisher.Publish(viewerID, "", domain.StatusEvent{Kind: domain.StatusKindStopped, Message: "no active sessions"})
	}
	return stopped, nil
}

func (s *commentaryService) Pause(ctx context.Context, viewerID string) ([]string, error) {
	return s.control(viewerID, domain.StatusPaused, domain.StatusKindPaused)
}

func (s *commentaryService) Resume(ctx context.Context, viewerID string) ([]string, error) {
	return s.control(viewerID, domain.StatusRunning, domain.StatusKindResumed)
}

func (s *commentaryService) Status(ctx context.Context) Status {
	return Status{
		Status:         "running",
		Clients:        s.clients.ClientCount(),
		ActiveSessions: s.registry.Count(),
		Timestamp:      time.Now(),
	}
}

// control applies a pause or resume to every session of the viewer and
// acknowledges each session that changed. When none could change the viewer
// gets a BAD_REQUEST error instead.
func (s *commentaryService) control(viewerID string, status domain.SessionStatus, ack string) ([]string, error) {
	if len(s.registry.ListByViewer(viewerID)) == 0 {
		s.publisher.Publish(viewerID, "", domain.NewErrorEvent(domain.ErrCodeNotFound, "no active sessions"))
		return nil, domain.ErrSessionNotFound
	}

	changed := s.transitionAll(viewerID, status)
	if len(changed) == 0 {
		s.publisher.Publish(viewerID, "", domain.NewErrorEvent(domain.ErrCodeBadRequest, fmt.Sprintf("no sessions can be %s", ack)))
		return nil, domain.ErrInvalidTransition
	}
	for _, id := range changed {
		s.publisher.Publish(viewerID, id, domain.StatusEvent{Kind: ack})
	}
	return changed, nil
}

// transitionAll moves every session of the viewer to status, skipping those
// for which the transition is not legal.
func (s *commentaryService) transitionAll(viewerID string, status domain.SessionStatus) []string {
	var changed []string
	for _, id := range s.registry.ListByViewer(viewerID) {
		err := s.registry.UpdateStatus(id, status)
		switch {
		case err == nil:
			changed = append(changed, id)
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrSessionNotFound):
		default:
			l := pkglog.L()
			l.Error().Err(err).Str(pkglog.FieldSessionID, id).Msg("failed to update session status")
		}
	}
	return changed
}

// ensurePipeline initializes the pipeline once. Concurrent callers share one
// attempt; a failed attempt is retried by the next caller.
func (s *commentaryService) ensurePipeline() error {
	if s.ready.Load() {
		return nil
	}
	_, err, _ := s.initGroup.Do("init", func() (interface{}, error) {
		if s.ready.Load() {
			return nil, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.initTimeout)
		defer cancel()
		if err := s.pipeline.Initialize(ctx); err != nil {
			return nil, err
		}
		s.ready.Store(true)
		return nil, nil
	})
	return err
}
