// Package dispatcher runs one worker per session. A worker drains the
// session's snapshot queue through the generation pipeline, honours pause and
// stop between snapshots, and always deregisters its session on exit.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/gamestate"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/notifier"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/pipeline"
	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
)

var ErrShuttingDown = errors.New("dispatcher is shutting down")

// SessionStore is the subset of the session registry used by workers.
type SessionStore interface {
	Watch(sessionID string) (*domain.Session, <-chan struct{}, error)
	UpdateStatus(sessionID string, status domain.SessionStatus) error
	Remove(sessionID string) (*domain.Session, bool)
}

// Source resolves and loads snapshots for an event.
type Source interface {
	List(ctx context.Context, eventID string) ([]string, error)
	Load(ctx context.Context, handle string) ([]byte, error)
}

// Publisher delivers events to the viewer owning a session.
type Publisher interface {
	Publish(viewerID, sessionID string, ev domain.Event)
}

// Config controls worker pacing.
type Config struct {
	// ThrottleInterval is the pause between consecutive snapshots.
	ThrottleInterval time.Duration
	// ItemTimeout bounds one pipeline call; zero disables the limit.
	ItemTimeout time.Duration
	// AudioURLPrefix is prepended to an audio artifact's file name.
	AudioURLPrefix string
	// NotifyTimeout bounds each lifecycle notification. Defaults to 5s.
	NotifyTimeout time.Duration
}

// Dispatcher owns every running worker.
type Dispatcher struct {
	config    Config
	store     SessionStore
	source    Source
	pipeline  pipeline.Pipeline
	publisher Publisher
	notifier  notifier.Notifier

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// New creates a dispatcher. A nil notifier discards lifecycle notifications.
func New(cfg Config, store SessionStore, source Source, pipe pipeline.Pipeline, pub Publisher, n notifier.Notifier) *Dispatcher {
	if cfg.AudioURLPrefix == "" {
		cfg.AudioURLPrefix = "/api/audio/"
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}
	if n == nil {
		n = notifier.Noop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		config:    cfg,
		store:     store,
		source:    source,
		pipeline:  pipe,
		publisher: pub,
		notifier:  n,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Spawn starts the worker for a registered session.
func (d *Dispatcher) Spawn(session domain.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrShuttingDown
	}

	d.wg.Add(1)
	go d.run(session)
	return nil
}

// Shutdown cancels every worker and waits for their cleanup to finish or for
// ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(session domain.Session) {
	defer d.wg.Done()

	ctx := pkglog.WithSession(d.ctx, session.ViewerID, session.ID, session.EventID)
	l := pkglog.Ctx(ctx)

	reason := notifier.ReasonStopped
	processed := 0
	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("worker panicked")
			d.publish(session, domain.NewErrorEvent(domain.ErrCodeUnexpectedWorker, fmt.Sprintf("unexpected worker error: %v", r)))
			reason = notifier.ReasonError
		}
		d.finish(l, session, reason, processed)
	}()

	notifyCtx, cancel := context.WithTimeout(ctx, d.config.NotifyTimeout)
	d.notifier.SessionStarted(notifyCtx, session)
	cancel()
	l.Info().Msg("worker started")

	handles, err := d.source.List(ctx, session.EventID)
	if err == nil && len(handles) == 0 {
		err = domain.ErrNoSnapshots
	}
	if err != nil {
		l.Warn().Err(err).Msg("snapshot queue unavailable")
		d.publish(session, domain.NewErrorEvent(domain.ErrCodeNotFound, fmt.Sprintf("no snapshots found for event %s", session.EventID)))
		reason = notifier.ReasonError
		return
	}

	for i, handle := range handles {
		if !d.awaitRunnable(session.ID) {
			return
		}

		d.processOne(l, session, handle)
		processed++

		if i < len(handles)-1 && !d.throttle(session.ID) {
			return
		}
	}

	if err := d.store.UpdateStatus(session.ID, domain.StatusCompleted); err != nil {
		// Stopped between the last snapshot and here.
		return
	}
	reason = notifier.ReasonCompleted
}

// awaitRunnable blocks while the session is paused. It returns false when the
// session was stopped, removed, or the dispatcher is shutting down.
func (d *Dispatcher) awaitRunnable(sessionID string) bool {
	for {
		s, changed, err := d.store.Watch(sessionID)
		if err != nil {
			return false
		}

		switch s.Status {
		case domain.StatusRunning:
			return d.ctx.Err() == nil
		case domain.StatusPaused:
		default:
			return false
		}

		select {
		case <-changed:
		case <-d.ctx.Done():
			return false
		}
	}
}

// throttle waits ThrottleInterval before the next snapshot. A stop ends the
// wait early and returns false; a pause does not shorten it.
func (d *Dispatcher) throttle(sessionID string) bool {
	if d.config.ThrottleInterval <= 0 {
		return true
	}
	timer := time.NewTimer(d.config.ThrottleInterval)
	defer timer.Stop()

	for {
		s, changed, err := d.store.Watch(sessionID)
		if err != nil || s.Status.IsTerminal() {
			return false
		}

		select {
		case <-timer.C:
			return true
		case <-changed:
		case <-d.ctx.Done():
			return false
		}
	}
}

// processOne runs a single snapshot through the pipeline and emits its
// results. Failures are reported and never escalate.
func (d *Dispatcher) processOne(l zerolog.Logger, session domain.Session, handle string) {
	name := path.Base(handle)

	data, err := d.source.Load(d.ctx, handle)
	if err != nil {
		d.itemFailed(l, session, name, err)
		return
	}

	ctx := d.ctx
	if d.config.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(d.ctx, d.config.ItemTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := d.pipeline.Process(ctx, pipeline.Snapshot{
		Handle:  handle,
		EventID: session.EventID,
		Data:    data,
	}, session.Style, session.Language)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && d.ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", d.config.ItemTimeout, err)
		}
		d.itemFailed(l, session, name, err)
		return
	}
	if res == nil {
		res = &pipeline.Result{}
	}

	style := res.Style
	if style == "" {
		style = session.Style
	}
	if res.Commentary != "" {
		d.publish(session, domain.CommentaryEvent{
			Text:      res.Commentary,
			Style:     style,
			Language:  session.Language,
			Timestamp: time.Now(),
		})
	}
	if res.AudioKey != "" {
		d.publish(session, domain.AudioEvent{
			Text:                     res.Commentary,
			Style:                    style,
			URL:                      d.config.AudioURLPrefix + path.Base(res.AudioKey),
			EstimatedDurationSeconds: domain.EstimateDurationSeconds(res.Commentary),
			SizeBytes:                res.AudioSize,
		})
	}
	d.publish(session, domain.GameStateEvent{State: gamestate.Extract(data)})

	l.Debug().Str(pkglog.FieldHandle, name).Dur(pkglog.FieldLatency, time.Since(start)).Msg("snapshot processed")
}

func (d *Dispatcher) itemFailed(l zerolog.Logger, session domain.Session, name string, err error) {
	if d.ctx.Err() != nil {
		// Shutting down; the failure is ours, not the item's.
		return
	}
	l.Warn().Err(err).Str(pkglog.FieldHandle, name).Msg("snapshot processing failed")
	d.publish(session, domain.NewErrorEvent(domain.ErrCodeItemProcessing, fmt.Sprintf("failed to process %s: %v", name, err)))
}

// finish deregisters the session exactly once and reports the terminal status.
func (d *Dispatcher) finish(l zerolog.Logger, session domain.Session, reason string, processed int) {
	removed, ok := d.store.Remove(session.ID)
	if !ok {
		return
	}

	kind := domain.StatusKindStopped
	if reason == notifier.ReasonCompleted {
		kind = domain.StatusKindCompleted
	}
	d.publish(*removed, domain.StatusEvent{
		Kind:    kind,
		Message: fmt.Sprintf("%d snapshots processed", processed),
	})

	ctx, cancel := context.WithTimeout(pkglog.WithLogger(context.Background(), l), d.config.NotifyTimeout)
	defer cancel()
	d.notifier.SessionEnded(ctx, *removed, reason, processed)

	l.Info().Str("reason", reason).Int("processed", processed).Msg("worker finished")
}

func (d *Dispatcher) publish(session domain.Session, ev domain.Event) {
	d.publisher.Publish(session.ViewerID, session.ID, ev)
}
