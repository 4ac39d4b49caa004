package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/dispatcher"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/pipeline"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/registry"
)

type event struct {
	viewerID  string
	sessionID string
	ev        domain.Event
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) Publish(viewerID, sessionID string, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{viewerID, sessionID, ev})
}

func (r *recorder) all() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (r *recorder) last() event {
	all := r.all()
	if len(all) == 0 {
		return event{}
	}
	return all[len(all)-1]
}

type fakeSpawner struct {
	mu      sync.Mutex
	spawned []domain.Session
	err     error
}

func (f *fakeSpawner) Spawn(s domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.spawned = append(f.spawned, s)
	return nil
}

type fakeInit struct {
	calls int32
	err   error
	delay time.Duration
}

func (f *fakeInit) Initialize(ctx context.Context) error {
	atomic.AddInt32(&f.calls, 1)
	time.Sleep(f.delay)
	return f.err
}

type fixedClients int

func (f fixedClients) ClientCount() int { return int(f) }

func newService(spawner Spawner, init Initializer) (CommentaryService, *registry.Registry, *recorder) {
	reg := registry.New()
	rec := &recorder{}
	return NewCommentaryService(reg, spawner, init, rec, fixedClients(3)), reg, rec
}

func TestHandleConnectAcknowledges(t *testing.T) {
	svc, _, rec := newService(&fakeSpawner{}, &fakeInit{})

	svc.HandleConnect(context.Background(), "v1")

	e := rec.last()
	s, ok := e.ev.(domain.StatusEvent)
	if e.viewerID != "v1" || !ok || s.Kind != domain.StatusKindConnected {
		t.Errorf("event = %+v", e)
	}
}

func TestStart(t *testing.T) {
	spawner := &fakeSpawner{}
	svc, reg, rec := newService(spawner, &fakeInit{})

	id, err := svc.Start(context.Background(), "v1", StartRequest{EventID: "g1"})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if id != "v1_g1" {
		t.Errorf("id = %q", id)
	}
	if reg.Count() != 1 || len(spawner.spawned) != 1 {
		t.Fatalf("registry=%d spawned=%d", reg.Count(), len(spawner.spawned))
	}
	if s := spawner.spawned[0]; s.Style != domain.DefaultStyle || s.Language != domain.DefaultLanguage {
		t.Errorf("spawned = %+v", s)
	}
	if s, ok := rec.last().ev.(domain.StatusEvent); !ok || s.Kind != domain.StatusKindStarted || rec.last().sessionID != id {
		t.Errorf("ack = %+v", rec.last())
	}
}

func TestStartErrors(t *testing.T) {
	tests := []struct {
		name     string
		init     *fakeInit
		spawner  *fakeSpawner
		req      StartRequest
		wantErr  error
		wantCode string
	}{
		{
			name:     "missing event id",
			init:     &fakeInit{},
			spawner:  &fakeSpawner{},
			wantErr:  domain.ErrMissingEventID,
			wantCode: domain.ErrCodeNotFound,
		},
		{
			name:     "pipeline unavailable",
			init:     &fakeInit{err: errors.New("connection refused")},
			spawner:  &fakeSpawner{},
			req:      StartRequest{EventID: "g1"},
			wantErr:  domain.ErrPipelineUnavailable,
			wantCode: domain.ErrCodeConfiguration,
		},
		{
			name:     "shutting down",
			init:     &fakeInit{},
			spawner:  &fakeSpawner{err: dispatcher.ErrShuttingDown},
			req:      StartRequest{EventID: "g1"},
			wantErr:  dispatcher.ErrShuttingDown,
			wantCode: domain.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, reg, rec := newService(tt.spawner, tt.init)

			_, err := svc.Start(context.Background(), "v1", tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Start() error = %v, want %v", err, tt.wantErr)
			}
			if reg.Count() != 0 {
				t.Errorf("registry holds %d sessions", reg.Count())
			}
			e, ok := rec.last().ev.(domain.ErrorEvent)
			if !ok || e.Code != tt.wantCode {
				t.Errorf("last event = %+v, want error %s", rec.last(), tt.wantCode)
			}
		})
	}
}

func TestStartDuplicate(t *testing.T) {
	spawner := &fakeSpawner{}
	svc, reg, rec := newService(spawner, &fakeInit{})

	svc.Start(context.Background(), "v1", StartRequest{EventID: "g1"})
	_, err := svc.Start(context.Background(), "v1", StartRequest{EventID: "g1", Style: "calm"})

	if !errors.Is(err, domain.ErrDuplicateSession) {
		t.Fatalf("error = %v", err)
	}
	if reg.Count() != 1 || len(spawner.spawned) != 1 {
		t.Errorf("registry=%d spawned=%d", reg.Count(), len(spawner.spawned))
	}
	if e, ok := rec.last().ev.(domain.ErrorEvent); !ok || e.Code != domain.ErrCodeDuplicateSession {
		t.Errorf("last event = %+v", rec.last())
	}
}

func TestPipelineInitializedOnce(t *testing.T) {
	init := &fakeInit{delay: 10 * time.Millisecond}
	svc, _, _ := newService(&fakeSpawner{}, init)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.Start(context.Background(), fmt.Sprintf("v%d", i), StartRequest{EventID: "g1"})
		}(i)
	}
	wg.Wait()
	svc.Start(context.Background(), "late", StartRequest{EventID: "g1"})

	if n := atomic.LoadInt32(&init.calls); n != 1 {
		t.Errorf("Initialize called %d times, want 1", n)
	}
}

func TestPipelineInitRetriedAfterFailure(t *testing.T) {
	init := &fakeInit{err: errors.New("down")}
	svc, _, _ := newService(&fakeSpawner{}, init)

	if _, err := svc.Start(context.Background(), "v1", StartRequest{EventID: "g1"}); err == nil {
		t.Fatal("expected error")
	}
	init.err = nil
	if _, err := svc.Start(context.Background(), "v1", StartRequest{EventID: "g1"}); err != nil {
		t.Fatalf("second Start() error: %v", err)
	}
	if n := atomic.LoadInt32(&init.calls); n != 2 {
		t.Errorf("Initialize called %d times, want 2", n)
	}
}

func TestPauseResumeStop(t *testing.T) {
	svc, reg, rec := newService(&fakeSpawner{}, &fakeInit{})
	ctx := context.Background()
	svc.Start(ctx, "v1", StartRequest{EventID: "g1"})
	svc.Start(ctx, "v1", StartRequest{EventID: "g2"})

	paused, err := svc.Pause(ctx, "v1")
	if err != nil || len(paused) != 2 {
		t.Fatalf("Pause() = %v, %v", paused, err)
	}
	if s, _ := reg.Get("v1_g1"); s.Status != domain.StatusPaused {
		t.Errorf("status = %q", s.Status)
	}
	if s, ok := rec.last().ev.(domain.StatusEvent); !ok || s.Kind != domain.StatusKindPaused {
		t.Errorf("ack = %+v", rec.last())
	}

	// Pausing again changes nothing and is reported.
	again, err := svc.Pause(ctx, "v1")
	if len(again) != 0 || !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("second Pause() = %v, %v", again, err)
	}
	if e, ok := rec.last().ev.(domain.ErrorEvent); !ok || e.Code != domain.ErrCodeBadRequest {
		t.Errorf("second pause reply = %+v", rec.last())
	}

	resumed, _ := svc.Resume(ctx, "v1")
	if len(resumed) != 2 {
		t.Errorf("Resume() = %v", resumed)
	}
	if s, ok := rec.last().ev.(domain.StatusEvent); !ok || s.Kind != domain.StatusKindResumed {
		t.Errorf("ack = %+v", rec.last())
	}

	if _, err := svc.Resume(ctx, "v1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Resume() of running sessions error = %v", err)
	}
	if e, ok := rec.last().ev.(domain.ErrorEvent); !ok || e.Code != domain.ErrCodeBadRequest {
		t.Errorf("resume reply = %+v", rec.last())
	}

	stopped, _ := svc.Stop(ctx, "v1")
	if len(stopped) != 2 {
		t.Errorf("Stop() = %v", stopped)
	}
	if s, _ := reg.Get("v1_g2"); s.Status != domain.StatusStopped {
		t.Errorf("status = %q", s.Status)
	}
}

func TestControlWithoutSessions(t *testing.T) {
	svc, _, rec := newService(&fakeSpawner{}, &fakeInit{})
	ctx := context.Background()

	if _, err := svc.Pause(ctx, "v1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Pause() error = %v", err)
	}
	if e, ok := rec.last().ev.(domain.ErrorEvent); !ok || e.Code != domain.ErrCodeNotFound {
		t.Errorf("last event = %+v", rec.last())
	}

	stopped, err := svc.Stop(ctx, "v1")
	if err != nil || len(stopped) != 0 {
		t.Errorf("Stop() = %v, %v", stopped, err)
	}
	if s, ok := rec.last().ev.(domain.StatusEvent); !ok || s.Kind != domain.StatusKindStopped {
		t.Errorf("last event = %+v", rec.last())
	}
}

func TestStatus(t *testing.T) {
	svc, _, _ := newService(&fakeSpawner{}, &fakeInit{})
	svc.Start(context.Background(), "v1", StartRequest{EventID: "g1"})

	st := svc.Status(context.Background())
	if st.Status != "running" || st.Clients != 3 || st.ActiveSessions != 1 || st.Timestamp.IsZero() {
		t.Errorf("Status() = %+v", st)
	}
}

type staticSource struct{}

func (staticSource) List(ctx context.Context, eventID string) ([]string, error) {
	return []string{eventID + "_01.json", eventID + "_02.json", eventID + "_03.json"}, nil
}

func (staticSource) Load(ctx context.Context, handle string) ([]byte, error) {
	return []byte(`{}`), nil
}

func TestDisconnectStopsEverySession(t *testing.T) {
	reg := registry.New()
	rec := &recorder{}
	pipe := pipeline.NewMockPipeline(pipeline.Config{}, nil)
	d := dispatcher.New(dispatcher.Config{ThrottleInterval: time.Hour}, reg, staticSource{}, pipe, rec, nil)
	defer d.Shutdown(context.Background())

	svc := NewCommentaryService(reg, d, pipe, rec, fixedClients(1))
	ctx := context.Background()
	if _, err := svc.Start(ctx, "v1", StartRequest{EventID: "g1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(ctx, "v1", StartRequest{EventID: "g2"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(ctx, "v2", StartRequest{EventID: "g1"}); err != nil {
		t.Fatal(err)
	}

	svc.HandleDisconnect(ctx, "v1")

	deadline := time.Now().Add(3 * time.Second)
	for len(reg.ListByViewer("v1")) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ids := reg.ListByViewer("v1"); len(ids) != 0 {
		t.Fatalf("v1 sessions after disconnect = %v", ids)
	}
	if ids := reg.ListByViewer("v2"); len(ids) != 1 {
		t.Errorf("v2 sessions = %v, want untouched", ids)
	}
}
