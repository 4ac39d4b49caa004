package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/broadcast"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/catalog"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/config"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/hub"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/pipeline"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/registry"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/service"
	"github.com/weiawesome/wes-io-live/commentary-service/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopSpawner struct{}

func (nopSpawner) Spawn(domain.Session) error { return nil }

type stack struct {
	hub      *hub.Hub
	registry *registry.Registry
	service  service.CommentaryService
	store    *storage.LocalStorage
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       5 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     16,
	})
	go h.Run(ctx)

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	reg := registry.New()
	pipe := pipeline.NewMockPipeline(pipeline.Config{}, nil)
	svc := service.NewCommentaryService(reg, nopSpawner{}, pipe, broadcast.New(h), h)
	return &stack{hub: h, registry: reg, service: svc, store: store}
}

type wireEnvelope struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

type wireFields struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (wireEnvelope, wireFields) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env wireEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	var f wireFields
	if len(env.Data) > 0 {
		json.Unmarshal(env.Data, &f)
	}
	return env, f
}

func TestWebSocketSession(t *testing.T) {
	s := newStack(t)
	r := gin.New()
	NewWSHandler(s.hub, s.service).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	env, f := readEnvelope(t, conn)
	if env.Type != domain.EventTypeStatus || f.Status != domain.StatusKindConnected || f.Message == "" {
		t.Fatalf("connect ack = %+v %+v", env, f)
	}
	viewerID := f.Message

	conn.WriteJSON(map[string]string{"type": "start", "event_id": "g1", "style": "calm"})
	env, f = readEnvelope(t, conn)
	if f.Status != domain.StatusKindStarted || env.SessionID != viewerID+"_g1" {
		t.Fatalf("start ack = %+v %+v", env, f)
	}

	conn.WriteJSON(map[string]string{"type": "start", "game_id": "g2"})
	env, _ = readEnvelope(t, conn)
	if env.SessionID != viewerID+"_g2" {
		t.Errorf("game_id alias session = %q", env.SessionID)
	}

	conn.WriteJSON(map[string]string{"type": "pause"})
	readEnvelope(t, conn)
	_, f = readEnvelope(t, conn)
	if f.Status != domain.StatusKindPaused {
		t.Errorf("pause ack = %+v", f)
	}

	conn.WriteJSON(map[string]string{"type": "ping"})
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var pong map[string]string
	if err := conn.ReadJSON(&pong); err != nil || pong["type"] != domain.MsgTypePong {
		t.Errorf("ping reply = %v, %v", pong, err)
	}

	conn.Close()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := s.registry.Get(viewerID + "_g1")
		if err == nil && sess.Status == domain.StatusStopped {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("session not stopped after disconnect")
}

func TestConnectAckPrecedesReplies(t *testing.T) {
	s := newStack(t)
	r := gin.New()
	NewWSHandler(s.hub, s.service).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	for i := 0; i < 20; i++ {
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
		if err != nil {
			t.Fatalf("Dial() error: %v", err)
		}
		conn.WriteJSON(map[string]string{"type": "start", "event_id": "g1"})

		env, f := readEnvelope(t, conn)
		if env.Type != domain.EventTypeStatus || f.Status != domain.StatusKindConnected {
			t.Fatalf("dial %d: first frame = %+v %+v, want connected", i, env, f)
		}
		env, f = readEnvelope(t, conn)
		if f.Status != domain.StatusKindStarted {
			t.Fatalf("dial %d: second frame = %+v %+v, want started", i, env, f)
		}
		conn.Close()
	}
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	s := newStack(t)
	r := gin.New()
	NewWSHandler(s.hub, s.service).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()
	readEnvelope(t, conn)

	tests := []struct {
		name     string
		payload  string
		wantCode string
	}{
		{"not json", "{{", domain.ErrCodeBadRequest},
		{"unknown type", `{"type":"rewind"}`, domain.ErrCodeBadRequest},
		{"start without event", `{"type":"start"}`, domain.ErrCodeNotFound},
		{"resume without sessions", `{"type":"resume"}`, domain.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn.WriteMessage(websocket.TextMessage, []byte(tt.payload))
			env, f := readEnvelope(t, conn)
			if env.Type != domain.EventTypeError || f.Code != tt.wantCode {
				t.Errorf("reply = %+v %+v, want %s", env, f, tt.wantCode)
			}
		})
	}
}

type fakeCatalog struct {
	games []catalog.Game
	err   error
}

func (f *fakeCatalog) List(ctx context.Context, league string) ([]catalog.Game, error) {
	return f.games, f.err
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (*catalog.Game, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, g := range f.games {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, catalog.ErrGameNotFound
}

func newRouter(s *stack, games GameCatalog, audio AudioOptions) *gin.Engine {
	r := gin.New()
	NewHandler(s.service, s.store, games, audio, "test").RegisterRoutes(r)
	return r
}

func serve(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetAudio(t *testing.T) {
	s := newStack(t)
	wav := pipeline.EncodeWAV(pipeline.SilentPCM(0.1, pipeline.DefaultSampleRate), pipeline.DefaultSampleRate)
	s.store.Write(context.Background(), "audio/clip_calm.wav", bytes.NewReader(wav), int64(len(wav)), "audio/wav")

	proxy := newRouter(s, nil, AudioOptions{})
	redirect := newRouter(s, nil, AudioOptions{Mode: AudioModeRedirect})

	tests := []struct {
		name       string
		router     *gin.Engine
		path       string
		wantStatus int
	}{
		{"proxy", proxy, "/api/audio/clip_calm.wav", http.StatusOK},
		{"missing", proxy, "/api/audio/nope.wav", http.StatusNotFound},
		{"traversal", proxy, "/api/audio/..", http.StatusNotFound},
		{"redirect", redirect, "/api/audio/clip_calm.wav", http.StatusTemporaryRedirect},
		{"redirect missing", redirect, "/api/audio/nope.wav", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(tt.router, tt.path)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if ct := w.Header().Get("Content-Type"); ct != "audio/wav" {
					t.Errorf("Content-Type = %q", ct)
				}
				if !bytes.Equal(w.Body.Bytes(), wav) {
					t.Error("body differs from stored audio")
				}
			}
			if tt.wantStatus == http.StatusTemporaryRedirect && w.Header().Get("Location") == "" {
				t.Error("missing Location header")
			}
		})
	}
}

func TestStatusAndHealth(t *testing.T) {
	s := newStack(t)
	s.service.Start(context.Background(), "v1", service.StartRequest{EventID: "g1"})
	r := newRouter(s, nil, AudioOptions{})

	w := serve(r, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Success bool           `json:"success"`
		Data    service.Status `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if !body.Success || body.Data.ActiveSessions != 1 || body.Data.Status != "running" {
		t.Errorf("body = %s", w.Body.String())
	}

	if w := serve(r, "/health"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestGames(t *testing.T) {
	s := newStack(t)
	games := &fakeCatalog{games: []catalog.Game{{ID: "g1", Title: "Opener"}}}

	tests := []struct {
		name       string
		catalog    GameCatalog
		path       string
		wantStatus int
	}{
		{"list", games, "/api/v1/games", http.StatusOK},
		{"get", games, "/api/v1/games/g1", http.StatusOK},
		{"not found", games, "/api/v1/games/g9", http.StatusNotFound},
		{"backend error", &fakeCatalog{err: errors.New("db down")}, "/api/v1/games/g1", http.StatusInternalServerError},
		{"disabled", nil, "/api/v1/games", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(newRouter(s, tt.catalog, AudioOptions{}), tt.path)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
