package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/config"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       2 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     8,
	}
}

// startServer runs a hub behind an httptest server. Every connection is
// registered under the id given in the "id" query parameter.
func startServer(t *testing.T) (*Hub, *httptest.Server, chan string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := NewHub(testConfig())
	go h.Run(ctx)

	disconnected := make(chan string, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(r.URL.Query().Get("id"), h, conn)
		client.SetDisconnectHandler(func(c *Client) { disconnected <- c.ID })
		h.Register(client)
		go client.WritePump()
		go client.ReadPump(func(c *Client, msg []byte) {
			c.SendMessage(map[string]string{"echo": string(msg)})
		})
	}))
	t.Cleanup(srv.Close)
	return h, srv, disconnected
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?id=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSendToClient(t *testing.T) {
	h, srv, _ := startServer(t)
	conn := dial(t, srv, "viewer-1")
	defer conn.Close()

	waitFor(t, func() bool { return h.HasClient("viewer-1") })

	if err := h.SendToClient("viewer-1", map[string]string{"type": "status"}); err != nil {
		t.Fatalf("SendToClient() error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	if string(msg) != `{"type":"status"}` {
		t.Errorf("message = %s", msg)
	}
}

func TestSendToUnknownClientIsNoop(t *testing.T) {
	h := NewHub(testConfig())
	if err := h.SendToClient("ghost", map[string]string{"type": "status"}); err != nil {
		t.Errorf("SendToClient() error: %v", err)
	}
}

func TestReadPumpRoutesMessages(t *testing.T) {
	_, srv, _ := startServer(t)
	conn := dial(t, srv, "viewer-2")
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hi")); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	if string(msg) != `{"echo":"hi"}` {
		t.Errorf("message = %s", msg)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	h, srv, disconnected := startServer(t)
	conn := dial(t, srv, "viewer-3")

	waitFor(t, func() bool { return h.ClientCount() == 1 })
	conn.Close()

	select {
	case id := <-disconnected:
		if id != "viewer-3" {
			t.Errorf("disconnect handler got %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect handler not called")
	}
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestRunShutdownClosesClients(t *testing.T) {
	h := NewHub(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	client := NewClient("c1", h, nil)
	h.Register(client)
	cancel()
	<-done

	if _, ok := <-client.Send; ok {
		t.Error("send channel still open after shutdown")
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d", h.ClientCount())
	}
	// Unregister after shutdown must not block.
	h.Unregister(client)
}

func TestFullQueueDropsViewer(t *testing.T) {
	cfg := testConfig()
	cfg.SendBuffer = 1
	h := NewHub(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := NewClient("slow", h, nil)
	h.Register(client)

	for i := 0; i < 2; i++ {
		if err := h.SendToClient("slow", map[string]int{"n": i}); err != nil {
			t.Fatalf("SendToClient() error: %v", err)
		}
	}
	waitFor(t, func() bool { return !h.HasClient("slow") })

	if msg, ok := <-client.Send; !ok || string(msg) != `{"n":0}` {
		t.Errorf("first queued frame = %s (open %v)", msg, ok)
	}
	if _, ok := <-client.Send; ok {
		t.Error("send channel still open after drop")
	}
}
