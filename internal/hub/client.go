package hub

import (
	"time"

	"github.com/gorilla/websocket"

	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
)

const defaultSendBuffer = 256

// DisconnectHandler runs once when a client's read loop ends.
type DisconnectHandler func(*Client)

// Client is one viewer connection. Outgoing frames are queued on Send and
// written by WritePump; the hub closes Send when the client leaves.
type Client struct {
	ID          string
	Hub         *Hub
	Conn        *websocket.Conn
	Send        chan []byte
	ConnectedAt time.Time

	onDisconnect DisconnectHandler
}

func NewClient(id string, h *Hub, conn *websocket.Conn) *Client {
	size := h.config.SendBuffer
	if size <= 0 {
		size = defaultSendBuffer
	}
	return &Client{
		ID:          id,
		Hub:         h,
		Conn:        conn,
		Send:        make(chan []byte, size),
		ConnectedAt: time.Now(),
	}
}

// SetDisconnectHandler must be called before ReadPump starts.
func (c *Client) SetDisconnectHandler(handler DisconnectHandler) {
	c.onDisconnect = handler
}

// SendMessage encodes message and queues it for this client.
func (c *Client) SendMessage(message interface{}) error {
	return c.Hub.SendToClient(c.ID, message)
}

// ReadPump hands every inbound frame to handle until the connection fails or
// the peer stops answering pings. On exit it runs the disconnect handler,
// then leaves the hub.
func (c *Client) ReadPump(handle func(*Client, []byte)) {
	defer func() {
		if c.onDisconnect != nil {
			c.onDisconnect(c)
		}
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	cfg := c.Hub.config
	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	extend := func() error { return c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait)) }
	extend()
	c.Conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l := pkglog.L()
				l.Warn().Err(err).Str(pkglog.FieldClientID, c.ID).Msg("viewer connection lost")
			}
			return
		}
		handle(c, msg)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
// It returns when Send is closed or a write fails.
func (c *Client) WritePump() {
	cfg := c.Hub.config
	ping := time.NewTicker(cfg.PingInterval)
	defer func() {
		ping.Stop()
		c.Conn.Close()
	}()

	write := func(kind int, data []byte) error {
		c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
		return c.Conn.WriteMessage(kind, data)
	}

	for {
		select {
		case msg, open := <-c.Send:
			if !open {
				write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
