package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/domain"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/hub"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/service"
	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSHandler handles viewer WebSocket connections.
type WSHandler struct {
	hub     *hub.Hub
	service service.CommentaryService
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, svc service.CommentaryService) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection, registers the viewer and starts
// the read and write pumps.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := pkglog.Ctx(c.Request.Context())

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	viewerID := uuid.New().String()
	c.Set(pkglog.FieldViewerID, viewerID)
	client := hub.NewClient(viewerID, h.hub, conn)

	client.SetDisconnectHandler(func(cl *hub.Client) {
		if err := h.service.HandleDisconnect(context.Background(), cl.ID); err != nil {
			l := pkglog.L()
			l.Error().Err(err).Str(pkglog.FieldViewerID, cl.ID).Msg("disconnect handler error")
		}
	})

	h.hub.Register(client)

	// The ack is queued before any inbound message can be handled.
	if err := h.service.HandleConnect(context.Background(), viewerID); err != nil {
		l.Error().Err(err).Str(pkglog.FieldViewerID, viewerID).Msg("connect handler error")
	}

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	ctx := pkglog.WithSession(context.Background(), client.ID, "", "")
	l := pkglog.Ctx(ctx)

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		sendError(client, domain.ErrCodeBadRequest, "Invalid message format")
		return
	}

	switch base.Type {
	case domain.MsgTypeStart:
		var msg domain.StartMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			sendError(client, domain.ErrCodeBadRequest, "Invalid start message")
			return
		}
		req := service.StartRequest{
			EventID:  msg.TargetEventID(),
			Style:    msg.Style,
			Language: msg.Language,
		}
		// Failures are reported to the viewer by the service.
		if _, err := h.service.Start(ctx, client.ID, req); err != nil {
			l.Warn().Err(err).Str(pkglog.FieldEventID, req.EventID).Msg("start failed")
		}

	case domain.MsgTypeStop:
		if _, err := h.service.Stop(ctx, client.ID); err != nil {
			l.Error().Err(err).Msg("stop failed")
		}

	case domain.MsgTypePause:
		if _, err := h.service.Pause(ctx, client.ID); err != nil {
			l.Debug().Err(err).Msg("pause failed")
		}

	case domain.MsgTypeResume:
		if _, err := h.service.Resume(ctx, client.ID); err != nil {
			l.Debug().Err(err).Msg("resume failed")
		}

	case domain.MsgTypePing:
		client.SendMessage(domain.PongMessage{Type: domain.MsgTypePong})

	default:
		sendError(client, domain.ErrCodeBadRequest, "Unknown message type")
	}
}

func sendError(client *hub.Client, code, message string) {
	client.SendMessage(domain.NewEnvelope("", domain.NewErrorEvent(code, message)))
}
