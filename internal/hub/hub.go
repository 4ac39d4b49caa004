// Package hub tracks connected viewers and delivers JSON frames to them by
// viewer id.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/config"
	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
)

// Hub owns the viewer connection table. Removals are serialized through Run
// so a client's Send channel is closed exactly once.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	config  config.WebSocketConfig

	leave chan *Client
	done  chan struct{}
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		config:  cfg,
		leave:   make(chan *Client, 64),
		done:    make(chan struct{}),
	}
}

// Run applies removals until ctx ends, then closes every remaining client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.leave:
			h.remove(c)
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.Send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register makes the client addressable as soon as it returns.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	l := pkglog.L()
	l.Info().Str(pkglog.FieldClientID, c.ID).Msg("viewer connected")
}

// Unregister schedules removal. It never blocks after the hub stopped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.leave <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.ID]
	if ok && current == c {
		delete(h.clients, c.ID)
		close(c.Send)
	}
	h.mu.Unlock()

	if ok && current == c {
		l := pkglog.L()
		l.Info().Str(pkglog.FieldClientID, c.ID).
			Dur("connected_for", time.Since(c.ConnectedAt)).
			Msg("viewer disconnected")
	}
}

// SendToClient encodes message and queues it for clientID. Unknown clients
// are ignored. A client whose queue is full is disconnected.
func (h *Hub) SendToClient(clientID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message for %s: %w", clientID, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[clientID]
	if !ok {
		return nil
	}
	select {
	case c.Send <- data:
	default:
		l := pkglog.L()
		l.Warn().Str(pkglog.FieldClientID, clientID).Msg("send queue full, dropping viewer")
		go h.Unregister(c)
	}
	return nil
}

func (h *Hub) HasClient(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[clientID]
	return ok
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
