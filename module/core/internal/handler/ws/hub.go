// Package ws serves live subscribers over WebSocket. Every connection is one
// geofence session: it may draw a fence, receives the alerts of that fence and
// every bike update broadcast.
package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const sendBuffer = 64

type client struct {
	sessionID string
	send      chan []byte
}

// Hub tracks connected subscribers. Sends never block: a subscriber whose
// buffer is full misses the message.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*client), logger: logger}
}

func (h *Hub) register(sessionID string) *client {
	c := &client{sessionID: sessionID, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[sessionID] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.clients[c.sessionID]; ok && cur == c {
		delete(h.clients, c.sessionID)
		close(c.send)
	}
}

// NotifySession sends event to one subscriber. It reports false when the
// subscriber is gone or could not take the message.
func (h *Hub) NotifySession(sessionID string, event any) bool {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal subscriber event", zap.Error(err))
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[sessionID]
	if !ok {
		return false
	}
	return h.enqueue(c, msg)
}

// Broadcast sends event to every subscriber.
func (h *Hub) Broadcast(event any) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal broadcast event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		h.enqueue(c, msg)
	}
}

// enqueue must be called with mu held.
func (h *Hub) enqueue(c *client, msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		h.logger.Warn("subscriber buffer full, dropping message", zap.String("session_id", c.sessionID))
		return false
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
