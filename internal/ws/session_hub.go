package ws

import (
	"context"
	"encoding/json"
	"sync"

	"tutorwallet/internal/domain"
)

// SessionRoom holds the connections watching one tutoring session.
type SessionRoom struct {
	SessionID string
	clients   map[*Client]struct{}
}

// SessionHub holds all rooms by session ID and pushes session events into them.
type SessionHub struct {
	mu    sync.RWMutex
	rooms map[string]*SessionRoom
}

func NewSessionHub() *SessionHub {
	return &SessionHub{rooms: make(map[string]*SessionRoom)}
}

func (h *SessionHub) Join(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	r, ok := h.rooms[c.SessionID]
	if !ok {
		r = &SessionRoom{SessionID: c.SessionID, clients: make(map[*Client]struct{})}
		h.rooms[c.SessionID] = r
	}
	r.clients[c] = struct{}{}
}

// Leave removes the client and drops the room once it is empty.
func (h *SessionHub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[c.SessionID]
	if !ok {
		return
	}
	delete(r.clients, c)
	if len(r.clients) == 0 {
		delete(h.rooms, c.SessionID)
	}
}

func (h *SessionHub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[sessionID]; ok {
		return len(r.clients)
	}
	return 0
}

func (h *SessionHub) Broadcast(sessionID string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.mu.RLock()
	r := h.rooms[sessionID]
	if r == nil {
		h.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.deliver(data)
	}
}

// NotifySession pushes the event to everyone connected to the session. Nobody
// connected is not an error.
func (h *SessionHub) NotifySession(_ context.Context, ev domain.SessionEvent) error {
	h.Broadcast(ev.SessionID, ev)
	return nil
}
