package ws

import (
	"sync"
)

// Client represents a single WebSocket connection watching one session.
type Client struct {
	UserID    uint
	SessionID string
	Send      chan []byte
	hub       *SessionHub // set so Close() can leave the room
	mu        sync.Mutex
	closed    bool
}

func NewClient(userID uint, sessionID string) *Client {
	return &Client{UserID: userID, SessionID: sessionID, Send: make(chan []byte, 64)}
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.Send)
	hub := c.hub
	c.mu.Unlock()
	if hub != nil {
		hub.Leave(c)
	}
}

// deliver drops the message when the client is slow or already closed.
func (c *Client) deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
