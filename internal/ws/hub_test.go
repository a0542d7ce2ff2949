package ws

import (
	"context"
	"encoding/json"
	"testing"

	"tutorwallet/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionHub_NotifyReachesOnlyThatSession(t *testing.T) {
	hub := NewSessionHub()
	a := NewClient(1, "s-a")
	b := NewClient(2, "s-b")
	hub.Join(a)
	hub.Join(b)

	require.NoError(t, hub.NotifySession(context.Background(), domain.SessionEvent{Type: domain.EventBookingLapsed, SessionID: "s-a", UserID: 1}))

	select {
	case data := <-a.Send:
		var ev domain.SessionEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, domain.EventBookingLapsed, ev.Type)
	default:
		t.Fatal("expected a message for s-a")
	}
	assert.Len(t, b.Send, 0)
}

func TestSessionHub_CloseLeavesRoom(t *testing.T) {
	hub := NewSessionHub()
	c := NewClient(1, "s-a")
	hub.Join(c)
	assert.Equal(t, 1, hub.ClientCount("s-a"))

	c.Close()
	c.Close()
	assert.Equal(t, 0, hub.ClientCount("s-a"))

	// broadcasting to an empty or unknown room is a no-op
	hub.Broadcast("s-a", map[string]string{"type": "x"})
}

func TestSessionHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewSessionHub()
	c := NewClient(1, "s-a")
	hub.Join(c)
	for i := 0; i < cap(c.Send)+10; i++ {
		hub.Broadcast("s-a", i)
	}
	assert.Len(t, c.Send, cap(c.Send))
}
