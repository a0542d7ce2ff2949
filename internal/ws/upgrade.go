package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tutorwallet/config"
	"tutorwallet/internal/auth"
	"tutorwallet/internal/domain"
	"tutorwallet/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 70 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionAuthorizer confirms a user may watch a session.
type SessionAuthorizer interface {
	Authorize(ctx context.Context, sessionID string, userID uint) error
}

// HeartbeatChecker runs the monitor's check for one session.
type HeartbeatChecker interface {
	CheckSession(ctx context.Context, sessionID string) error
}

type inboundFrame struct {
	Type string `json:"type"`
}

// UpgradeSessionWS upgrades GET /ws/sessions?token=...&session_id=... . The server pushes
// session events; the client may send {"type":"heartbeat"} to have its session checked
// right away instead of waiting for the next sweep.
func UpgradeSessionWS(cfg *config.JWTConfig, hub *SessionHub, sessions SessionAuthorizer, checker HeartbeatChecker, logger log.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := auth.ParseAccessToken(cfg, c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		sessionID := c.Query("session_id")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id required"})
			return
		}
		if err := sessions.Authorize(c.Request.Context(), sessionID, claims.UserID); err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			case errors.Is(err, domain.ErrUnauthorized):
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := NewClient(claims.UserID, sessionID)
		hub.Join(client)
		defer client.Close()

		go writePump(client, conn)
		readPump(c.Request.Context(), conn, func(ctx context.Context, frame inboundFrame) {
			if frame.Type != "heartbeat" || checker == nil {
				return
			}
			if err := checker.CheckSession(ctx, sessionID); err != nil {
				logger.Warn("ws", err.Error(), "heartbeat", "session="+sessionID)
			}
		})
	}
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(ctx context.Context, conn *websocket.Conn, onFrame func(context.Context, inboundFrame)) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		var frame inboundFrame
		if json.Unmarshal(data, &frame) == nil {
			onFrame(ctx, frame)
		}
	}
}
