package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionEvent is pushed to subscribers of a tutoring session.
type SessionEvent struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	UserID    uint            `json:"userId"`
	Message   string          `json:"message,omitempty"`
	Charged   decimal.Decimal `json:"charged"`
	At        time.Time       `json:"at"`
}

const (
	BookingLapsedMessage   = "Your booked time has lapsed. Extend or end the session."
	ExhaustedBalanceNotice = "Session ended due to exhausted balance."
)
