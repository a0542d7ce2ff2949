package models

import (
	"time"

	"tutorwallet/internal/domain"
)

type AISession struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	UserID           uint       `gorm:"not null;index" json:"user_id"`
	Subject          string     `gorm:"size:32;not null" json:"subject"`
	Status           string     `gorm:"size:20;not null;index" json:"status"` // ACTIVE | COMPLETED
	Title            string     `gorm:"size:255" json:"title"`
	FundingMode      string     `gorm:"size:16;not null;default:'metered'" json:"funding_mode"` // prepaid | metered
	BookedSeconds    int64      `gorm:"not null;default:0" json:"booked_seconds"`
	LapsedNotifiedAt *time.Time `json:"lapsed_notified_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `gorm:"index" json:"updated_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`

	User     User        `gorm:"foreignKey:UserID" json:"-"`
	Messages []AIMessage `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
}

func (AISession) TableName() string {
	return "ai_sessions"
}

func (s *AISession) IsActive() bool  { return s.Status == domain.SessionActive }
func (s *AISession) IsPrepaid() bool { return s.FundingMode == domain.FundingPrepaid }

// ElapsedSeconds is the whole seconds since the session started, never negative.
func (s *AISession) ElapsedSeconds(now time.Time) int64 {
	d := int64(now.Sub(s.CreatedAt) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

type AIMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Role      string    `gorm:"size:16;not null" json:"role"` // user | assistant | system
	Content   string    `gorm:"type:text;not null" json:"content"`
	Credits   int       `gorm:"not null;default:0" json:"credits"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AIMessage) TableName() string {
	return "ai_messages"
}
