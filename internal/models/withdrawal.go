package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalRequest moves REQUESTED -> COMPLETED or REQUESTED -> REJECTED. Funds leave
// the wallet only on approval.
type WithdrawalRequest struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;index" json:"user_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Reason     string          `gorm:"size:255" json:"reason"`
	Status     string          `gorm:"size:20;not null;index" json:"status"` // REQUESTED, COMPLETED, REJECTED
	Notes      string          `gorm:"size:512" json:"notes"`
	ApprovedAt *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy *uint           `json:"approved_by,omitempty"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
