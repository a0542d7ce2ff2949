package models

import (
	"time"

	"tutorwallet/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is the account principal. Balance fields are only written through the wallet service.
type User struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Email           string          `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name            string          `gorm:"size:128" json:"name"`
	Role            string          `gorm:"size:20;not null;index" json:"role"` // STUDENT | TUTOR | ADMIN
	WalletBalance   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"wallet_balance"`
	PendingFunds    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"pending_funds"`
	EarnedFunds     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"earned_funds"`
	WithdrawalLimit decimal.Decimal `gorm:"type:decimal(20,2);not null;default:1000" json:"withdrawal_limit"`
	FCMToken        string          `gorm:"size:512" json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsTutor() bool { return u.Role == domain.RoleTutor }
func (u *User) IsAdmin() bool { return u.Role == domain.RoleAdmin }

// BalanceOf returns the balance field a ledger bucket tracks.
func (u *User) BalanceOf(bucket string) decimal.Decimal {
	if bucket == domain.BucketPending {
		return u.PendingFunds
	}
	return u.WalletBalance
}
