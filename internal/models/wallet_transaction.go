package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletTransaction is one append-only ledger row. Amount is always a positive magnitude;
// BalanceBefore/BalanceAfter track the field named by Bucket. Rows are never deleted.
type WalletTransaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Type          string          `gorm:"size:20;not null;index" json:"type"` // credit, debit, earning, refund
	Reason        string          `gorm:"size:40;not null;index" json:"reason"`
	RelatedID     string          `gorm:"size:64;index" json:"related_id,omitempty"`
	Description   string          `gorm:"size:255" json:"description"`
	Status        string          `gorm:"size:20;not null;index" json:"status"`
	Bucket        string          `gorm:"size:20;not null;default:'wallet'" json:"bucket"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_after"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy    *uint           `json:"approved_by,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
