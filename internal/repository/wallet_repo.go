package repository

import (
	"context"

	"tutorwallet/internal/models"

	"gorm.io/gorm"
)

// WalletRepository stores ledger rows. It never updates or deletes an existing row except
// for the status fields of withdrawal entries.
type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) WithTx(tx *gorm.DB) *WalletRepository {
	return &WalletRepository{db: tx}
}

func (r *WalletRepository) Append(ctx context.Context, tx *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// ListByUserID returns the user's ledger newest first, plus the total row count.
func (r *WalletRepository) ListByUserID(ctx context.Context, userID uint, limit, skip int) ([]models.WalletTransaction, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	var list []models.WalletTransaction
	err = r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Limit(limit).Offset(skip).Find(&list).Error
	return list, total, err
}

func (r *WalletRepository) ListByRelatedID(ctx context.Context, relatedID string) ([]models.WalletTransaction, error) {
	var list []models.WalletTransaction
	err := r.db.WithContext(ctx).Where("related_id = ?", relatedID).Order("id ASC").Find(&list).Error
	return list, err
}
