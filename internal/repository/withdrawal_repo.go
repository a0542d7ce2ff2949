package repository

import (
	"context"

	"tutorwallet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) WithTx(tx *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: tx}
}

func (r *WithdrawalRepository) Create(ctx context.Context, w *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := r.db.WithContext(ctx).First(&w, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (r *WithdrawalRepository) LockByID(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// Transition moves a request from one status to another. It reports false when the
// request was no longer in the from status.
func (r *WithdrawalRepository) Transition(ctx context.Context, id uint, from, to string, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *WithdrawalRepository) ListByUserID(ctx context.Context, userID uint, limit, skip int) ([]models.WithdrawalRequest, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	var list []models.WithdrawalRequest
	err = r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Limit(limit).Offset(skip).Find(&list).Error
	return list, total, err
}

// ListByStatus returns requests oldest first, the order admins work the queue in.
func (r *WithdrawalRepository) ListByStatus(ctx context.Context, status string, limit int) ([]models.WithdrawalRequest, error) {
	var list []models.WithdrawalRequest
	err := r.db.WithContext(ctx).Preload("User").Where("status = ?", status).
		Order("created_at ASC").Order("id ASC").Limit(limit).Find(&list).Error
	return list, err
}
