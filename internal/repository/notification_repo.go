package repository

import (
	"context"
	"time"

	"tutorwallet/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) ListByUserID(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *NotificationRepository) CountBySession(ctx context.Context, sessionID, notifType string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("session_id = ? AND type = ?", sessionID, notifType).Count(&n).Error
	return n, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ? AND user_id = ?", id, userID).Update("read_at", time.Now()).Error
}
