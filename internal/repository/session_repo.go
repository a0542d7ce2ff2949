package repository

import (
	"context"
	"time"

	"tutorwallet/internal/domain"
	"tutorwallet/internal/models"

	"gorm.io/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.AISession) error {
	return r.db.WithContext(ctx).Omit("User", "Messages").Create(s).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.AISession, error) {
	var s models.AISession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// GetWithMessages loads the session and its full transcript in order.
func (r *SessionRepository) GetWithMessages(ctx context.Context, id string) (*models.AISession, error) {
	var s models.AISession
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Where("id = ?", id).First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// ListByUserID returns sessions most recently active first, each with its latest message.
func (r *SessionRepository) ListByUserID(ctx context.Context, userID uint) ([]models.AISession, error) {
	var list []models.AISession
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	for i := range list {
		var last models.AIMessage
		err := r.db.WithContext(ctx).Where("session_id = ?", list[i].ID).Order("created_at DESC").Order("id DESC").Limit(1).Find(&last).Error
		if err != nil {
			return nil, err
		}
		if last.ID != 0 {
			list[i].Messages = []models.AIMessage{last}
		}
	}
	return list, nil
}

// ListActive returns every ACTIVE session with its owner loaded.
func (r *SessionRepository) ListActive(ctx context.Context) ([]models.AISession, error) {
	var list []models.AISession
	err := r.db.WithContext(ctx).Preload("User").Where("status = ?", domain.SessionActive).Order("created_at ASC").Find(&list).Error
	return list, err
}

// Complete moves an ACTIVE session to COMPLETED. It reports false when the session was
// already completed, so concurrent enders agree on exactly one winner.
func (r *SessionRepository) Complete(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AISession{}).
		Where("id = ? AND status = ?", id, domain.SessionActive).
		Updates(map[string]interface{}{"status": domain.SessionCompleted, "ended_at": endedAt, "updated_at": endedAt})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkLapsed records the lapsed notice once per booking window. False means it was already recorded.
func (r *SessionRepository) MarkLapsed(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AISession{}).
		Where("id = ? AND status = ? AND lapsed_notified_at IS NULL", id, domain.SessionActive).
		Update("lapsed_notified_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Extend adds booked seconds to an ACTIVE session and re-arms the lapsed notice.
func (r *SessionRepository) Extend(ctx context.Context, id string, addSeconds int64, title string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AISession{}).
		Where("id = ? AND status = ?", id, domain.SessionActive).
		Updates(map[string]interface{}{
			"booked_seconds":     gorm.Expr("booked_seconds + ?", addSeconds),
			"lapsed_notified_at": nil,
			"title":              title,
			"updated_at":         at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *SessionRepository) Touch(ctx context.Context, id, title string, at time.Time) error {
	updates := map[string]interface{}{"updated_at": at}
	if title != "" {
		updates["title"] = title
	}
	return r.db.WithContext(ctx).Model(&models.AISession{}).Where("id = ?", id).Updates(updates).Error
}

func (r *SessionRepository) AddMessage(ctx context.Context, m *models.AIMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// RecentMessages returns the last limit messages of a session in chronological order.
func (r *SessionRepository) RecentMessages(ctx context.Context, sessionID string, limit int) ([]models.AIMessage, error) {
	var list []models.AIMessage
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("created_at DESC").Order("id DESC").Limit(limit).Find(&list).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}
