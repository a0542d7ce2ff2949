package service

import (
	"context"
	"encoding/json"

	"tutorwallet/internal/domain"
	"tutorwallet/internal/models"
	"tutorwallet/internal/repository"
)

var eventTitles = map[string]string{
	domain.EventBookingLapsed: "Booked time lapsed",
	domain.EventSessionEnded:  "Session ended",
}

// NotificationService keeps the user's inbox and pushes session events to their device.
type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	push     PushSender
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, push PushSender) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, push: push}
}

// NotifySession persists the event to the inbox, then pushes it if the user has a device token.
func (s *NotificationService) NotifySession(ctx context.Context, ev domain.SessionEvent) error {
	title := eventTitles[ev.Type]
	if title == "" {
		title = "Tutoring session"
	}
	data := map[string]string{
		"type":       ev.Type,
		"session_id": ev.SessionID,
	}
	if ev.Type == domain.EventSessionEnded {
		data["charged"] = ev.Charged.StringFixed(2)
	}
	b, _ := json.Marshal(data)
	err := s.repo.Create(ctx, &models.Notification{
		UserID:    ev.UserID,
		SessionID: ev.SessionID,
		Type:      ev.Type,
		Title:     title,
		Body:      ev.Message,
		Data:      string(b),
		CreatedAt: ev.At,
	})
	if err != nil {
		return err
	}
	return s.sendPush(ctx, ev.UserID, title, ev.Message, data)
}

func (s *NotificationService) sendPush(ctx context.Context, userID uint, title, body string, data map[string]string) error {
	if s.push == nil || s.userRepo == nil {
		return nil
	}
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || u.FCMToken == "" {
		return nil
	}
	return s.push.Send(ctx, u.FCMToken, title, body, data)
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUserID(ctx, userID, limit, offset)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// RegisterDevice stores the FCM token pushes are sent to. An empty token stops pushes.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID uint, token string) error {
	return s.userRepo.UpdateFCMToken(ctx, userID, token)
}
