package service

import (
	"context"
	"fmt"

	"tutorwallet/pkg/log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// PushSender delivers a push notification to one device token.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// FCMService sends push notifications via Firebase Cloud Messaging.
type FCMService struct {
	client *messaging.Client
	log    log.Log
}

// NewFCMService creates an FCM service. Returns nil if Firebase is not configured.
func NewFCMService(ctx context.Context, serviceAccountPath string, logger log.Log) *FCMService {
	if serviceAccountPath == "" {
		return nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		logger.Error("fcm", fmt.Sprintf("failed to init Firebase app: %v", err), "NewFCMService", "")
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Error("fcm", fmt.Sprintf("failed to get Messaging client: %v", err), "NewFCMService", "")
		return nil
	}
	return &FCMService{client: client, log: logger}
}

// Send sends a push notification to the given FCM token. FCM requires string data values.
func (s *FCMService) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if s == nil || token == "" {
		return nil
	}
	msg := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  data,
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		s.log.Warn("fcm", err.Error(), "Send", "type="+data["type"])
		return err
	}
	return nil
}
