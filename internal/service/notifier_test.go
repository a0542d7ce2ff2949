package service

import (
	"context"
	"errors"
	"testing"

	"tutorwallet/internal/domain"
	"tutorwallet/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingNotifier struct{ calls int }

func (f *failingNotifier) NotifySession(context.Context, domain.SessionEvent) error {
	f.calls++
	return errors.New("sink down")
}

func TestMultiNotifier_BestEffort(t *testing.T) {
	bad := &failingNotifier{}
	good := &recordingNotifier{}
	m := NewMultiNotifier(log.Discard(), bad, nil, good)

	err := m.NotifySession(context.Background(), domain.SessionEvent{Type: domain.EventSessionEnded, SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, 1, bad.calls)
	assert.Len(t, good.Events(), 1)
}

type fakePush struct {
	tokens []string
	data   []map[string]string
}

func (p *fakePush) Send(_ context.Context, token, _, _ string, data map[string]string) error {
	p.tokens = append(p.tokens, token)
	p.data = append(p.data, data)
	return nil
}

func TestNotificationService_PersistsAndPushes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	push := &fakePush{}
	svc := NewNotificationService(repositoryNotifications(env), env.users, push)
	u := env.account(t, domain.RoleStudent, "0")

	ev := domain.SessionEvent{Type: domain.EventSessionEnded, SessionID: "s-1", UserID: u.ID, Message: domain.ExhaustedBalanceNotice, Charged: dec("2.5"), At: env.clock.Now()}
	require.NoError(t, svc.NotifySession(ctx, ev))
	assert.Empty(t, push.tokens, "no device registered")

	require.NoError(t, svc.RegisterDevice(ctx, u.ID, "device-token"))
	require.NoError(t, svc.NotifySession(ctx, ev))
	require.Equal(t, []string{"device-token"}, push.tokens)
	assert.Equal(t, "2.50", push.data[0]["charged"])
	assert.Equal(t, "s-1", push.data[0]["session_id"])

	list, err := svc.List(ctx, u.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Session ended", list[0].Title)
	assert.Equal(t, "s-1", list[0].SessionID)

	require.NoError(t, svc.MarkRead(ctx, list[0].ID, u.ID))
	list, err = svc.List(ctx, u.ID, 10, 0)
	require.NoError(t, err)
	read := 0
	for _, n := range list {
		if n.ReadAt != nil {
			read++
		}
	}
	assert.Equal(t, 1, read)
}
