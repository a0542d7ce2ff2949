package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tutorwallet/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession_PrepaidChargesUpFront(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "30")

	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "math", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectMath, sess.Subject)
	assert.Equal(t, domain.SessionActive, sess.Status)
	assert.Equal(t, domain.FundingPrepaid, sess.FundingMode)
	assert.EqualValues(t, 3600, sess.BookedSeconds)
	assert.Equal(t, "Math tutoring (1h booked)", sess.Title)

	assert.True(t, env.reload(t, u.ID).WalletBalance.Equal(dec("20")))
	rows, err := env.ledger.ListByRelatedID(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.TxReasonAITutor, rows[0].Reason)
	assert.Equal(t, "AI tutoring booking: 1h", rows[0].Description)
	assert.True(t, rows[0].Amount.Equal(dec("10")))
}

func TestCreateSession_InsufficientForBookingPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "15")

	_, err := env.sessionSvc.CreateSession(ctx, u.ID, "physics", 2)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	list, err := env.sessionSvc.ListSessions(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.True(t, env.reload(t, u.ID).WalletBalance.Equal(dec("15")))
}

func TestCreateSession_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "10")

	_, err := env.sessionSvc.CreateSession(ctx, u.ID, "math", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = env.sessionSvc.CreateSession(ctx, 999, "math", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "astrology", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectGeneral, sess.Subject)
	assert.Equal(t, domain.FundingMetered, sess.FundingMode)
	assert.True(t, env.reload(t, u.ID).WalletBalance.Equal(dec("10")), "metered sessions are not charged up front")
}

func TestEndSessionWithBilling_MeteredChargesElapsedOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "10")

	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "math", 0)
	require.NoError(t, err)
	env.clock.Advance(1800 * time.Second)

	res, err := env.sessionSvc.EndSessionWithBilling(ctx, sess.ID, u.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1800, res.Seconds)
	assert.True(t, res.Charged.Equal(dec("5")))
	assert.False(t, res.AlreadyEnded)

	got, err := env.sessions.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, got.Status)
	require.NotNil(t, got.EndedAt)
	assert.True(t, env.reload(t, u.ID).WalletBalance.Equal(dec("5")))

	again, err := env.sessionSvc.EndSessionWithBilling(ctx, sess.ID, u.ID, nil)
	require.NoError(t, err)
	assert.True(t, again.AlreadyEnded)
	assert.True(t, again.Charged.IsZero())
	assert.True(t, env.reload(t, u.ID).WalletBalance.Equal(dec("5")))
	env.requireLedgerConsistent(t, u.ID)
}

func TestEndSessionWithBilling_ExplicitDuration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "10")
	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "english", 0)
	require.NoError(t, err)

	seconds := int64(600)
	res, err := env.sessionSvc.EndSessionWithBilling(ctx, sess.ID, u.ID, &seconds)
	require.NoError(t, err)
	assert.True(t, res.Charged.Equal(dec("1.67")))

	rows, err := env.ledger.ListByRelatedID(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AI tutoring: 10 minutes", rows[0].Description)
}

func TestEndSessionWithBilling_PrepaidIsNotChargedAgain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "25")
	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "math", 1)
	require.NoError(t, err)
	env.clock.Advance(2 * time.Hour)

	res, err := env.sessionSvc.EndSessionWithBilling(ctx, sess.ID, u.ID, nil)
	require.NoError(t, err)
	assert.True(t, res.Charged.IsZero())
	assert.True(t, env.reload(t, u.ID).WalletBalance.Equal(dec("15")))
}

func TestEndSessionWithBilling_InsufficientStillCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "1")
	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "math", 0)
	require.NoError(t, err)

	hour := int64(3600)
	res, err := env.sessionSvc.EndSessionWithBilling(ctx, sess.ID, u.ID, &hour)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.NotNil(t, res)
	assert.True(t, res.Charged.IsZero())

	got, err := env.sessions.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, got.Status)
	assert.True(t, env.reload(t, u.ID).WalletBalance.Equal(dec("1")))
}

func TestEndSessionWithBilling_OtherUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.account(t, domain.RoleStudent, "10")
	other := env.account(t, domain.RoleStudent, "10")
	sess, err := env.sessionSvc.CreateSession(ctx, owner.ID, "math", 0)
	require.NoError(t, err)

	_, err = env.sessionSvc.EndSessionWithBilling(ctx, sess.ID, other.ID, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = env.sessionSvc.EndSessionWithBilling(ctx, "missing", owner.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.sessionSvc.GetSession(ctx, sess.ID, other.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestExtendSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "30")
	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "chemistry", 1)
	require.NoError(t, err)
	ok, err := env.sessions.MarkLapsed(ctx, sess.ID, env.clock.Now())
	require.NoError(t, err)
	require.True(t, ok)

	extended, err := env.sessionSvc.ExtendSession(ctx, sess.ID, u.ID, 0.5)
	require.NoError(t, err)
	assert.EqualValues(t, 5400, extended.BookedSeconds)
	assert.Nil(t, extended.LapsedNotifiedAt)
	assert.Equal(t, "Chemistry tutoring (1h 30m booked)", extended.Title)
	assert.True(t, env.reload(t, u.ID).WalletBalance.Equal(dec("15")))

	full, err := env.sessionSvc.GetSession(ctx, sess.ID, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, full.Messages)
	assert.Equal(t, "Session extended by 30m. Total booked time: 1h 30m.", full.Messages[len(full.Messages)-1].Content)

	_, err = env.sessionSvc.ExtendSession(ctx, sess.ID, u.ID, 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	_, err = env.sessionSvc.ExtendSession(ctx, sess.ID, u.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	metered, err := env.sessionSvc.CreateSession(ctx, u.ID, "math", 0)
	require.NoError(t, err)
	_, err = env.sessionSvc.ExtendSession(ctx, metered.ID, u.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.True(t, env.reload(t, u.ID).WalletBalance.Equal(dec("15")))
}

func TestSendMessage_StoresBothTurns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "10")
	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "math", 0)
	require.NoError(t, err)

	question := "How do I factor x^2 + 5x + 6 when the leading coefficient is one?"
	res, err := env.sessionSvc.SendMessage(ctx, u.ID, sess.ID, question)
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, domain.MessageRoleAssistant, res.Message.Role)
	assert.Equal(t, "Let's work through it.", res.Message.Content)

	require.Equal(t, 1, env.generator.calls)
	assert.True(t, strings.Contains(env.generator.prompts[0], "Mathematics"))
	assert.Equal(t, []ChatTurn{{Role: domain.MessageRoleUser, Content: question}}, env.generator.history[0])

	_, err = env.sessionSvc.SendMessage(ctx, u.ID, sess.ID, "And x^2 - 1?")
	require.NoError(t, err)
	assert.Len(t, env.generator.history[1], 3)

	full, err := env.sessionSvc.GetSession(ctx, sess.ID, u.ID)
	require.NoError(t, err)
	assert.Len(t, full.Messages, 4)
	assert.Equal(t, []rune(question)[:50], []rune(full.Title))
	assert.True(t, env.reload(t, u.ID).WalletBalance.Equal(dec("10")), "messages are not billed individually")
}

func TestSendMessage_QuotaFallsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "10")
	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "math", 0)
	require.NoError(t, err)
	env.generator.err = &GeneratorError{Kind: domain.ErrUpstreamQuota, Retryable: true, Err: errors.New("429")}

	res, err := env.sessionSvc.SendMessage(ctx, u.ID, sess.ID, "hello")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, quotaFallbackReply, res.Message.Content)
	assert.NotZero(t, res.Message.ID)
}

func TestSendMessage_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "10")
	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "math", 0)
	require.NoError(t, err)

	env.generator.err = &GeneratorError{Kind: domain.ErrUpstreamConfig, Err: errors.New("no key")}
	_, err = env.sessionSvc.SendMessage(ctx, u.ID, sess.ID, "hello")
	assert.ErrorIs(t, err, domain.ErrUpstreamConfig)

	env.generator.err = &GeneratorError{Kind: domain.ErrUpstreamGeneric, Err: errors.New("500")}
	_, err = env.sessionSvc.SendMessage(ctx, u.ID, sess.ID, "hello")
	assert.ErrorIs(t, err, domain.ErrUpstreamGeneric)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	env.generator.err = nil
	_, err = env.sessionSvc.SendMessage(ctx, u.ID, sess.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.sessionSvc.EndSessionWithBilling(ctx, sess.ID, u.ID, new(int64))
	require.NoError(t, err)
	_, err = env.sessionSvc.SendMessage(ctx, u.ID, sess.ID, "hello")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSendMessage_MeteredNeedsAMinute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "0.10")
	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "math", 0)
	require.NoError(t, err)

	_, err = env.sessionSvc.SendMessage(ctx, u.ID, sess.ID, "hello")
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Zero(t, env.generator.calls)
}

func TestSendMessage_PrepaidSkipsBalanceCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.account(t, domain.RoleStudent, "10")
	sess, err := env.sessionSvc.CreateSession(ctx, u.ID, "math", 1)
	require.NoError(t, err)
	require.True(t, env.reload(t, u.ID).WalletBalance.IsZero())

	_, err = env.sessionSvc.SendMessage(ctx, u.ID, sess.ID, "hello")
	require.NoError(t, err)
}

func TestDescribeDuration(t *testing.T) {
	assert.Equal(t, "2h", describeDuration(7200))
	assert.Equal(t, "1h 30m", describeDuration(5400))
	assert.Equal(t, "45m", describeDuration(2700))
	assert.Equal(t, "0m", describeDuration(20))
}
