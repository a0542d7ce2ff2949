package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorwallet/internal/domain"
	"tutorwallet/internal/models"
	"tutorwallet/internal/repository"
	"tutorwallet/pkg/log"
	"tutorwallet/pkg/metering"
)

// SessionMonitor periodically checks active sessions. Booked sessions past their time
// get a one-time lapsed notice. Metered sessions that have used up the balance are
// ended and charged for exactly the time the balance covered.
type SessionMonitor struct {
	sessionSvc *SessionService
	sessions   *repository.SessionRepository
	users      *repository.UserRepository
	notifier   SessionNotifier
	lock       SweepLock
	interval   time.Duration
	// notifyTimeout bounds each event delivery so a slow sink cannot stretch the sweep
	// past the lock TTL.
	notifyTimeout time.Duration
	log           log.Log
	now           func() time.Time
}

func NewSessionMonitor(sessionSvc *SessionService, sessions *repository.SessionRepository, users *repository.UserRepository, notifier SessionNotifier, lock SweepLock, interval time.Duration, logger log.Log) *SessionMonitor {
	if lock == nil {
		lock = NewLocalSweepLock()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SessionMonitor{
		sessionSvc:    sessionSvc,
		sessions:      sessions,
		users:         users,
		notifier:      notifier,
		lock:          lock,
		interval:      interval,
		notifyTimeout: defaultNotifyTimeout,
		log:           logger,
		now:           time.Now,
	}
}

const defaultNotifyTimeout = 5 * time.Second

// SetNotifyTimeout changes how long one event delivery may take. Zero keeps the default.
func (m *SessionMonitor) SetNotifyTimeout(d time.Duration) {
	if d > 0 {
		m.notifyTimeout = d
	}
}

// Start sweeps on every tick until ctx is cancelled.
func (m *SessionMonitor) Start(ctx context.Context) {
	m.log.Info("monitor", fmt.Sprintf("started, checking every %v", m.interval), "Start", "")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info("monitor", "stopped", "Start", "")
			return
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				m.log.Error("monitor", err.Error(), "Sweep", "")
			}
		}
	}
}

// Sweep checks every active session once. A failure on one session is logged and the
// sweep moves on to the next.
func (m *SessionMonitor) Sweep(ctx context.Context) error {
	release, ok, err := m.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		return nil
	}
	defer release()

	active, err := m.sessions.ListActive(ctx)
	if err != nil {
		return err
	}
	for i := range active {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.checkSafely(ctx, &active[i])
	}
	return nil
}

// CheckSession runs the same check for one session, for clients that report in between sweeps.
func (m *SessionMonitor) CheckSession(ctx context.Context, sessionID string) error {
	sess, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.IsActive() {
		return nil
	}
	u, err := m.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return err
	}
	sess.User = *u
	return m.check(ctx, sess)
}

func (m *SessionMonitor) checkSafely(ctx context.Context, sess *models.AISession) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("monitor", fmt.Sprintf("panic: %v", r), "check", "session="+sess.ID)
		}
	}()
	if err := m.check(ctx, sess); err != nil {
		m.log.Error("monitor", err.Error(), "check", "session="+sess.ID)
	}
}

func (m *SessionMonitor) check(ctx context.Context, sess *models.AISession) error {
	now := m.now()
	elapsed := sess.ElapsedSeconds(now)

	if sess.IsPrepaid() {
		if elapsed <= sess.BookedSeconds || sess.LapsedNotifiedAt != nil {
			return nil
		}
		first, err := m.sessions.MarkLapsed(ctx, sess.ID, now)
		if err != nil || !first {
			return err
		}
		return m.notify(ctx, domain.SessionEvent{
			Type:      domain.EventBookingLapsed,
			SessionID: sess.ID,
			UserID:    sess.UserID,
			Message:   domain.BookingLapsedMessage,
			At:        now,
		})
	}

	available := metering.SecondsFromBalance(sess.User.WalletBalance)
	if elapsed <= available {
		return nil
	}
	res, err := m.sessionSvc.endSession(ctx, sess, &available, domain.ExhaustedBalanceNotice)
	if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) {
		return err
	}
	if res.AlreadyEnded {
		return nil
	}
	m.log.Info("monitor", "session ended on exhausted balance", "check", fmt.Sprintf("session=%s seconds=%d charged=%s", sess.ID, res.Seconds, res.Charged.StringFixed(2)))
	return m.notify(ctx, domain.SessionEvent{
		Type:      domain.EventSessionEnded,
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Message:   domain.ExhaustedBalanceNotice,
		Charged:   res.Charged,
		At:        now,
	})
}

func (m *SessionMonitor) notify(ctx context.Context, ev domain.SessionEvent) error {
	if m.notifier == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.notifyTimeout)
	defer cancel()
	return m.notifier.NotifySession(ctx, ev)
}
