package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tutorwallet/internal/domain"
	"tutorwallet/internal/models"
	"tutorwallet/internal/repository"
	"tutorwallet/pkg/log"
	"tutorwallet/pkg/metering"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const quotaFallbackReply = "I'm getting a lot of questions right now and couldn't answer that one. Please try again in a minute."

type MessageResult struct {
	Message  *models.AIMessage `json:"message"`
	Degraded bool              `json:"degraded"`
}

type EndResult struct {
	SessionID    string          `json:"sessionId"`
	Seconds      int64           `json:"seconds"`
	Charged      decimal.Decimal `json:"charged"`
	AlreadyEnded bool            `json:"alreadyEnded"`
}

// SessionService runs the AI tutoring session lifecycle and bills it in time.
type SessionService struct {
	db              *gorm.DB
	wallet          *WalletService
	users           *repository.UserRepository
	sessions        *repository.SessionRepository
	generator       TutorGenerator
	contextMessages int
	log             log.Log
	now             func() time.Time
}

func NewSessionService(db *gorm.DB, wallet *WalletService, users *repository.UserRepository, sessions *repository.SessionRepository, generator TutorGenerator, contextMessages int, logger log.Log) *SessionService {
	if contextMessages <= 0 {
		contextMessages = 20
	}
	return &SessionService{
		db:              db,
		wallet:          wallet,
		users:           users,
		sessions:        sessions,
		generator:       generator,
		contextMessages: contextMessages,
		log:             logger,
		now:             time.Now,
	}
}

// CreateSession opens an ACTIVE session. With hours > 0 the booking is charged up front
// in the same transaction, so a failed charge leaves no session behind.
func (s *SessionService) CreateSession(ctx context.Context, userID uint, subject string, hours float64) (*models.AISession, error) {
	if hours < 0 {
		return nil, domain.ErrInvalidAmount
	}
	now := s.now()
	sess := &models.AISession{
		ID:          uuid.NewString(),
		UserID:      userID,
		Subject:     NormalizeSubject(subject),
		Status:      domain.SessionActive,
		FundingMode: domain.FundingMetered,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var cost decimal.Decimal
	if hours > 0 {
		seconds := metering.SecondsForHours(hours)
		cost = metering.CostForSeconds(seconds)
		if !cost.IsPositive() {
			return nil, domain.ErrInvalidAmount
		}
		sess.FundingMode = domain.FundingPrepaid
		sess.BookedSeconds = seconds
		sess.Title = bookingTitle(sess.Subject, seconds)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.users.WithTx(tx).GetByID(ctx, userID); err != nil {
			return err
		}
		if err := s.sessions.WithTx(tx).Create(ctx, sess); err != nil {
			return err
		}
		if !sess.IsPrepaid() {
			return nil
		}
		_, err := s.wallet.Post(ctx, tx, Posting{
			UserID:      userID,
			Type:        domain.TxTypeDebit,
			Amount:      cost,
			Reason:      domain.TxReasonAITutor,
			RelatedID:   sess.ID,
			Description: "AI tutoring booking: " + describeDuration(sess.BookedSeconds),
		})
		return err
	})
	if err != nil {
		s.log.Warn("session-service", err.Error(), "CreateSession", fmt.Sprintf("user=%d hours=%g", userID, hours))
		return nil, err
	}
	s.log.Info("session-service", "session created", "CreateSession", fmt.Sprintf("user=%d session=%s mode=%s", userID, sess.ID, sess.FundingMode))
	return sess, nil
}

func (s *SessionService) owned(ctx context.Context, sessionID string, userID uint) (*models.AISession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return sess, nil
}

// SendMessage stores the student's message, asks the tutor generator for a reply and
// stores that too. Metered sessions need at least one minute of balance. When the
// generator is out of quota a fallback reply is stored and returned instead of an error.
func (s *SessionService) SendMessage(ctx context.Context, userID uint, sessionID, content string) (*MessageResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}
	sess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive() {
		return nil, fmt.Errorf("%w: session is %s", domain.ErrInvalidState, sess.Status)
	}
	if !sess.IsPrepaid() {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if metering.MinutesFromBalance(u.WalletBalance) < 1 {
			return nil, &domain.InsufficientFundsError{Balance: u.WalletBalance, Required: metering.CostForSeconds(60)}
		}
	}

	recent, err := s.sessions.RecentMessages(ctx, sessionID, s.contextMessages)
	if err != nil {
		return nil, err
	}
	userMsg := &models.AIMessage{SessionID: sessionID, UserID: userID, Role: domain.MessageRoleUser, Content: content, CreatedAt: s.now()}
	if err := s.sessions.AddMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	turns := make([]ChatTurn, 0, len(recent)+1)
	for _, m := range recent {
		turns = append(turns, ChatTurn{Role: m.Role, Content: m.Content})
	}
	turns = append(turns, ChatTurn{Role: domain.MessageRoleUser, Content: content})

	degraded := false
	reply, err := s.generator.Generate(ctx, systemPromptFor(sess.Subject), turns)
	if err != nil {
		if !errors.Is(err, domain.ErrUpstreamQuota) {
			s.log.Error("session-service", err.Error(), "SendMessage", "session="+sessionID)
			return nil, err
		}
		s.log.Warn("session-service", err.Error(), "SendMessage", "session="+sessionID+" fallback=true")
		reply, degraded = quotaFallbackReply, true
	}

	now := s.now()
	answer := &models.AIMessage{SessionID: sessionID, UserID: userID, Role: domain.MessageRoleAssistant, Content: reply, CreatedAt: now}
	if err := s.sessions.AddMessage(ctx, answer); err != nil {
		return nil, err
	}
	title := ""
	if sess.Title == "" {
		title = truncateRunes(content, 50)
	}
	if err := s.sessions.Touch(ctx, sessionID, title, now); err != nil {
		return nil, err
	}
	return &MessageResult{Message: answer, Degraded: degraded}, nil
}

// EndSessionWithBilling ends the caller's session. durationSeconds nil bills the time
// since the session started. Ending an ended session charges nothing and is not an error.
func (s *SessionService) EndSessionWithBilling(ctx context.Context, sessionID string, userID uint, durationSeconds *int64) (*EndResult, error) {
	sess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return s.endSession(ctx, sess, durationSeconds, "")
}

// endSession is the one place a session is completed and billed, for both the end
// endpoint and the monitor. The ACTIVE->COMPLETED update is conditional, so of two
// racing callers only one charges. Metered sessions are charged in the same
// transaction; when the balance cannot cover the charge the session still completes
// and the insufficient funds error is returned with the result.
func (s *SessionService) endSession(ctx context.Context, sess *models.AISession, durationSeconds *int64, notice string) (*EndResult, error) {
	now := s.now()
	seconds := sess.ElapsedSeconds(now)
	if durationSeconds != nil {
		seconds = *durationSeconds
		if seconds < 0 {
			seconds = 0
		}
	}
	res := &EndResult{SessionID: sess.ID, Seconds: seconds, Charged: decimal.Zero}

	var chargeErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessions := s.sessions.WithTx(tx)
		ok, err := sessions.Complete(ctx, sess.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			res.AlreadyEnded, res.Seconds = true, 0
			return nil
		}
		if !sess.IsPrepaid() {
			cost := metering.CostForSeconds(seconds)
			if cost.IsPositive() {
				_, err := s.wallet.Post(ctx, tx, Posting{
					UserID:      sess.UserID,
					Type:        domain.TxTypeDebit,
					Amount:      cost,
					Reason:      domain.TxReasonAITutor,
					RelatedID:   sess.ID,
					Description: fmt.Sprintf("AI tutoring: %d minutes", (seconds+59)/60),
				})
				switch {
				case errors.Is(err, domain.ErrInsufficientFunds):
					chargeErr = err
				case err != nil:
					return err
				default:
					res.Charged = cost
				}
			}
		}
		if notice != "" {
			return sessions.AddMessage(ctx, &models.AIMessage{SessionID: sess.ID, UserID: sess.UserID, Role: domain.MessageRoleAssistant, Content: notice, CreatedAt: now})
		}
		return nil
	})
	if err != nil {
		s.log.Error("session-service", err.Error(), "endSession", "session="+sess.ID)
		return nil, err
	}
	if res.AlreadyEnded {
		return res, nil
	}
	s.log.Info("session-service", "session ended", "endSession", fmt.Sprintf("session=%s seconds=%d charged=%s", sess.ID, seconds, res.Charged.StringFixed(2)))
	if chargeErr != nil {
		s.log.Warn("session-service", chargeErr.Error(), "endSession", "session="+sess.ID)
	}
	return res, chargeErr
}

// ExtendSession buys more time for an active prepaid session.
func (s *SessionService) ExtendSession(ctx context.Context, sessionID string, userID uint, hours float64) (*models.AISession, error) {
	seconds := metering.SecondsForHours(hours)
	cost := metering.CostForSeconds(seconds)
	if !cost.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	sess, err := s.owned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive() {
		return nil, fmt.Errorf("%w: session is %s", domain.ErrInvalidState, sess.Status)
	}
	if !sess.IsPrepaid() {
		return nil, fmt.Errorf("%w: only booked sessions can be extended", domain.ErrInvalidState)
	}

	now := s.now()
	total := sess.BookedSeconds + seconds
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.wallet.Post(ctx, tx, Posting{
			UserID:      userID,
			Type:        domain.TxTypeDebit,
			Amount:      cost,
			Reason:      domain.TxReasonAITutor,
			RelatedID:   sess.ID,
			Description: "AI tutoring booking extension: " + describeDuration(seconds),
		})
		if err != nil {
			return err
		}
		sessions := s.sessions.WithTx(tx)
		ok, err := sessions.Extend(ctx, sess.ID, seconds, bookingTitle(sess.Subject, total), now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: session is no longer active", domain.ErrInvalidState)
		}
		return sessions.AddMessage(ctx, &models.AIMessage{
			SessionID: sess.ID,
			UserID:    userID,
			Role:      domain.MessageRoleAssistant,
			Content:   fmt.Sprintf("Session extended by %s. Total booked time: %s.", describeDuration(seconds), describeDuration(total)),
			CreatedAt: now,
		})
	})
	if err != nil {
		s.log.Warn("session-service", err.Error(), "ExtendSession", fmt.Sprintf("session=%s hours=%g", sessionID, hours))
		return nil, err
	}
	s.log.Info("session-service", "session extended", "ExtendSession", fmt.Sprintf("session=%s added=%ds", sessionID, seconds))
	return s.sessions.GetByID(ctx, sessionID)
}

func (s *SessionService) ListSessions(ctx context.Context, userID uint) ([]models.AISession, error) {
	return s.sessions.ListByUserID(ctx, userID)
}

func (s *SessionService) GetSession(ctx context.Context, sessionID string, userID uint) (*models.AISession, error) {
	sess, err := s.sessions.GetWithMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return sess, nil
}

func bookingTitle(subject string, seconds int64) string {
	name := strings.ReplaceAll(strings.ToLower(subject), "_", " ")
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s tutoring (%s booked)", name, describeDuration(seconds))
}

// describeDuration renders seconds as "2h", "1h 30m" or "45m".
func describeDuration(seconds int64) string {
	h, m := seconds/3600, (seconds%3600)/60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dm", m)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Authorize reports whether the session exists and belongs to the user.
func (s *SessionService) Authorize(ctx context.Context, sessionID string, userID uint) error {
	_, err := s.owned(ctx, sessionID, userID)
	return err
}
