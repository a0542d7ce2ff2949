package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"tutorwallet/config"
	"tutorwallet/internal/database"
	"tutorwallet/internal/domain"
	"tutorwallet/internal/models"
	"tutorwallet/internal/repository"
	"tutorwallet/pkg/log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	history [][]ChatTurn
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, systemPrompt string, history []ChatTurn) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, systemPrompt)
	g.history = append(g.history, append([]ChatTurn(nil), history...))
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (n *recordingNotifier) NotifySession(_ context.Context, ev domain.SessionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) Events() []domain.SessionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.SessionEvent(nil), n.events...)
}

type testEnv struct {
	db          *gorm.DB
	users       *repository.UserRepository
	ledger      *repository.WalletRepository
	withdrawals *repository.WithdrawalRepository
	sessions    *repository.SessionRepository
	wallet      *WalletService
	earnings    *EarningsService
	sessionSvc  *SessionService
	generator   *fakeGenerator
	clock       *fakeClock
	seq         int
	run         string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, &config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
}

// newRealDatabaseEnv runs against the database named by TEST_DATABASE_DRIVER (default
// postgres) and TEST_DATABASE_DSN, and skips when no DSN is set.
func newRealDatabaseEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	driver := os.Getenv("TEST_DATABASE_DRIVER")
	if driver == "" {
		driver = "postgres"
	}
	return newTestEnvOn(t, &config.DatabaseConfig{Driver: driver, DSN: dsn, MaxOpenConns: 16, MaxIdleConns: 16})
}

func newTestEnvOn(t *testing.T, cfg *config.DatabaseConfig) *testEnv {
	t.Helper()
	db, err := database.NewDB(cfg)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	env := &testEnv{
		db:          db,
		users:       repository.NewUserRepository(db),
		ledger:      repository.NewWalletRepository(db),
		withdrawals: repository.NewWithdrawalRepository(db),
		sessions:    repository.NewSessionRepository(db),
		generator:   &fakeGenerator{reply: "Let's work through it."},
		clock:       clock,
		run:         uuid.NewString()[:8],
	}
	logger := log.Discard()
	env.wallet = NewWalletService(db, env.users, env.ledger, dec("1000"), logger)
	env.wallet.now = clock.Now
	env.earnings = NewEarningsService(db, env.wallet, env.users, env.withdrawals, logger)
	env.earnings.now = clock.Now
	env.sessionSvc = NewSessionService(db, env.wallet, env.users, env.sessions, env.generator, 20, logger)
	env.sessionSvc.now = clock.Now
	return env
}

// account opens an account and funds it with balance.
func (e *testEnv) account(t *testing.T, role, balance string) *models.User {
	t.Helper()
	e.seq++
	u := &models.User{Email: fmt.Sprintf("%s-%d-%s@example.com", strings.ToLower(role), e.seq, e.run), Name: role, Role: role}
	require.NoError(t, e.wallet.OpenAccount(context.Background(), u))
	if b := dec(balance); b.IsPositive() {
		_, err := e.wallet.AddFunds(context.Background(), u.ID, b, "")
		require.NoError(t, err)
	}
	return u
}

func (e *testEnv) reload(t *testing.T, id uint) *models.User {
	t.Helper()
	u, err := e.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// requireLedgerConsistent checks every row's before/after pair against its amount, per
// bucket, and that the newest row of each bucket matches the stored balance.
func (e *testEnv) requireLedgerConsistent(t *testing.T, userID uint) {
	t.Helper()
	u := e.reload(t, userID)
	for bucket, stored := range map[string]decimal.Decimal{
		domain.BucketWallet:  u.WalletBalance,
		domain.BucketPending: u.PendingFunds,
	} {
		var rows []models.WalletTransaction
		require.NoError(t, e.db.Where("user_id = ? AND bucket = ?", userID, bucket).Order("id ASC").Find(&rows).Error)
		for i, r := range rows {
			want := r.BalanceBefore.Add(r.Amount)
			if r.Type == domain.TxTypeDebit {
				want = r.BalanceBefore.Sub(r.Amount)
			}
			require.True(t, want.Equal(r.BalanceAfter), "%s row %d: %s -> %s by %s %s", bucket, r.ID, r.BalanceBefore, r.BalanceAfter, r.Type, r.Amount)
			require.False(t, r.BalanceAfter.IsNegative())
			if i > 0 {
				require.True(t, rows[i-1].BalanceAfter.Equal(r.BalanceBefore), "%s row %d does not chain", bucket, r.ID)
			}
		}
		if len(rows) > 0 {
			require.True(t, rows[len(rows)-1].BalanceAfter.Equal(stored), "%s ledger ends at %s, stored %s", bucket, rows[len(rows)-1].BalanceAfter, stored)
		} else {
			require.True(t, stored.IsZero(), "%s balance %s has no ledger rows", bucket, stored)
		}
	}
}

func repositoryNotifications(e *testEnv) *repository.NotificationRepository {
	return repository.NewNotificationRepository(e.db)
}
