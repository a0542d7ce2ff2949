package service

import (
	"context"
	"fmt"
	"time"

	"tutorwallet/internal/domain"
	"tutorwallet/internal/models"
	"tutorwallet/internal/repository"
	"tutorwallet/pkg/log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Balance struct {
	UserID           uint            `json:"userId"`
	Balance          decimal.Decimal `json:"balance"`
	FormattedBalance string          `json:"formattedBalance"`
}

func newBalance(u *models.User) *Balance {
	return &Balance{UserID: u.ID, Balance: u.WalletBalance, FormattedBalance: domain.FormatMoney(u.WalletBalance)}
}

type TransactionPage struct {
	Transactions []models.WalletTransaction `json:"transactions"`
	Total        int64                      `json:"total"`
	Limit        int                        `json:"limit"`
	Skip         int                        `json:"skip"`
	Pages        int64                      `json:"pages"`
}

// Posting describes one balance mutation and the ledger row recorded with it.
type Posting struct {
	UserID      uint
	Type        string
	Bucket      string // defaults to wallet
	Amount      decimal.Decimal
	Reason      string
	RelatedID   string
	Description string
	Status      string // defaults to APPROVED
	ApprovedBy  *uint
	// Settle marks a pending debit whose amount has been earned; it is added to the
	// account's earned total in the same write.
	Settle bool
}

// WalletService is the only code that changes account balances. Every change is a
// locked read-check-write paired with one ledger row in the same transaction.
type WalletService struct {
	db                     *gorm.DB
	users                  *repository.UserRepository
	ledger                 *repository.WalletRepository
	defaultWithdrawalLimit decimal.Decimal
	log                    log.Log
	now                    func() time.Time
}

func NewWalletService(db *gorm.DB, users *repository.UserRepository, ledger *repository.WalletRepository, defaultWithdrawalLimit decimal.Decimal, logger log.Log) *WalletService {
	return &WalletService{
		db:                     db,
		users:                  users,
		ledger:                 ledger,
		defaultWithdrawalLimit: defaultWithdrawalLimit,
		log:                    logger,
		now:                    time.Now,
	}
}

// OpenAccount persists a new account with zero balances and the default withdrawal limit.
func (s *WalletService) OpenAccount(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = domain.RoleStudent
	}
	u.WalletBalance, u.PendingFunds, u.EarnedFunds = decimal.Zero, decimal.Zero, decimal.Zero
	if !u.WithdrawalLimit.IsPositive() {
		u.WithdrawalLimit = s.defaultWithdrawalLimit
	}
	return s.users.Create(ctx, u)
}

func (s *WalletService) GetBalance(ctx context.Context, userID uint) (*Balance, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newBalance(u), nil
}

func (s *WalletService) AddFunds(ctx context.Context, userID uint, amount decimal.Decimal, description string) (*Balance, error) {
	if description == "" {
		description = "Added funds to wallet"
	}
	return s.apply(ctx, Posting{
		UserID:      userID,
		Type:        domain.TxTypeCredit,
		Amount:      amount,
		Reason:      domain.TxReasonAddFunds,
		Description: description,
	})
}

func (s *WalletService) DeductFunds(ctx context.Context, userID uint, amount decimal.Decimal, reason, relatedID, description string) (*Balance, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", domain.ErrInvalidInput)
	}
	if description == "" {
		description = "Charged for " + reason
	}
	return s.apply(ctx, Posting{
		UserID:      userID,
		Type:        domain.TxTypeDebit,
		Amount:      amount,
		Reason:      reason,
		RelatedID:   relatedID,
		Description: description,
	})
}

func (s *WalletService) RefundFunds(ctx context.Context, userID uint, amount decimal.Decimal, relatedID, description string) (*Balance, error) {
	if description == "" {
		description = "Refund to wallet"
	}
	return s.apply(ctx, Posting{
		UserID:      userID,
		Type:        domain.TxTypeRefund,
		Amount:      amount,
		Reason:      domain.TxReasonRefund,
		RelatedID:   relatedID,
		Description: description,
	})
}

func (s *WalletService) apply(ctx context.Context, p Posting) (*Balance, error) {
	var out *Balance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.Post(ctx, tx, p)
		if err != nil {
			return err
		}
		out = &Balance{UserID: p.UserID, Balance: entry.BalanceAfter, FormattedBalance: domain.FormatMoney(entry.BalanceAfter)}
		return nil
	})
	if err != nil {
		s.log.Warn("wallet-service", err.Error(), p.Type, fmt.Sprintf("user=%d amount=%s reason=%s", p.UserID, p.Amount.StringFixed(2), p.Reason))
		return nil, err
	}
	s.log.Info("wallet-service", "balance updated", p.Type, fmt.Sprintf("user=%d amount=%s after=%s", p.UserID, p.Amount.StringFixed(2), out.Balance.StringFixed(2)))
	return out, nil
}

// Post applies p inside tx: it locks the account row, checks the tracked balance stays
// non-negative, writes the new balance and appends the ledger row. The caller owns tx,
// so several postings can commit or roll back together.
func (s *WalletService) Post(ctx context.Context, tx *gorm.DB, p Posting) (*models.WalletTransaction, error) {
	if !validAmount(p.Amount) {
		return nil, domain.ErrInvalidAmount
	}
	amount := p.Amount
	if p.Bucket == "" {
		p.Bucket = domain.BucketWallet
	}
	if p.Status == "" {
		p.Status = domain.TxStatusApproved
	}

	u, err := s.users.WithTx(tx).LockByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	before := u.BalanceOf(p.Bucket)
	var after decimal.Decimal
	switch p.Type {
	case domain.TxTypeCredit, domain.TxTypeRefund, domain.TxTypeEarning:
		after = before.Add(amount)
	case domain.TxTypeDebit:
		after = before.Sub(amount)
		if after.IsNegative() {
			return nil, &domain.InsufficientFundsError{Balance: before, Required: amount}
		}
	default:
		return nil, fmt.Errorf("unknown transaction type %q", p.Type)
	}

	fields := map[string]interface{}{"wallet_balance": after}
	if p.Bucket == domain.BucketPending {
		fields = map[string]interface{}{"pending_funds": after}
	}
	if p.Settle {
		if p.Bucket != domain.BucketPending || p.Type != domain.TxTypeDebit {
			return nil, fmt.Errorf("%w: only pending debits settle", domain.ErrInvalidInput)
		}
		fields["earned_funds"] = u.EarnedFunds.Add(amount)
	}
	if err := s.users.WithTx(tx).SetBalances(ctx, p.UserID, fields); err != nil {
		return nil, err
	}

	now := s.now()
	entry := &models.WalletTransaction{
		UserID:        p.UserID,
		Amount:        amount,
		Type:          p.Type,
		Reason:        p.Reason,
		RelatedID:     p.RelatedID,
		Description:   p.Description,
		Status:        p.Status,
		Bucket:        p.Bucket,
		BalanceBefore: before,
		BalanceAfter:  after,
		CreatedAt:     now,
	}
	if p.Status == domain.TxStatusApproved || p.Status == domain.TxStatusWithdrawn {
		entry.ApprovedAt = &now
		entry.ApprovedBy = p.ApprovedBy
	}
	if err := s.ledger.WithTx(tx).Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// validAmount reports whether d is a positive amount in whole cents.
func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

func (s *WalletService) ListTransactions(ctx context.Context, userID uint, limit, skip int) (*TransactionPage, error) {
	limit, skip = clampPage(limit, skip, 20)
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	list, total, err := s.ledger.ListByUserID(ctx, userID, limit, skip)
	if err != nil {
		return nil, err
	}
	return &TransactionPage{
		Transactions: list,
		Total:        total,
		Limit:        limit,
		Skip:         skip,
		Pages:        (total + int64(limit) - 1) / int64(limit),
	}, nil
}

func clampPage(limit, skip, def int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}
