package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tutorwallet/internal/domain"
	"tutorwallet/internal/models"
	"tutorwallet/internal/repository"
	"tutorwallet/pkg/log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EarningsSummary struct {
	UserID                          uint            `json:"userId"`
	TotalEarned                     decimal.Decimal `json:"totalEarned"`
	PendingFunds                    decimal.Decimal `json:"pendingFunds"`
	AvailableForWithdrawal          decimal.Decimal `json:"availableForWithdrawal"`
	WithdrawalLimit                 decimal.Decimal `json:"withdrawalLimit"`
	FormattedTotalEarned            string          `json:"formattedTotalEarned"`
	FormattedPendingFunds           string          `json:"formattedPendingFunds"`
	FormattedAvailableForWithdrawal string          `json:"formattedAvailableForWithdrawal"`
}

type WithdrawalPage struct {
	Withdrawals []models.WithdrawalRequest `json:"withdrawals"`
	Total       int64                      `json:"total"`
	Limit       int                        `json:"limit"`
	Skip        int                        `json:"skip"`
	Pages       int64                      `json:"pages"`
}

// EarningsService holds tutor earnings in escrow and runs the withdrawal workflow.
// All balance changes go through WalletService.Post.
type EarningsService struct {
	db          *gorm.DB
	wallet      *WalletService
	users       *repository.UserRepository
	withdrawals *repository.WithdrawalRepository
	log         log.Log
	now         func() time.Time
}

func NewEarningsService(db *gorm.DB, wallet *WalletService, users *repository.UserRepository, withdrawals *repository.WithdrawalRepository, logger log.Log) *EarningsService {
	return &EarningsService{
		db:          db,
		wallet:      wallet,
		users:       users,
		withdrawals: withdrawals,
		log:         logger,
		now:         time.Now,
	}
}

// CaptureProposalFunds moves amount from the payer's wallet into the payee's pending funds.
// Both ledger rows commit together or not at all.
func (s *EarningsService) CaptureProposalFunds(ctx context.Context, payerID, payeeID uint, proposalID string, amount decimal.Decimal) error {
	if !validAmount(amount) {
		return domain.ErrInvalidAmount
	}
	if payerID == payeeID {
		return fmt.Errorf("%w: payer and payee are the same account", domain.ErrInvalidState)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.users.WithTx(tx).GetByID(ctx, payeeID); err != nil {
			return err
		}
		_, err := s.wallet.Post(ctx, tx, Posting{
			UserID:      payerID,
			Type:        domain.TxTypeDebit,
			Amount:      amount,
			Reason:      domain.TxReasonProposalAccepted,
			RelatedID:   proposalID,
			Description: "Payment for accepted proposal " + proposalID,
		})
		if err != nil {
			return err
		}
		_, err = s.wallet.Post(ctx, tx, Posting{
			UserID:      payeeID,
			Type:        domain.TxTypeEarning,
			Bucket:      domain.BucketPending,
			Amount:      amount,
			Reason:      domain.TxReasonProposalAccepted,
			RelatedID:   proposalID,
			Description: "Earning held for proposal " + proposalID,
			Status:      domain.TxStatusPending,
		})
		return err
	})
	if err != nil {
		s.log.Warn("earnings-service", err.Error(), "CaptureProposalFunds", fmt.Sprintf("payer=%d payee=%d proposal=%s", payerID, payeeID, proposalID))
		return err
	}
	s.log.Info("earnings-service", "proposal funds captured", "CaptureProposalFunds", fmt.Sprintf("payer=%d payee=%d proposal=%s amount=%s", payerID, payeeID, proposalID, amount.StringFixed(2)))
	return nil
}

// ReleasePendingFunds moves amount out of escrow into the payee's earned total and wallet.
func (s *EarningsService) ReleasePendingFunds(ctx context.Context, payeeID uint, amount decimal.Decimal, proposalID string, releasedBy uint) error {
	if !validAmount(amount) {
		return domain.ErrInvalidAmount
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.users.WithTx(tx).LockByID(ctx, payeeID)
		if err != nil {
			return err
		}
		if u.PendingFunds.LessThan(amount) {
			return domain.ErrInsufficientPendingFunds
		}
		approver := releasedBy
		_, err = s.wallet.Post(ctx, tx, Posting{
			UserID:      payeeID,
			Type:        domain.TxTypeDebit,
			Bucket:      domain.BucketPending,
			Amount:      amount,
			Reason:      domain.TxReasonProposalCompleted,
			RelatedID:   proposalID,
			Description: "Released from escrow for proposal " + proposalID,
			ApprovedBy:  &approver,
			Settle:      true,
		})
		if err != nil {
			return err
		}
		_, err = s.wallet.Post(ctx, tx, Posting{
			UserID:      payeeID,
			Type:        domain.TxTypeCredit,
			Amount:      amount,
			Reason:      domain.TxReasonProposalCompleted,
			RelatedID:   proposalID,
			Description: "Released earnings for proposal " + proposalID,
			ApprovedBy:  &approver,
		})
		return err
	})
	if err != nil {
		s.log.Warn("earnings-service", err.Error(), "ReleasePendingFunds", fmt.Sprintf("payee=%d proposal=%s", payeeID, proposalID))
		return err
	}
	s.log.Info("earnings-service", "pending funds released", "ReleasePendingFunds", fmt.Sprintf("payee=%d proposal=%s amount=%s by=%d", payeeID, proposalID, amount.StringFixed(2), releasedBy))
	return nil
}

func (s *EarningsService) GetEarnings(ctx context.Context, userID uint) (*EarningsSummary, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &EarningsSummary{
		UserID:                          u.ID,
		TotalEarned:                     u.EarnedFunds,
		PendingFunds:                    u.PendingFunds,
		AvailableForWithdrawal:          u.WalletBalance,
		WithdrawalLimit:                 u.WithdrawalLimit,
		FormattedTotalEarned:            domain.FormatMoney(u.EarnedFunds),
		FormattedPendingFunds:           domain.FormatMoney(u.PendingFunds),
		FormattedAvailableForWithdrawal: domain.FormatMoney(u.WalletBalance),
	}, nil
}

// RequestWithdrawal records a withdrawal request. Funds are checked but not held; approval
// checks again.
func (s *EarningsService) RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal, reason string) (*models.WithdrawalRequest, error) {
	if !validAmount(amount) {
		return nil, domain.ErrInvalidAmount
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(u.WithdrawalLimit) {
		return nil, fmt.Errorf("%w: limit is %s", domain.ErrExceedsLimit, domain.FormatMoney(u.WithdrawalLimit))
	}
	if amount.GreaterThan(u.WalletBalance) {
		return nil, &domain.InsufficientFundsError{Balance: u.WalletBalance, Required: amount}
	}
	if reason == "" {
		reason = "Withdrawal request"
	}
	w := &models.WithdrawalRequest{
		UserID: userID,
		Amount: amount,
		Reason: reason,
		Status: domain.WithdrawalRequested,
	}
	if err := s.withdrawals.Create(ctx, w); err != nil {
		return nil, err
	}
	s.log.Info("earnings-service", "withdrawal requested", "RequestWithdrawal", fmt.Sprintf("user=%d request=%d amount=%s", userID, w.ID, amount.StringFixed(2)))
	return w, nil
}

// ApproveWithdrawal debits the wallet and completes the request in one transaction.
func (s *EarningsService) ApproveWithdrawal(ctx context.Context, requestID, approverID uint, notes string) (*models.WithdrawalRequest, error) {
	var out *models.WithdrawalRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.withdrawals.WithTx(tx)
		w, err := repo.LockByID(ctx, requestID)
		if err != nil {
			return err
		}
		if w.Status != domain.WithdrawalRequested {
			return fmt.Errorf("%w: withdrawal is %s", domain.ErrInvalidState, w.Status)
		}
		approver := approverID
		_, err = s.wallet.Post(ctx, tx, Posting{
			UserID:      w.UserID,
			Type:        domain.TxTypeDebit,
			Amount:      w.Amount,
			Reason:      domain.TxReasonWithdrawal,
			RelatedID:   strconv.FormatUint(uint64(w.ID), 10),
			Description: "Withdrawal " + strconv.FormatUint(uint64(w.ID), 10),
			Status:      domain.TxStatusWithdrawn,
			ApprovedBy:  &approver,
		})
		if err != nil {
			return err
		}
		now := s.now()
		ok, err := repo.Transition(ctx, w.ID, domain.WithdrawalRequested, domain.WithdrawalCompleted, map[string]interface{}{
			"approved_at": now,
			"approved_by": approverID,
			"notes":       notes,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: withdrawal already processed", domain.ErrInvalidState)
		}
		w.Status, w.ApprovedAt, w.ApprovedBy, w.Notes = domain.WithdrawalCompleted, &now, &approver, notes
		out = w
		return nil
	})
	if err != nil {
		s.log.Warn("earnings-service", err.Error(), "ApproveWithdrawal", fmt.Sprintf("request=%d approver=%d", requestID, approverID))
		return nil, err
	}
	s.log.Info("earnings-service", "withdrawal approved", "ApproveWithdrawal", fmt.Sprintf("request=%d approver=%d", requestID, approverID))
	return out, nil
}

// RejectWithdrawal closes the request without moving funds.
func (s *EarningsService) RejectWithdrawal(ctx context.Context, requestID, approverID uint, notes string) (*models.WithdrawalRequest, error) {
	if notes == "" {
		notes = "Rejected by admin"
	}
	w, err := s.withdrawals.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if w.Status != domain.WithdrawalRequested {
		return nil, fmt.Errorf("%w: withdrawal is %s", domain.ErrInvalidState, w.Status)
	}
	now := s.now()
	ok, err := s.withdrawals.Transition(ctx, requestID, domain.WithdrawalRequested, domain.WithdrawalRejected, map[string]interface{}{
		"approved_at": now,
		"approved_by": approverID,
		"notes":       notes,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: withdrawal already processed", domain.ErrInvalidState)
	}
	approver := approverID
	w.Status, w.ApprovedAt, w.ApprovedBy, w.Notes = domain.WithdrawalRejected, &now, &approver, notes
	s.log.Info("earnings-service", "withdrawal rejected", "RejectWithdrawal", fmt.Sprintf("request=%d approver=%d", requestID, approverID))
	return w, nil
}

func (s *EarningsService) ListWithdrawals(ctx context.Context, userID uint, limit, skip int) (*WithdrawalPage, error) {
	limit, skip = clampPage(limit, skip, 20)
	list, total, err := s.withdrawals.ListByUserID(ctx, userID, limit, skip)
	if err != nil {
		return nil, err
	}
	return &WithdrawalPage{
		Withdrawals: list,
		Total:       total,
		Limit:       limit,
		Skip:        skip,
		Pages:       (total + int64(limit) - 1) / int64(limit),
	}, nil
}

// PendingWithdrawals is the admin queue, oldest request first.
func (s *EarningsService) PendingWithdrawals(ctx context.Context, limit int) ([]models.WithdrawalRequest, error) {
	limit, _ = clampPage(limit, 0, 50)
	return s.withdrawals.ListByStatus(ctx, domain.WithdrawalRequested, limit)
}
