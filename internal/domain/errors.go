package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrExceedsLimit      = errors.New("amount exceeds withdrawal limit")
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrUnauthorized      = errors.New("not allowed for this user")

	// ErrInsufficientPendingFunds also matches ErrInsufficientFunds.
	ErrInsufficientPendingFunds = fmt.Errorf("%w: not enough pending funds", ErrInsufficientFunds)

	ErrUpstreamUnavailable = errors.New("tutor service unavailable")
	ErrUpstreamConfig      = fmt.Errorf("%w: not configured", ErrUpstreamUnavailable)
	ErrUpstreamQuota       = fmt.Errorf("%w: quota exhausted", ErrUpstreamUnavailable)
	ErrUpstreamGeneric     = fmt.Errorf("%w: request failed", ErrUpstreamUnavailable)
)

// InsufficientFundsError carries the balance seen and the amount required.
type InsufficientFundsError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("Insufficient funds. Balance: %s, Required: %s", FormatMoney(e.Balance), FormatMoney(e.Required))
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// FormatMoney renders an amount as "$12.50".
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
