// Package metering converts between wallet balance and tutoring time.
//
// The rate is fixed at $10 per hour, so $1 buys 6 minutes (360 seconds).
// Balance is only ever converted in whole minutes.
package metering

import (
	"math"

	"github.com/shopspring/decimal"
)

const SecondsPerHour = 3600

var (
	RatePerHour      = decimal.NewFromInt(10)
	minutesPerDollar = decimal.NewFromInt(6)
)

// MinutesFromBalance returns floor(balance * 6), never negative.
func MinutesFromBalance(balance decimal.Decimal) int64 {
	if !balance.IsPositive() {
		return 0
	}
	return balance.Mul(minutesPerDollar).Floor().IntPart()
}

// SecondsFromBalance returns the session seconds a balance covers.
func SecondsFromBalance(balance decimal.Decimal) int64 {
	return MinutesFromBalance(balance) * 60
}

// CostForSeconds returns (seconds/3600)*10 rounded to cents.
func CostForSeconds(seconds int64) decimal.Decimal {
	if seconds <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(seconds).
		Mul(RatePerHour).
		Div(decimal.NewFromInt(SecondsPerHour)).
		Round(2)
}

// SecondsForHours converts a booked duration to whole seconds, rounding half up.
func SecondsForHours(hours float64) int64 {
	if hours <= 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return 0
	}
	return int64(math.Round(hours * SecondsPerHour))
}
