// Package rewards computes staking rewards for claimed airdrops.
package rewards

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tgeclaim/engine/internal/store"
)

var (
	// ErrInvalidDuration is returned for a lock period outside 1M/3M/6M.
	ErrInvalidDuration = errors.New("invalid staking duration")
	// ErrNegativeInput is returned when a principal or APR is below zero.
	ErrNegativeInput = errors.New("principal and apr must not be negative")
)

var (
	monthsPerYear = decimal.NewFromInt(12)
	daysPerYear   = decimal.NewFromInt(365)
	hundred       = decimal.NewFromInt(100)
)

// Months maps a lock period to whole months.
func Months(d store.Duration) (int64, error) {
	switch d {
	case store.Duration1M:
		return 1, nil
	case store.Duration3M:
		return 3, nil
	case store.Duration6M:
		return 6, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, d)
	}
}

// EstimateReward returns principal * (apr/100/12) * months, rounded half-up
// to the cent. The math is done in decimal so 85 at 12% for 3M is exactly 2.55.
func EstimateReward(principal, aprPercent float64, d store.Duration) (float64, error) {
	months, err := Months(d)
	if err != nil {
		return 0, err
	}
	if principal < 0 || aprPercent < 0 {
		return 0, ErrNegativeInput
	}

	reward := decimal.NewFromFloat(principal).
		Mul(decimal.NewFromFloat(aprPercent)).
		Mul(decimal.NewFromInt(months)).
		Div(hundred.Mul(monthsPerYear)).
		Round(2)

	return reward.InexactFloat64(), nil
}

// Accrued returns the rewards earned by a stake after whole days elapsed
// since start, capped at the full-term estimate.
func Accrued(amount, aprPercent float64, start, now time.Time, capAt float64) float64 {
	days := int64(now.Sub(start) / (24 * time.Hour))
	if days <= 0 {
		return 0
	}

	daily := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(aprPercent)).
		Div(hundred).
		Div(daysPerYear)
	accrued := daily.Mul(decimal.NewFromInt(days))

	limit := decimal.NewFromFloat(capAt)
	if accrued.GreaterThan(limit) {
		accrued = limit
	}

	return accrued.Round(2).InexactFloat64()
}

// Sum adds values in decimal and rounds the total to the cent.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}
