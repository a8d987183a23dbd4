package validation

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/venus-savings/venus/internal/model"
)

const maxLabelLength = 100

// ValidateLabel checks the goal display name.
func ValidateLabel(label string) error {
	trimmed := strings.TrimSpace(label)

	if trimmed == "" {
		return newError("label", "label is required")
	}

	if utf8.RuneCountInString(trimmed) > maxLabelLength {
		return newError("label", "label is too long (max 100 characters)")
	}

	return nil
}

func ValidateTargetAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return newError("targetAmount", "amount must be a positive number")
	}
	return nil
}

// ValidateInitialDeposit requires 0 <= deposit <= target.
func ValidateInitialDeposit(deposit, target decimal.Decimal) error {
	if deposit.IsNegative() {
		return newError("initialDeposit", "initial deposit cannot be negative")
	}
	if deposit.GreaterThan(target) {
		return newError("initialDeposit", "initial deposit cannot exceed the target amount")
	}
	return nil
}

func ValidateDepositAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return newError("amount", "deposit must be a positive number")
	}
	return nil
}

// ParseLockUntil accepts YYYY-MM-DD or RFC 3339 and returns UTC midnight of the
// calendar date as written. An RFC 3339 offset never moves the date.
func ParseLockUntil(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, newError("lockUntil", "lock date is required")
	}

	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, newError("lockUntil", "lock date must be a date like 2026-01-31")
		}
	}

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ValidateGoal re-checks the invariants that every stored goal must satisfy.
func ValidateGoal(g *model.Goal) error {
	err := ValidateLabel(g.Label)
	if err != nil {
		return err
	}

	err = ValidateTargetAmount(g.TargetAmount)
	if err != nil {
		return err
	}

	if g.CurrentAmount.IsNegative() {
		return newError("currentAmount", "saved amount cannot be negative")
	}

	if g.CurrentAmount.GreaterThan(g.TargetAmount) {
		return newError("targetAmount", "target amount cannot be below the amount already saved")
	}

	if g.LockUntil.IsZero() {
		return newError("lockUntil", "lock date is required")
	}

	return nil
}
