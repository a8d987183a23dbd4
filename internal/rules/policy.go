package rules

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/venus-savings/venus/internal/model"
)

const (
	PolicyPenalty = "penalty"
	PolicyCap     = "cap"
)

// Policy prices or refuses an early withdrawal. Charge receives the goal with
// WithdrawCount already incremented for the withdrawal being decided.
type Policy interface {
	Name() string
	Charge(goal model.Goal, history History) (decimal.Decimal, error)
	// OwnerWide is true when Charge reads History, so withdrawals must be
	// serialized per owner rather than per goal.
	OwnerWide() bool
}

// PenaltyPolicy lets a goal be broken FreeBreaks times for free and charges
// Rate of the saved amount on every later break.
type PenaltyPolicy struct {
	FreeBreaks int
	Rate       decimal.Decimal
}

func DefaultPenaltyPolicy() PenaltyPolicy {
	return PenaltyPolicy{
		FreeBreaks: 1,
		Rate:       decimal.RequireFromString("0.10"),
	}
}

func (p PenaltyPolicy) Name() string { return PolicyPenalty }

func (p PenaltyPolicy) OwnerWide() bool { return false }

func (p PenaltyPolicy) Charge(goal model.Goal, _ History) (decimal.Decimal, error) {
	if goal.WithdrawCount <= p.FreeBreaks {
		return decimal.Zero, nil
	}
	return Round2(goal.CurrentAmount.Mul(p.Rate)), nil
}

// CapPolicy refuses early withdrawals once the owner has used Limit of them
// across all goals. Accepted withdrawals carry no penalty.
type CapPolicy struct {
	Limit int
}

func (p CapPolicy) Name() string { return PolicyCap }

func (p CapPolicy) OwnerWide() bool { return true }

func (p CapPolicy) Charge(_ model.Goal, history History) (decimal.Decimal, error) {
	if history.EmergencyWithdrawals >= p.Limit {
		return decimal.Zero, ErrWithdrawLimitReached
	}
	return decimal.Zero, nil
}

// NewPolicy builds the named policy from its settings.
func NewPolicy(name string, freeBreaks int, rate decimal.Decimal, limit int) (Policy, error) {
	switch name {
	case PolicyPenalty, "":
		if freeBreaks < 0 || rate.IsNegative() {
			return nil, fmt.Errorf("invalid penalty policy: free breaks %d, rate %s", freeBreaks, rate)
		}
		return PenaltyPolicy{FreeBreaks: freeBreaks, Rate: rate}, nil
	case PolicyCap:
		if limit < 1 {
			return nil, fmt.Errorf("invalid cap policy: limit %d", limit)
		}
		return CapPolicy{Limit: limit}, nil
	default:
		return nil, fmt.Errorf("unknown withdraw policy %q", name)
	}
}
