// Package rules decides whether a savings goal may be withdrawn and what the
// withdrawal does to it. Everything here is a pure function of its inputs.
package rules

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/venus-savings/venus/internal/model"
)

var (
	ErrAlreadyWithdrawn     = errors.New("goal has already been withdrawn")
	ErrEmergencyNotAllowed  = errors.New("this goal does not allow emergency withdrawal before its lock date")
	ErrWithdrawLimitReached = errors.New("emergency withdrawal limit reached")
)

// History carries the owner-wide facts a policy may need.
type History struct {
	// EmergencyWithdrawals is the owner's total across all goals.
	EmergencyWithdrawals int
}

// Decision is the outcome of an accepted withdrawal.
type Decision struct {
	Goal      model.Goal
	Emergency bool
	Penalty   decimal.Decimal
}

type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// Decide evaluates a withdrawal of goal at now. On error the goal must be
// left as it is.
func (e *Engine) Decide(goal model.Goal, now time.Time, history History) (Decision, error) {
	if goal.Status == model.GoalStatusWithdrawn {
		return Decision{Goal: goal}, ErrAlreadyWithdrawn
	}

	next := goal

	if goal.Unlocked(now) {
		next.Status = model.GoalStatusWithdrawn
		return Decision{Goal: next, Penalty: decimal.Zero}, nil
	}

	if !goal.EmergencyAllowed {
		return Decision{Goal: goal}, ErrEmergencyNotAllowed
	}

	next.WithdrawCount++

	penalty, err := e.policy.Charge(next, history)
	if err != nil {
		return Decision{Goal: goal}, err
	}

	next.PenaltyAmount = next.PenaltyAmount.Add(penalty)
	next.Status = model.GoalStatusWithdrawn

	return Decision{Goal: next, Emergency: true, Penalty: penalty}, nil
}

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
