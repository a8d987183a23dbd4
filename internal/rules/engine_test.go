package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venus-savings/venus/internal/model"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func lockedGoal(lockUntil time.Time, emergencyAllowed bool) model.Goal {
	return model.Goal{
		ID:               "goal-1",
		UserID:           "user-1",
		Label:            "Trip",
		TargetAmount:     decimal.NewFromInt(1000),
		CurrentAmount:    decimal.NewFromInt(200),
		LockUntil:        lockUntil,
		Status:           model.GoalStatusLocked,
		EmergencyAllowed: emergencyAllowed,
		PenaltyAmount:    decimal.Zero,
		Version:          1,
	}
}

func TestDecide_AlreadyWithdrawn(t *testing.T) {
	e := NewEngine(DefaultPenaltyPolicy())
	g := lockedGoal(now.AddDate(0, 0, 30), true)
	g.Status = model.GoalStatusWithdrawn

	d, err := e.Decide(g, now, History{})

	assert.ErrorIs(t, err, ErrAlreadyWithdrawn)
	assert.Equal(t, g, d.Goal)
}

func TestDecide_AfterLockDateAlwaysFree(t *testing.T) {
	e := NewEngine(DefaultPenaltyPolicy())

	for _, allowed := range []bool{true, false} {
		g := lockedGoal(now.AddDate(0, 0, -1), allowed)
		g.WithdrawCount = 3

		d, err := e.Decide(g, now, History{})

		require.NoError(t, err)
		assert.Equal(t, model.GoalStatusWithdrawn, d.Goal.Status)
		assert.False(t, d.Emergency)
		assert.True(t, d.Penalty.IsZero())
		assert.Equal(t, 3, d.Goal.WithdrawCount, "scheduled withdrawal is not an emergency use")
	}
}

func TestDecide_OnLockDateIsUnlocked(t *testing.T) {
	e := NewEngine(DefaultPenaltyPolicy())
	g := lockedGoal(now, false)

	d, err := e.Decide(g, now, History{})

	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusWithdrawn, d.Goal.Status)
}

func TestDecide_EarlyWithoutEmergency(t *testing.T) {
	e := NewEngine(DefaultPenaltyPolicy())
	g := lockedGoal(now.AddDate(0, 0, 30), false)

	d, err := e.Decide(g, now, History{})

	assert.ErrorIs(t, err, ErrEmergencyNotAllowed)
	assert.Equal(t, model.GoalStatusLocked, d.Goal.Status)
	assert.Equal(t, 0, d.Goal.WithdrawCount)
}

func TestDecide_FirstEmergencyIsFree(t *testing.T) {
	e := NewEngine(DefaultPenaltyPolicy())
	g := lockedGoal(now.AddDate(0, 0, 30), true)

	d, err := e.Decide(g, now, History{})

	require.NoError(t, err)
	assert.True(t, d.Emergency)
	assert.Equal(t, 1, d.Goal.WithdrawCount)
	assert.True(t, d.Goal.PenaltyAmount.IsZero())
	assert.Equal(t, model.GoalStatusWithdrawn, d.Goal.Status)
}

func TestDecide_SecondEmergencyChargesTenPercent(t *testing.T) {
	e := NewEngine(DefaultPenaltyPolicy())
	g := lockedGoal(now.AddDate(0, 0, 30), true)
	g.WithdrawCount = 1

	d, err := e.Decide(g, now, History{})

	require.NoError(t, err)
	assert.Equal(t, 2, d.Goal.WithdrawCount)
	assert.True(t, d.Penalty.Equal(decimal.NewFromInt(20)))
	assert.True(t, d.Goal.PenaltyAmount.Equal(decimal.RequireFromString("20.00")))
}

func TestDecide_PenaltyAccumulates(t *testing.T) {
	e := NewEngine(DefaultPenaltyPolicy())
	g := lockedGoal(now.AddDate(0, 0, 30), true)
	g.WithdrawCount = 2
	g.PenaltyAmount = decimal.RequireFromString("20.00")
	g.CurrentAmount = decimal.RequireFromString("123.45")

	d, err := e.Decide(g, now, History{})

	require.NoError(t, err)
	assert.True(t, d.Penalty.Equal(decimal.RequireFromString("12.35")), "12.345 rounds half up, got %s", d.Penalty)
	assert.True(t, d.Goal.PenaltyAmount.Equal(decimal.RequireFromString("32.35")))
}

func TestDecide_InputGoalUntouched(t *testing.T) {
	e := NewEngine(DefaultPenaltyPolicy())
	g := lockedGoal(now.AddDate(0, 0, 30), true)
	before := g

	_, err := e.Decide(g, now, History{})

	require.NoError(t, err)
	assert.Equal(t, before, g)
}

func TestCapPolicy(t *testing.T) {
	e := NewEngine(CapPolicy{Limit: 3})
	g := lockedGoal(now.AddDate(0, 0, 30), true)
	g.WithdrawCount = 5

	d, err := e.Decide(g, now, History{EmergencyWithdrawals: 2})
	require.NoError(t, err)
	assert.True(t, d.Penalty.IsZero())
	assert.Equal(t, 6, d.Goal.WithdrawCount)

	d, err = e.Decide(g, now, History{EmergencyWithdrawals: 3})
	assert.ErrorIs(t, err, ErrWithdrawLimitReached)
	assert.Equal(t, model.GoalStatusLocked, d.Goal.Status)
	assert.Equal(t, 5, d.Goal.WithdrawCount)
}

func TestCapPolicy_AfterLockDateIgnoresLimit(t *testing.T) {
	e := NewEngine(CapPolicy{Limit: 1})
	g := lockedGoal(now.AddDate(0, 0, -1), true)

	d, err := e.Decide(g, now, History{EmergencyWithdrawals: 10})

	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusWithdrawn, d.Goal.Status)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("penalty", 1, decimal.RequireFromString("0.10"), 0)
	require.NoError(t, err)
	assert.Equal(t, PolicyPenalty, p.Name())
	assert.False(t, p.OwnerWide())

	p, err = NewPolicy("cap", 0, decimal.Zero, 3)
	require.NoError(t, err)
	assert.Equal(t, PolicyCap, p.Name())
	assert.True(t, p.OwnerWide())

	_, err = NewPolicy("cap", 0, decimal.Zero, 0)
	assert.Error(t, err)

	_, err = NewPolicy("both", 1, decimal.Zero, 3)
	assert.Error(t, err)
}
