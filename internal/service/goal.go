package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/venus-savings/venus/internal/lock"
	"github.com/venus-savings/venus/internal/metrics"
	"github.com/venus-savings/venus/internal/model"
	"github.com/venus-savings/venus/internal/repository"
	"github.com/venus-savings/venus/internal/rules"
	"github.com/venus-savings/venus/internal/validation"
)

// maxAttempts bounds read-decide-write cycles lost to concurrent writers.
const maxAttempts = 3

type GoalInput struct {
	Label            string
	TargetAmount     decimal.Decimal
	LockUntil        string
	EmergencyAllowed bool
	InitialDeposit   decimal.Decimal
}

// GoalPatch holds the editable fields; nil means unchanged.
type GoalPatch struct {
	Label            *string
	TargetAmount     *decimal.Decimal
	LockUntil        *string
	EmergencyAllowed *bool
}

// WithdrawalNotifier is told about committed emergency withdrawals.
type WithdrawalNotifier interface {
	EmergencyWithdrawal(ctx context.Context, userID string, goal *model.Goal, penalty decimal.Decimal) error
}

type GoalService struct {
	repo     repository.GoalRepository
	engine   *rules.Engine
	locker   lock.Locker
	metrics  *metrics.Collector
	notifier WithdrawalNotifier
	now      func() time.Time
}

func NewGoalService(
	repo repository.GoalRepository,
	engine *rules.Engine,
	locker lock.Locker,
	metrics *metrics.Collector,
	notifier WithdrawalNotifier,
) *GoalService {
	return &GoalService{
		repo:     repo,
		engine:   engine,
		locker:   locker,
		metrics:  metrics,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *GoalService) Goals(ctx context.Context, userID string) ([]*model.Goal, error) {
	goals, err := s.repo.Goals(ctx, userID)
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []*model.Goal{}
	}
	return goals, nil
}

func (s *GoalService) ByID(ctx context.Context, userID, goalID string) (*model.Goal, error) {
	return s.repo.ByID(ctx, userID, goalID)
}

func (s *GoalService) Create(ctx context.Context, userID string, in GoalInput) (*model.Goal, error) {
	label := strings.TrimSpace(in.Label)
	err := validation.ValidateLabel(label)
	if err != nil {
		return nil, err
	}

	err = validation.ValidateTargetAmount(in.TargetAmount)
	if err != nil {
		return nil, err
	}

	lockUntil, err := validation.ParseLockUntil(in.LockUntil)
	if err != nil {
		return nil, err
	}

	err = validation.ValidateInitialDeposit(in.InitialDeposit, in.TargetAmount)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	goal := &model.Goal{
		ID:               uuid.New().String(),
		UserID:           userID,
		Label:            label,
		TargetAmount:     in.TargetAmount,
		CurrentAmount:    in.InitialDeposit,
		LockUntil:        lockUntil,
		Status:           model.GoalStatusLocked,
		EmergencyAllowed: in.EmergencyAllowed,
		WithdrawCount:    0,
		PenaltyAmount:    decimal.Zero,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.repo.Create(ctx, goal)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	s.metrics.GoalCreated()
	slog.Info("goal created", "user_id", userID, "goal_id", goal.ID, "lock_until", goal.LockUntilDate())
	return goal, nil
}

func (s *GoalService) Update(ctx context.Context, userID, goalID string, patch GoalPatch) (*model.Goal, error) {
	var lockUntil time.Time
	if patch.LockUntil != nil {
		parsed, err := validation.ParseLockUntil(*patch.LockUntil)
		if err != nil {
			return nil, err
		}
		lockUntil = parsed
	}

	return s.mutate(ctx, userID, goalID, func(ctx context.Context, goal *model.Goal, now time.Time) error {
		if patch.Label != nil {
			goal.Label = strings.TrimSpace(*patch.Label)
		}
		if patch.TargetAmount != nil {
			goal.TargetAmount = *patch.TargetAmount
		}
		if patch.LockUntil != nil {
			goal.LockUntil = lockUntil
		}
		if patch.EmergencyAllowed != nil {
			goal.EmergencyAllowed = *patch.EmergencyAllowed
		}
		return validation.ValidateGoal(goal)
	})
}

func (s *GoalService) Delete(ctx context.Context, userID, goalID string) error {
	err := s.repo.Delete(ctx, userID, goalID)
	if err != nil {
		return err
	}

	slog.Info("goal deleted", "user_id", userID, "goal_id", goalID)
	return nil
}

// Withdraw runs the rule engine against the stored goal and commits its
// decision. Concurrent withdrawals of one goal yield exactly one success.
func (s *GoalService) Withdraw(ctx context.Context, userID, goalID string) (*model.Goal, rules.Decision, error) {
	var (
		goal     *model.Goal
		decision rules.Decision
	)

	err := s.locker.WithLock(ctx, s.withdrawKey(userID, goalID), func(ctx context.Context) error {
		var err error
		goal, err = s.mutate(ctx, userID, goalID, func(ctx context.Context, g *model.Goal, now time.Time) error {
			history := rules.History{}
			if s.engine.Policy().OwnerWide() {
				count, err := s.repo.EmergencyWithdrawals(ctx, userID)
				if err != nil {
					return err
				}
				history.EmergencyWithdrawals = count
			}

			d, err := s.engine.Decide(*g, now, history)
			if err != nil {
				return err
			}
			*g = d.Goal
			decision = d
			return nil
		})
		return err
	})
	if err != nil {
		s.recordRejection(err)
		return nil, rules.Decision{}, err
	}

	s.metrics.Withdrawal(decision.Emergency, decision.Penalty)
	slog.Info("goal withdrawn",
		"user_id", userID,
		"goal_id", goalID,
		"emergency", decision.Emergency,
		"withdraw_count", goal.WithdrawCount,
		"penalty", decision.Penalty.StringFixed(2),
	)

	if decision.Emergency && s.notifier != nil {
		err = s.notifier.EmergencyWithdrawal(ctx, userID, goal, decision.Penalty)
		if err != nil {
			slog.Warn("failed to send withdrawal notification", "error", err, "user_id", userID, "goal_id", goalID)
		}
	}

	return goal, decision, nil
}

// Relock locks a withdrawn goal again until a future date. The break history
// stays on the goal, so a later early withdrawal counts as a repeat break.
func (s *GoalService) Relock(ctx context.Context, userID, goalID, lockUntil string) (*model.Goal, error) {
	until, err := validation.ParseLockUntil(lockUntil)
	if err != nil {
		return nil, err
	}

	goal, err := s.mutate(ctx, userID, goalID, func(ctx context.Context, goal *model.Goal, now time.Time) error {
		if goal.IsLocked() {
			return &validation.Error{Field: "status", Message: "goal is already locked"}
		}
		if !until.After(now) {
			return &validation.Error{Field: "lockUntil", Message: "new lock date must be in the future"}
		}
		goal.Status = model.GoalStatusLocked
		goal.LockUntil = until
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("goal relocked", "user_id", userID, "goal_id", goalID, "lock_until", goal.LockUntilDate())
	return goal, nil
}

// Deposit adds amount to a locked goal without passing its target.
func (s *GoalService) Deposit(ctx context.Context, userID, goalID string, amount decimal.Decimal) (*model.Goal, error) {
	err := validation.ValidateDepositAmount(amount)
	if err != nil {
		return nil, err
	}

	goal, err := s.mutate(ctx, userID, goalID, func(ctx context.Context, goal *model.Goal, now time.Time) error {
		if !goal.IsLocked() {
			return rules.ErrAlreadyWithdrawn
		}
		next := goal.CurrentAmount.Add(amount)
		if next.GreaterThan(goal.TargetAmount) {
			return &validation.Error{Field: "amount", Message: "deposit would exceed the target amount"}
		}
		goal.CurrentAmount = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Deposit()
	slog.Info("deposit recorded", "user_id", userID, "goal_id", goalID, "amount", amount.StringFixed(2))
	return goal, nil
}

func (s *GoalService) Summary(ctx context.Context, userID string) (*model.Summary, error) {
	goals, err := s.repo.Goals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return model.NewSummary(goals), nil
}

// mutate re-reads the goal and applies change until the versioned update
// lands. Nothing is written when change returns an error.
func (s *GoalService) mutate(
	ctx context.Context,
	userID, goalID string,
	change func(ctx context.Context, goal *model.Goal, now time.Time) error,
) (*model.Goal, error) {
	for attempt := 1; ; attempt++ {
		goal, err := s.repo.ByID(ctx, userID, goalID)
		if err != nil {
			return nil, err
		}

		expected := goal.Version
		now := s.now().UTC()

		err = change(ctx, goal, now)
		if err != nil {
			return nil, err
		}
		goal.UpdatedAt = now

		err = s.repo.Update(ctx, goal, expected)
		if errors.Is(err, repository.ErrVersionConflict) && attempt < maxAttempts {
			s.metrics.VersionRetry()
			slog.Debug("goal changed concurrently, retrying", "goal_id", goalID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		return goal, nil
	}
}

// withdrawKey serializes per goal, or per owner when the policy reads
// history across the owner's goals.
func (s *GoalService) withdrawKey(userID, goalID string) string {
	if s.engine.Policy().OwnerWide() {
		return "withdraw:" + userID
	}
	return "withdraw:" + userID + ":" + goalID
}

func (s *GoalService) recordRejection(err error) {
	switch {
	case errors.Is(err, rules.ErrAlreadyWithdrawn):
		s.metrics.WithdrawalRejected("already_withdrawn")
	case errors.Is(err, rules.ErrEmergencyNotAllowed):
		s.metrics.WithdrawalRejected("emergency_not_allowed")
	case errors.Is(err, rules.ErrWithdrawLimitReached):
		s.metrics.WithdrawalRejected("limit_reached")
	}
}
