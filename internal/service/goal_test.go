package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venus-savings/venus/internal/lock"
	"github.com/venus-savings/venus/internal/metrics"
	"github.com/venus-savings/venus/internal/model"
	"github.com/venus-savings/venus/internal/repository"
	"github.com/venus-savings/venus/internal/repository/memory"
	"github.com/venus-savings/venus/internal/rules"
	"github.com/venus-savings/venus/internal/validation"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type notification struct {
	userID  string
	goalID  string
	penalty decimal.Decimal
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *recordingNotifier) EmergencyWithdrawal(_ context.Context, userID string, goal *model.Goal, penalty decimal.Decimal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{userID: userID, goalID: goal.ID, penalty: penalty})
	return nil
}

type noLock struct{}

func (noLock) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc      *GoalService
	repo     repository.GoalRepository
	notifier *recordingNotifier
	clock    *time.Time
}

func newFixture(t *testing.T, policy rules.Policy, locker lock.Locker) *fixture {
	t.Helper()
	repo := memory.NewGoalRepository()
	notifier := &recordingNotifier{}
	svc := NewGoalService(repo, rules.NewEngine(policy), locker, metrics.NewCollector(), notifier)

	clock := testNow
	svc.now = func() time.Time { return clock }
	return &fixture{svc: svc, repo: repo, notifier: notifier, clock: &clock}
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func dateIn(days int) string {
	return testNow.AddDate(0, 0, days).Format(model.DateLayout)
}

func tripInput() GoalInput {
	return GoalInput{
		Label:            "Trip",
		TargetAmount:     decimal.NewFromInt(1000),
		InitialDeposit:   decimal.NewFromInt(100),
		LockUntil:        dateIn(30),
		EmergencyAllowed: true,
	}
}

func TestGoalService_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())

	goal, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusLocked, goal.Status)
	assert.True(t, goal.CurrentAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 0, goal.WithdrawCount)
	assert.Equal(t, 1, goal.Version)
	assert.NotEmpty(t, goal.ID)

	goal, decision, err := f.svc.Withdraw(ctx, "alice", goal.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusWithdrawn, goal.Status)
	assert.Equal(t, 1, goal.WithdrawCount)
	assert.True(t, goal.PenaltyAmount.IsZero())
	assert.True(t, decision.Emergency)
	assert.Equal(t, 2, goal.Version)

	before, err := f.svc.ByID(ctx, "alice", goal.ID)
	require.NoError(t, err)

	_, _, err = f.svc.Withdraw(ctx, "alice", goal.ID)
	assert.ErrorIs(t, err, rules.ErrAlreadyWithdrawn)

	after, err := f.svc.ByID(ctx, "alice", goal.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected withdrawal leaves state unchanged")
	assert.Len(t, f.notifier.calls, 1)
}

func TestGoalService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())

	cases := map[string]func(in *GoalInput){
		"empty label":       func(in *GoalInput) { in.Label = "  " },
		"zero target":       func(in *GoalInput) { in.TargetAmount = decimal.Zero },
		"negative target":   func(in *GoalInput) { in.TargetAmount = decimal.NewFromInt(-10) },
		"missing lock date": func(in *GoalInput) { in.LockUntil = "" },
		"garbage lock date": func(in *GoalInput) { in.LockUntil = "someday" },
		"negative deposit":  func(in *GoalInput) { in.InitialDeposit = decimal.NewFromInt(-1) },
		"deposit too large": func(in *GoalInput) { in.InitialDeposit = decimal.NewFromInt(1001) },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := tripInput()
			mutate(&in)

			_, err := f.svc.Create(ctx, "alice", in)
			var verr *validation.Error
			assert.True(t, errors.As(err, &verr), "got %v", err)
		})
	}

	goals, err := f.svc.Goals(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, goals, "invalid input persists nothing")
}

func TestGoalService_CreateTrimsLabel(t *testing.T) {
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())
	in := tripInput()
	in.Label = "  Rainy day  "

	goal, err := f.svc.Create(context.Background(), "alice", in)
	require.NoError(t, err)
	assert.Equal(t, "Rainy day", goal.Label)
	assert.Equal(t, dateIn(30), goal.LockUntilDate())
}

func TestGoalService_GoalsNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())

	goals, err := f.svc.Goals(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, goals)
	assert.Empty(t, goals)

	first, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)
	f.advance(time.Minute)
	second, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)

	goals, err = f.svc.Goals(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, second.ID, goals[0].ID)
	assert.Equal(t, first.ID, goals[1].ID)
}

func TestGoalService_OwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())

	goal, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)

	_, err = f.svc.ByID(ctx, "bob", goal.ID)
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)

	label := "hijacked"
	_, err = f.svc.Update(ctx, "bob", goal.ID, GoalPatch{Label: &label})
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)

	_, _, err = f.svc.Withdraw(ctx, "bob", goal.ID)
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)

	_, err = f.svc.Deposit(ctx, "bob", goal.ID, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, "bob", goal.ID), repository.ErrGoalNotFound)

	bobGoals, err := f.svc.Goals(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bobGoals)

	stored, err := f.svc.ByID(ctx, "alice", goal.ID)
	require.NoError(t, err)
	assert.Equal(t, goal, stored)
}

func TestGoalService_ConcurrentWithdraw(t *testing.T) {
	lockers := map[string]lock.Locker{
		"local lock":   lock.NewLocal(),
		"version only": noLock{},
	}

	for name, locker := range lockers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, rules.DefaultPenaltyPolicy(), locker)
			goal, err := f.svc.Create(ctx, "alice", tripInput())
			require.NoError(t, err)

			const workers = 10
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				already   int
			)
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _, err := f.svc.Withdraw(ctx, "alice", goal.ID)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, rules.ErrAlreadyWithdrawn):
						already++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, successes)
			assert.Equal(t, workers-1, already)

			stored, err := f.svc.ByID(ctx, "alice", goal.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, stored.WithdrawCount)
			assert.Equal(t, 2, stored.Version)
		})
	}
}

func TestGoalService_RelockThenSecondBreakIsPenalized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())

	in := tripInput()
	in.InitialDeposit = decimal.RequireFromString("200.00")
	goal, err := f.svc.Create(ctx, "alice", in)
	require.NoError(t, err)

	_, decision, err := f.svc.Withdraw(ctx, "alice", goal.ID)
	require.NoError(t, err)
	assert.True(t, decision.Penalty.IsZero())

	goal, err = f.svc.Relock(ctx, "alice", goal.ID, dateIn(60))
	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusLocked, goal.Status)
	assert.Equal(t, 1, goal.WithdrawCount, "relock keeps break history")

	goal, decision, err = f.svc.Withdraw(ctx, "alice", goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, goal.WithdrawCount)
	assert.True(t, decision.Penalty.Equal(decimal.RequireFromString("20.00")), "got %s", decision.Penalty)
	assert.True(t, goal.PenaltyAmount.Equal(decimal.RequireFromString("20.00")))

	require.Len(t, f.notifier.calls, 2)
	assert.True(t, f.notifier.calls[1].penalty.Equal(decimal.NewFromInt(20)))
}

func TestGoalService_RelockValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())
	goal, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)

	var verr *validation.Error
	_, err = f.svc.Relock(ctx, "alice", goal.ID, dateIn(60))
	assert.True(t, errors.As(err, &verr), "still locked")

	_, _, err = f.svc.Withdraw(ctx, "alice", goal.ID)
	require.NoError(t, err)

	_, err = f.svc.Relock(ctx, "alice", goal.ID, dateIn(0))
	assert.True(t, errors.As(err, &verr), "date must be in the future")

	_, err = f.svc.Relock(ctx, "alice", goal.ID, "nope")
	assert.True(t, errors.As(err, &verr))
}

func TestGoalService_AfterLockDateIsFree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())
	in := tripInput()
	in.EmergencyAllowed = false
	goal, err := f.svc.Create(ctx, "alice", in)
	require.NoError(t, err)

	_, _, err = f.svc.Withdraw(ctx, "alice", goal.ID)
	assert.ErrorIs(t, err, rules.ErrEmergencyNotAllowed)

	f.advance(30 * 24 * time.Hour)

	goal, decision, err := f.svc.Withdraw(ctx, "alice", goal.ID)
	require.NoError(t, err)
	assert.False(t, decision.Emergency)
	assert.Equal(t, model.GoalStatusWithdrawn, goal.Status)
	assert.Equal(t, 0, goal.WithdrawCount)
	assert.True(t, goal.UpdatedAt.Equal(*f.clock))
	assert.Empty(t, f.notifier.calls)
}

func TestGoalService_Deposit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())
	goal, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)

	goal, err = f.svc.Deposit(ctx, "alice", goal.ID, decimal.RequireFromString("250.25"))
	require.NoError(t, err)
	assert.True(t, goal.CurrentAmount.Equal(decimal.RequireFromString("350.25")))

	var verr *validation.Error
	_, err = f.svc.Deposit(ctx, "alice", goal.ID, decimal.Zero)
	assert.True(t, errors.As(err, &verr))

	_, err = f.svc.Deposit(ctx, "alice", goal.ID, decimal.RequireFromString("649.76"))
	assert.True(t, errors.As(err, &verr), "exceeds target")

	goal, err = f.svc.Deposit(ctx, "alice", goal.ID, decimal.RequireFromString("649.75"))
	require.NoError(t, err)
	assert.True(t, goal.CurrentAmount.Equal(goal.TargetAmount))

	_, _, err = f.svc.Withdraw(ctx, "alice", goal.ID)
	require.NoError(t, err)
	_, err = f.svc.Deposit(ctx, "alice", goal.ID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, rules.ErrAlreadyWithdrawn)
}

func TestGoalService_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())
	goal, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)

	f.advance(time.Hour)
	label := "Big trip"
	target := decimal.NewFromInt(2000)
	allowed := false
	goal, err = f.svc.Update(ctx, "alice", goal.ID, GoalPatch{Label: &label, TargetAmount: &target, EmergencyAllowed: &allowed})
	require.NoError(t, err)
	assert.Equal(t, "Big trip", goal.Label)
	assert.True(t, goal.TargetAmount.Equal(target))
	assert.False(t, goal.EmergencyAllowed)
	assert.Equal(t, 2, goal.Version)
	assert.True(t, goal.UpdatedAt.Equal(*f.clock))
	assert.Equal(t, dateIn(30), goal.LockUntilDate(), "omitted fields unchanged")

	var verr *validation.Error
	tooSmall := decimal.NewFromInt(50)
	_, err = f.svc.Update(ctx, "alice", goal.ID, GoalPatch{TargetAmount: &tooSmall})
	assert.True(t, errors.As(err, &verr), "target below current amount")

	empty := ""
	_, err = f.svc.Update(ctx, "alice", goal.ID, GoalPatch{Label: &empty})
	assert.True(t, errors.As(err, &verr))

	bad := "2026-13-45"
	_, err = f.svc.Update(ctx, "alice", goal.ID, GoalPatch{LockUntil: &bad})
	assert.True(t, errors.As(err, &verr))

	stored, err := f.svc.ByID(ctx, "alice", goal.ID)
	require.NoError(t, err)
	assert.Equal(t, goal, stored, "rejected updates persist nothing")
}

func TestGoalService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())
	goal, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "alice", goal.ID), "locked goals can be deleted")
	assert.ErrorIs(t, f.svc.Delete(ctx, "alice", goal.ID), repository.ErrGoalNotFound)
}

func TestGoalService_Summary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())

	a, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)
	in := tripInput()
	in.InitialDeposit = decimal.NewFromInt(300)
	_, err = f.svc.Create(ctx, "alice", in)
	require.NoError(t, err)
	_, _, err = f.svc.Withdraw(ctx, "alice", a.ID)
	require.NoError(t, err)

	s, err := f.svc.Summary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalGoals)
	assert.Equal(t, 1, s.LockedGoals)
	assert.Equal(t, 1, s.WithdrawnGoals)
	assert.True(t, s.TotalLocked.Equal(decimal.NewFromInt(300)))
	assert.True(t, s.TotalWithdrawn.Equal(decimal.NewFromInt(100)))
	assert.True(t, s.TotalPenalties.IsZero())
	assert.Equal(t, 1, s.EmergencyWithdrawals)
}

func TestGoalService_CapPolicyCountsAcrossGoals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.CapPolicy{Limit: 1}, lock.NewLocal())

	a, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)
	other, err := f.svc.Create(ctx, "bob", tripInput())
	require.NoError(t, err)

	_, decision, err := f.svc.Withdraw(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.True(t, decision.Penalty.IsZero())

	_, _, err = f.svc.Withdraw(ctx, "alice", b.ID)
	assert.ErrorIs(t, err, rules.ErrWithdrawLimitReached)

	_, _, err = f.svc.Withdraw(ctx, "bob", other.ID)
	assert.NoError(t, err, "limits are per owner")

	assert.Equal(t, "withdraw:alice", f.svc.withdrawKey("alice", b.ID))
}

func TestGoalService_CapPolicySurvivesDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.CapPolicy{Limit: 1}, lock.NewLocal())

	a, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)

	_, _, err = f.svc.Withdraw(ctx, "alice", a.ID)
	require.NoError(t, err)
	_, _, err = f.svc.Withdraw(ctx, "alice", b.ID)
	require.ErrorIs(t, err, rules.ErrWithdrawLimitReached)

	require.NoError(t, f.svc.Delete(ctx, "alice", a.ID))

	_, _, err = f.svc.Withdraw(ctx, "alice", b.ID)
	assert.ErrorIs(t, err, rules.ErrWithdrawLimitReached, "deleting a goal does not reset the owner's count")

	got, err := f.svc.ByID(ctx, "alice", b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusLocked, got.Status)
	assert.Equal(t, 0, got.WithdrawCount)
}

type conflictingRepo struct {
	repository.GoalRepository
	updates int
}

func (r *conflictingRepo) Update(context.Context, *model.Goal, int) error {
	r.updates++
	return repository.ErrVersionConflict
}

func TestGoalService_GivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rules.DefaultPenaltyPolicy(), lock.NewLocal())
	goal, err := f.svc.Create(ctx, "alice", tripInput())
	require.NoError(t, err)

	repo := &conflictingRepo{GoalRepository: f.repo}
	f.svc.repo = repo

	_, _, err = f.svc.Withdraw(ctx, "alice", goal.ID)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.Equal(t, maxAttempts, repo.updates)
}
