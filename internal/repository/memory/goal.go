// Package memory holds map-backed repositories for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/venus-savings/venus/internal/model"
	"github.com/venus-savings/venus/internal/repository"
)

// GoalRepository keeps copies of goals so callers never share state with
// the store. Withdraw counts of deleted goals move to retired.
type GoalRepository struct {
	mu      sync.RWMutex
	goals   map[string]model.Goal
	retired map[string]int
}

var _ repository.GoalRepository = (*GoalRepository)(nil)

func NewGoalRepository() *GoalRepository {
	return &GoalRepository{
		goals:   make(map[string]model.Goal),
		retired: make(map[string]int),
	}
}

func (r *GoalRepository) Create(_ context.Context, goal *model.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goals[goal.ID] = *goal
	return nil
}

func (r *GoalRepository) ByID(_ context.Context, userID, goalID string) (*model.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.goals[goalID]
	if !ok || g.UserID != userID {
		return nil, repository.ErrGoalNotFound
	}
	return &g, nil
}

func (r *GoalRepository) Goals(_ context.Context, userID string) ([]*model.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	goals := []*model.Goal{}
	for _, g := range r.goals {
		if g.UserID == userID {
			g := g
			goals = append(goals, &g)
		}
	}
	sort.Slice(goals, func(i, j int) bool {
		if goals[i].CreatedAt.Equal(goals[j].CreatedAt) {
			return goals[i].ID > goals[j].ID
		}
		return goals[i].CreatedAt.After(goals[j].CreatedAt)
	})
	return goals, nil
}

func (r *GoalRepository) EmergencyWithdrawals(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := r.retired[userID]
	for _, g := range r.goals {
		if g.UserID == userID {
			total += g.WithdrawCount
		}
	}
	return total, nil
}

func (r *GoalRepository) Update(_ context.Context, goal *model.Goal, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.goals[goal.ID]
	if !ok || stored.UserID != goal.UserID {
		return repository.ErrGoalNotFound
	}
	if stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}

	updated := *goal
	updated.Version = expectedVersion + 1
	updated.CreatedAt = stored.CreatedAt
	r.goals[goal.ID] = updated
	goal.Version = updated.Version
	return nil
}

func (r *GoalRepository) Delete(_ context.Context, userID, goalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.goals[goalID]
	if !ok || g.UserID != userID {
		return repository.ErrGoalNotFound
	}
	r.retired[userID] += g.WithdrawCount
	delete(r.goals, goalID)
	return nil
}
