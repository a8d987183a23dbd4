package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/venus-savings/venus/internal/model"
)

// GoalRepository persists goals. Every lookup and mutation is scoped by the
// owning user; a goal owned by someone else reads as ErrGoalNotFound.
type GoalRepository interface {
	Create(ctx context.Context, goal *model.Goal) error
	ByID(ctx context.Context, userID, goalID string) (*model.Goal, error)
	// Goals returns the user's goals, most recently created first.
	Goals(ctx context.Context, userID string) ([]*model.Goal, error)
	// EmergencyWithdrawals sums withdraw_count over all of the user's goals,
	// deleted ones included.
	EmergencyWithdrawals(ctx context.Context, userID string) (int, error)
	// Update stores goal only if the stored version still equals
	// expectedVersion, then sets goal.Version to expectedVersion+1.
	Update(ctx context.Context, goal *model.Goal, expectedVersion int) error
	// Delete hides the goal from every other method except
	// EmergencyWithdrawals.
	Delete(ctx context.Context, userID, goalID string) error
}

const goalColumns = `id, user_id, label, target_amount, current_amount, lock_until, status,
	emergency_allowed, withdraw_count, penalty_amount, version, created_at, updated_at`

type goalRepository struct {
	db *sqlx.DB
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(ctx context.Context, goal *model.Goal) error {
	query := `INSERT INTO goals (id, user_id, label, target_amount, current_amount, lock_until, status,
	                             emergency_allowed, withdraw_count, penalty_amount, version, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		goal.ID,
		goal.UserID,
		goal.Label,
		goal.TargetAmount,
		goal.CurrentAmount,
		goal.LockUntil,
		goal.Status,
		goal.EmergencyAllowed,
		goal.WithdrawCount,
		goal.PenaltyAmount,
		goal.Version,
		goal.CreatedAt,
		goal.UpdatedAt,
	)

	return Unavailable(err)
}

func (r *goalRepository) ByID(ctx context.Context, userID, goalID string) (*model.Goal, error) {
	goal := &model.Goal{}
	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, goal, query, goalID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, Unavailable(err)
	}

	return goal, nil
}

func (r *goalRepository) Goals(ctx context.Context, userID string) ([]*model.Goal, error) {
	goals := []*model.Goal{}
	query := `SELECT ` + goalColumns + ` FROM goals
	          WHERE user_id = $1 AND deleted_at IS NULL
	          ORDER BY created_at DESC, id DESC`

	err := r.db.SelectContext(ctx, &goals, query, userID)
	if err != nil {
		return nil, Unavailable(err)
	}

	return goals, nil
}

func (r *goalRepository) EmergencyWithdrawals(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COALESCE(SUM(withdraw_count), 0) FROM goals WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, Unavailable(err)
}

func (r *goalRepository) Update(ctx context.Context, goal *model.Goal, expectedVersion int) error {
	query := `UPDATE goals
	          SET label = $1, target_amount = $2, current_amount = $3, lock_until = $4, status = $5,
	              emergency_allowed = $6, withdraw_count = $7, penalty_amount = $8, version = $9, updated_at = $10
	          WHERE id = $11 AND user_id = $12 AND version = $13 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query,
		goal.Label,
		goal.TargetAmount,
		goal.CurrentAmount,
		goal.LockUntil,
		goal.Status,
		goal.EmergencyAllowed,
		goal.WithdrawCount,
		goal.PenaltyAmount,
		expectedVersion+1,
		goal.UpdatedAt,
		goal.ID,
		goal.UserID,
		expectedVersion,
	)
	if err != nil {
		return Unavailable(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return Unavailable(err)
	}

	if rows == 0 {
		return r.missOrConflict(ctx, goal.UserID, goal.ID)
	}

	goal.Version = expectedVersion + 1
	return nil
}

// missOrConflict explains why a versioned update matched no row.
func (r *goalRepository) missOrConflict(ctx context.Context, userID, goalID string) error {
	var count int
	query := `SELECT COUNT(*) FROM goals WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, goalID, userID).Scan(&count)
	if err != nil {
		return Unavailable(err)
	}
	if count == 0 {
		return ErrGoalNotFound
	}
	return ErrVersionConflict
}

func (r *goalRepository) Delete(ctx context.Context, userID, goalID string) error {
	query := `UPDATE goals SET deleted_at = $1 WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), goalID, userID)

	if err != nil {
		return Unavailable(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return Unavailable(err)
	}

	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}
