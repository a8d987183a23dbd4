package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venus-savings/venus/internal/model"
	"github.com/venus-savings/venus/internal/repository"
)

func TestGoalDocumentRoundTrip(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	g := &model.Goal{
		ID:               "g1",
		UserID:           "alice",
		Label:            "Laptop",
		TargetAmount:     decimal.RequireFromString("1500.00"),
		CurrentAmount:    decimal.RequireFromString("123.45"),
		LockUntil:        time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:           model.GoalStatusWithdrawn,
		EmergencyAllowed: true,
		WithdrawCount:    2,
		PenaltyAmount:    decimal.RequireFromString("12.35"),
		Version:          4,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	doc := toDocument(g)
	assert.Equal(t, "123.45", doc.CurrentAmount)

	back, err := doc.toModel()
	require.NoError(t, err)
	assert.True(t, back.PenaltyAmount.Equal(g.PenaltyAmount))
	assert.True(t, back.TargetAmount.Equal(g.TargetAmount))
	assert.Equal(t, g.Status, back.Status)
	assert.Equal(t, g.Version, back.Version)
	assert.True(t, back.LockUntil.Equal(g.LockUntil))
}

func TestGoalDocument_BadAmount(t *testing.T) {
	doc := goalDocument{TargetAmount: "lots", CurrentAmount: "0", PenaltyAmount: "0"}
	_, err := doc.toModel()
	assert.Error(t, err)
}

// Runs against a live server only when VENUS_TEST_MONGO_URI is set.
func TestGoalRepository_Integration(t *testing.T) {
	uri := os.Getenv("VENUS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("VENUS_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	client, db, err := Connect(ctx, uri, "venus_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	users := NewUserRepository(db)
	goals := NewGoalRepository(db)
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, users.Create(ctx, &model.User{ID: "alice", Email: "Alice@Example.com", PasswordHash: "x", CreatedAt: now}))
	assert.ErrorIs(t, users.Create(ctx, &model.User{ID: "other", Email: "alice@example.com", PasswordHash: "x", CreatedAt: now}), repository.ErrDuplicateEmail)

	g := &model.Goal{
		ID: "g1", UserID: "alice", Label: "Trip",
		TargetAmount: decimal.NewFromInt(1000), CurrentAmount: decimal.NewFromInt(200), PenaltyAmount: decimal.Zero,
		LockUntil: now.AddDate(0, 1, 0), Status: model.GoalStatusLocked, EmergencyAllowed: true,
		Version: 1, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, goals.Create(ctx, g))

	_, err = goals.ByID(ctx, "bob", "g1")
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)

	g.Status = model.GoalStatusWithdrawn
	g.WithdrawCount = 1
	require.NoError(t, goals.Update(ctx, g, 1))
	assert.Equal(t, 2, g.Version)
	assert.ErrorIs(t, goals.Update(ctx, g, 1), repository.ErrVersionConflict)

	count, err := goals.EmergencyWithdrawals(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	list, err := goals.Goals(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, goals.Delete(ctx, "alice", "g1"))
	assert.ErrorIs(t, goals.Delete(ctx, "alice", "g1"), repository.ErrGoalNotFound)
	_, err = goals.ByID(ctx, "alice", "g1")
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)

	count, err = goals.EmergencyWithdrawals(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "deleted goals still count")
}
