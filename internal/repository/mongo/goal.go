package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/venus-savings/venus/internal/model"
	"github.com/venus-savings/venus/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// goalDocument keeps amounts as decimal strings; BSON has no exact type that
// round-trips shopspring decimals.
type goalDocument struct {
	ID               string     `bson:"_id"`
	UserID           string     `bson:"user_id"`
	Label            string     `bson:"label"`
	TargetAmount     string     `bson:"target_amount"`
	CurrentAmount    string     `bson:"current_amount"`
	LockUntil        time.Time  `bson:"lock_until"`
	Status           string     `bson:"status"`
	EmergencyAllowed bool       `bson:"emergency_allowed"`
	WithdrawCount    int        `bson:"withdraw_count"`
	PenaltyAmount    string     `bson:"penalty_amount"`
	Version          int        `bson:"version"`
	CreatedAt        time.Time  `bson:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at"`
	DeletedAt        *time.Time `bson:"deleted_at,omitempty"`
}

func toDocument(g *model.Goal) goalDocument {
	return goalDocument{
		ID:               g.ID,
		UserID:           g.UserID,
		Label:            g.Label,
		TargetAmount:     g.TargetAmount.String(),
		CurrentAmount:    g.CurrentAmount.String(),
		LockUntil:        g.LockUntil.UTC(),
		Status:           string(g.Status),
		EmergencyAllowed: g.EmergencyAllowed,
		WithdrawCount:    g.WithdrawCount,
		PenaltyAmount:    g.PenaltyAmount.String(),
		Version:          g.Version,
		CreatedAt:        g.CreatedAt.UTC(),
		UpdatedAt:        g.UpdatedAt.UTC(),
	}
}

func (d goalDocument) toModel() (*model.Goal, error) {
	target, err := decimal.NewFromString(d.TargetAmount)
	if err != nil {
		return nil, err
	}
	current, err := decimal.NewFromString(d.CurrentAmount)
	if err != nil {
		return nil, err
	}
	penalty, err := decimal.NewFromString(d.PenaltyAmount)
	if err != nil {
		return nil, err
	}

	return &model.Goal{
		ID:               d.ID,
		UserID:           d.UserID,
		Label:            d.Label,
		TargetAmount:     target,
		CurrentAmount:    current,
		LockUntil:        d.LockUntil.UTC(),
		Status:           model.GoalStatus(d.Status),
		EmergencyAllowed: d.EmergencyAllowed,
		WithdrawCount:    d.WithdrawCount,
		PenaltyAmount:    penalty,
		Version:          d.Version,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}, nil
}

// GoalRepository keeps deleted goals as tombstones so their withdraw counts
// still reach EmergencyWithdrawals.
type GoalRepository struct {
	goals *mongodriver.Collection
}

// live restricts filter to goals that have not been deleted. A nil match
// also covers documents without the field.
func live(filter bson.M) bson.M {
	filter["deleted_at"] = nil
	return filter
}

var _ repository.GoalRepository = (*GoalRepository)(nil)

func NewGoalRepository(db *mongodriver.Database) *GoalRepository {
	return &GoalRepository{goals: db.Collection(goalsCollection)}
}

func (r *GoalRepository) Create(ctx context.Context, goal *model.Goal) error {
	_, err := r.goals.InsertOne(ctx, toDocument(goal))
	return repository.Unavailable(err)
}

func (r *GoalRepository) ByID(ctx context.Context, userID, goalID string) (*model.Goal, error) {
	var doc goalDocument
	err := r.goals.FindOne(ctx, live(bson.M{"_id": goalID, "user_id": userID})).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, repository.ErrGoalNotFound
	}
	if err != nil {
		return nil, repository.Unavailable(err)
	}

	goal, err := doc.toModel()
	return goal, repository.Unavailable(err)
}

func (r *GoalRepository) Goals(ctx context.Context, userID string) ([]*model.Goal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.goals.Find(ctx, live(bson.M{"user_id": userID}), opts)
	if err != nil {
		return nil, repository.Unavailable(err)
	}
	defer cursor.Close(ctx)

	var docs []goalDocument
	err = cursor.All(ctx, &docs)
	if err != nil {
		return nil, repository.Unavailable(err)
	}

	goals := make([]*model.Goal, 0, len(docs))
	for _, doc := range docs {
		goal, err := doc.toModel()
		if err != nil {
			return nil, repository.Unavailable(err)
		}
		goals = append(goals, goal)
	}
	return goals, nil
}

func (r *GoalRepository) EmergencyWithdrawals(ctx context.Context, userID string) (int, error) {
	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$withdraw_count"}}}},
	}
	cursor, err := r.goals.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, repository.Unavailable(err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total int `bson:"total"`
	}
	err = cursor.All(ctx, &result)
	if err != nil {
		return 0, repository.Unavailable(err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

func (r *GoalRepository) Update(ctx context.Context, goal *model.Goal, expectedVersion int) error {
	doc := toDocument(goal)
	filter := live(bson.M{"_id": goal.ID, "user_id": goal.UserID, "version": expectedVersion})
	update := bson.M{"$set": bson.M{
		"label":             doc.Label,
		"target_amount":     doc.TargetAmount,
		"current_amount":    doc.CurrentAmount,
		"lock_until":        doc.LockUntil,
		"status":            doc.Status,
		"emergency_allowed": doc.EmergencyAllowed,
		"withdraw_count":    doc.WithdrawCount,
		"penalty_amount":    doc.PenaltyAmount,
		"version":           expectedVersion + 1,
		"updated_at":        doc.UpdatedAt,
	}}

	result, err := r.goals.UpdateOne(ctx, filter, update)
	if err != nil {
		return repository.Unavailable(err)
	}

	if result.MatchedCount == 0 {
		count, err := r.goals.CountDocuments(ctx, live(bson.M{"_id": goal.ID, "user_id": goal.UserID}))
		if err != nil {
			return repository.Unavailable(err)
		}
		if count == 0 {
			return repository.ErrGoalNotFound
		}
		return repository.ErrVersionConflict
	}

	goal.Version = expectedVersion + 1
	return nil
}

func (r *GoalRepository) Delete(ctx context.Context, userID, goalID string) error {
	filter := live(bson.M{"_id": goalID, "user_id": userID})
	update := bson.M{"$set": bson.M{"deleted_at": time.Now().UTC()}}

	result, err := r.goals.UpdateOne(ctx, filter, update)
	if err != nil {
		return repository.Unavailable(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrGoalNotFound
	}
	return nil
}
