package mongo

import (
	"context"
	"errors"
	"strings"

	"github.com/venus-savings/venus/internal/model"
	"github.com/venus-savings/venus/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

type UserRepository struct {
	users *mongodriver.Collection
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *mongodriver.Database) *UserRepository {
	return &UserRepository{users: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	doc := *user
	doc.Email = strings.ToLower(doc.Email)
	doc.CreatedAt = doc.CreatedAt.UTC()

	_, err := r.users.InsertOne(ctx, doc)
	if mongodriver.IsDuplicateKeyError(err) {
		return repository.ErrDuplicateEmail
	}
	return repository.Unavailable(err)
}

func (r *UserRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	user := &model.User{}
	err := r.users.FindOne(ctx, filter).Decode(user)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, repository.Unavailable(err)
	}
	return user, nil
}
