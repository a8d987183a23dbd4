// Package mongo stores goals and users as MongoDB documents.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	goalsCollection = "goals"
	usersCollection = "users"
)

// Connect opens a client, verifies it with a ping and ensures the indexes the
// repositories rely on.
func Connect(ctx context.Context, uri, database string) (*mongodriver.Client, *mongodriver.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	err = EnsureIndexes(ctx, db)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	slog.Info("mongo connected", "database", database)
	return client, db, nil
}

func EnsureIndexes(ctx context.Context, db *mongodriver.Database) error {
	_, err := db.Collection(goalsCollection).Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create goals index: %w", err)
	}

	_, err = db.Collection(usersCollection).Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}
	return nil
}
