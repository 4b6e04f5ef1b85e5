package main

import (
	"context"
	"fmt"
	"time"

	"devcamper-backend/bootcamps"
	"devcamper-backend/config"
	"devcamper-backend/courses"
	"devcamper-backend/reviews"
	"devcamper-backend/users"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// connectDatabase opens the Mongo client and checks it with a ping.
func connectDatabase(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// ensureIndexes creates the unique, geo and lookup indexes every collection relies on.
func ensureIndexes(ctx context.Context, db *mongo.Database, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	steps := []struct {
		collection string
		ensure     func(context.Context, *mongo.Database, string) error
	}{
		{cfg.CollectionUserName, users.EnsureIndexes},
		{cfg.CollectionBootcampsName, bootcamps.EnsureIndexes},
		{cfg.CollectionCoursesName, courses.EnsureIndexes},
		{cfg.CollectionReviewsName, reviews.EnsureIndexes},
	}
	for _, step := range steps {
		if err := step.ensure(ctx, db, step.collection); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", step.collection, err)
		}
	}
	return nil
}
