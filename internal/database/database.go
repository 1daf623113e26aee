package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const UsersCollection = "users"

// Connect opens a Mongo client, pings it, creates the user indexes and
// returns the named database.
func Connect(ctx context.Context, mongoURI, dbName string, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	// Atlas connections can be slow to establish
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	logger.Info("connecting to mongodb", zap.String("database", dbName))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(dbName)
	if err := ensureIndexes(ctx, db.Collection(UsersCollection).Indexes()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	logger.Info("connected to mongodb")
	return client, db, nil
}

// indexCreator is the part of mongo.IndexView used at startup.
type indexCreator interface {
	CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error)
}

// ensureIndexes creates the unique email index, the reset token lookup index
// and the provider id indexes. Only Connect runs it.
func ensureIndexes(ctx context.Context, iv indexCreator) error {
	_, err := iv.CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys: bson.D{{Key: "reset_password_token", Value: 1}},
			Options: options.Index().SetName("reset_token").
				SetPartialFilterExpression(bson.M{"reset_password_token": bson.M{"$exists": true}}),
		},
		{
			Keys:    bson.D{{Key: "google.id", Value: 1}},
			Options: options.Index().SetName("google_id").SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "facebook.id", Value: 1}},
			Options: options.Index().SetName("facebook_id").SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func Disconnect(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}
