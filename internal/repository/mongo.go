package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	GroupCollection   = "chat_groups"
	MessageCollection = "chat_messages"
)

var (
	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an upsert loses a uniqueness race. Callers
	// are expected to recover by re-reading; it is never a terminal failure.
	ErrConflict = errors.New("duplicate key conflict")
)

func NewClient(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the indexes both repositories rely on. The compound
// unique index on the context triplet is the sole arbiter of the
// first-message race, so it must exist before any group is upserted.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(GroupCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "contextApp", Value: 1},
			{Key: "contextEntityType", Value: 1},
			{Key: "contextEntityId", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("context_triplet_unique"),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(MessageCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chatGroupId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("group_time_idx"),
		},
		{
			Keys:    bson.D{{Key: "chatGroupId", Value: 1}, {Key: "isRead", Value: 1}},
			Options: options.Index().SetName("group_read_idx"),
		},
	})
	return err
}
