package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/context-chat-service/internal/models"
)

type Groups struct {
	coll *mongo.Collection
}

func NewGroups(db *mongo.Database) *Groups {
	return &Groups{coll: db.Collection(GroupCollection)}
}

func contextFilter(c models.Context) bson.M {
	return bson.M{
		"contextApp":        c.App,
		"contextEntityType": c.EntityType,
		"contextEntityId":   c.EntityID,
	}
}

// Upsert inserts the group for the given context if absent, as a single
// conditional write; the unique triplet index is the authority. The name is
// only applied on insert, matching the lazy-create semantics. When a
// competing insert wins the race between the server choosing the upsert
// branch and executing it, the duplicate-key rejection surfaces as
// ErrConflict for the caller to recover from.
func (r *Groups) Upsert(ctx context.Context, c models.Context, name string) (*models.ChatGroup, bool, error) {
	now := time.Now().UTC()
	insert := bson.M{
		"contextApp":        c.App,
		"contextEntityType": c.EntityType,
		"contextEntityId":   c.EntityID,
		"createdAt":         now,
	}
	if name != "" {
		insert["name"] = name
	}

	res, err := r.coll.UpdateOne(ctx, contextFilter(c),
		bson.M{"$setOnInsert": insert},
		options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, false, ErrConflict
		}
		return nil, false, err
	}

	if res.UpsertedID != nil {
		g := &models.ChatGroup{
			ID:        res.UpsertedID.(primitive.ObjectID),
			Context:   c,
			Name:      name,
			CreatedAt: now,
		}
		return g, true, nil
	}

	g, err := r.FindByContext(ctx, c)
	if err != nil {
		return nil, false, err
	}
	return g, false, nil
}

func (r *Groups) FindByContext(ctx context.Context, c models.Context) (*models.ChatGroup, error) {
	var g models.ChatGroup
	if err := r.coll.FindOne(ctx, contextFilter(c)).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *Groups) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChatGroup, error) {
	var g models.ChatGroup
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}
