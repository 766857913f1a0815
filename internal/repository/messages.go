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

type Messages struct {
	coll *mongo.Collection
}

func NewMessages(db *mongo.Database) *Messages {
	return &Messages{coll: db.Collection(MessageCollection)}
}

// Insert persists a new message. The stored document is returned in full so
// the caller can broadcast exactly what was written.
func (r *Messages) Insert(ctx context.Context, m *models.ChatMessage) (*models.ChatMessage, error) {
	m.CreatedAt = time.Now().UTC()
	res, err := r.coll.InsertOne(ctx, m)
	if err != nil {
		return nil, err
	}
	m.ID = res.InsertedID.(primitive.ObjectID)
	return m, nil
}

func (r *Messages) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChatMessage, error) {
	var m models.ChatMessage
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// UpdateReadStatus flips the isRead flag and returns the updated document.
func (r *Messages) UpdateReadStatus(ctx context.Context, id primitive.ObjectID, isRead bool) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isRead": isRead}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListByGroup returns one page of a group's messages, newest first.
func (r *Messages) ListByGroup(ctx context.Context, groupID primitive.ObjectID, skip, limit int64) ([]*models.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{"chatGroupId": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.ChatMessage
	for cur.Next(ctx) {
		var m models.ChatMessage
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

func (r *Messages) CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"chatGroupId": groupID})
}
