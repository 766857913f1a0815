package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/models"
)

// GroupCache keeps short-lived context triplet -> group id mappings so the
// listing path can skip the group lookup. Group resolution for writes never
// reads from here; the unique index in Mongo stays the race arbiter.
type GroupCache struct {
	cli *redis.Client
	ttl time.Duration
	log *zap.SugaredLogger
}

func NewGroupCache(cli *redis.Client, ttl time.Duration, log *zap.SugaredLogger) *GroupCache {
	return &GroupCache{cli: cli, ttl: ttl, log: log}
}

func key(c models.Context) string {
	return fmt.Sprintf("ctxgroup:%s:%s:%s", c.App, c.EntityType, c.EntityID)
}

func (g *GroupCache) GetGroupID(ctx context.Context, c models.Context) (primitive.ObjectID, bool) {
	s, err := g.cli.Get(ctx, key(c)).Result()
	if err == redis.Nil {
		return primitive.ObjectID{}, false
	}
	if err != nil {
		g.log.Warnw("group cache read failed", "err", err)
		return primitive.ObjectID{}, false
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.ObjectID{}, false
	}
	return id, true
}

func (g *GroupCache) SetGroupID(ctx context.Context, c models.Context, id primitive.ObjectID) {
	if err := g.cli.Set(ctx, key(c), id.Hex(), g.ttl).Err(); err != nil {
		g.log.Warnw("group cache write failed", "err", err)
	}
}
