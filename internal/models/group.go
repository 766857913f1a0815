package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Context identifies the external business object a chat thread belongs to.
type Context struct {
	App        string `bson:"contextApp" json:"contextApp"`
	EntityType string `bson:"contextEntityType" json:"contextEntityType"`
	EntityID   string `bson:"contextEntityId" json:"contextEntityId"`
}

// Incomplete reports whether any of the three context fields is missing.
func (c Context) Incomplete() bool {
	return c.App == "" || c.EntityType == "" || c.EntityID == ""
}

// ChatGroup is one chat thread, keyed uniquely by its context triplet.
// Groups are created lazily on the first message and never mutated after.
type ChatGroup struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Context   `bson:",inline"`
	Name      string    `bson:"name,omitempty" json:"name,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
