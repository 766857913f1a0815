package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage belongs to exactly one ChatGroup. Either Text or FileID must be
// set; IsRead is the only field that changes after creation.
type ChatMessage struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatGroupID       primitive.ObjectID `bson:"chatGroupId" json:"chatGroupId"`
	Text              string             `bson:"text,omitempty" json:"text,omitempty"`
	SenderUserID      string             `bson:"senderUserId" json:"senderUserId"`
	SenderName        string             `bson:"senderName" json:"senderName"`
	SenderCompanyID   string             `bson:"senderCompanyId,omitempty" json:"senderCompanyId,omitempty"`
	SenderCompanyName string             `bson:"senderCompanyName,omitempty" json:"senderCompanyName,omitempty"`
	FileID            string             `bson:"fileId,omitempty" json:"fileId,omitempty"`
	IsRead            bool               `bson:"isRead" json:"isRead"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}

// ReadStatusChange is the broadcast payload when a message's read flag flips.
type ReadStatusChange struct {
	MessageID   primitive.ObjectID `json:"messageId"`
	ChatGroupID primitive.ObjectID `json:"chatGroupId"`
	IsRead      bool               `json:"isRead"`
}
