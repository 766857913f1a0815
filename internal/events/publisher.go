package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fathima-sithara/context-chat-service/internal/models"
)

const subjectGroupCreated = "chat.group.created"

// GroupCreatedEvent announces a lazily created chat group to interested
// services.
type GroupCreatedEvent struct {
	GroupID           string    `json:"group_id"`
	ContextApp        string    `json:"context_app"`
	ContextEntityType string    `json:"context_entity_type"`
	ContextEntityID   string    `json:"context_entity_id"`
	Name              string    `json:"name,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type Publisher struct {
	nc *nats.Conn
}

func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc}, nil
}

func (p *Publisher) PublishGroupCreated(_ context.Context, g *models.ChatGroup) error {
	if p == nil || p.nc == nil {
		return nil
	}
	ev := GroupCreatedEvent{
		GroupID:           g.ID.Hex(),
		ContextApp:        g.App,
		ContextEntityType: g.EntityType,
		ContextEntityID:   g.EntityID,
		Name:              g.Name,
		CreatedAt:         g.CreatedAt,
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(subjectGroupCreated, b)
}

func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}
