package chat

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/metrics"
	"github.com/fathima-sithara/context-chat-service/internal/models"
	"github.com/fathima-sithara/context-chat-service/internal/repository"
	"github.com/fathima-sithara/context-chat-service/internal/room"
)

// Broadcast event names. These are the wire-level event identifiers clients
// listen for, so they are part of the public contract.
const (
	EventNewMessage        = "newMessage"
	EventReadStatusChanged = "messageReadStatusChanged"
)

// GroupStore is the persistence boundary for chat groups. Upsert must be a
// single store-level conditional write arbitrated by the unique triplet
// index; it reports repository.ErrConflict when a competing insert won the
// race, and the resolver recovers via FindByContext.
type GroupStore interface {
	Upsert(ctx context.Context, c models.Context, name string) (*models.ChatGroup, bool, error)
	FindByContext(ctx context.Context, c models.Context) (*models.ChatGroup, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChatGroup, error)
}

type MessageStore interface {
	Insert(ctx context.Context, m *models.ChatMessage) (*models.ChatMessage, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChatMessage, error)
	UpdateReadStatus(ctx context.Context, id primitive.ObjectID, isRead bool) (*models.ChatMessage, error)
	ListByGroup(ctx context.Context, groupID primitive.ObjectID, skip, limit int64) ([]*models.ChatMessage, error)
	CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
}

// Broadcaster delivers an event to the current subscribers of a room,
// best-effort and fire-and-forget.
type Broadcaster interface {
	Broadcast(roomName, event string, payload any)
}

// GroupEventPublisher announces newly created groups to other services.
type GroupEventPublisher interface {
	PublishGroupCreated(ctx context.Context, g *models.ChatGroup) error
}

// MessageEventPublisher exports stored messages to the event stream.
type MessageEventPublisher interface {
	PublishMessageCreated(ctx context.Context, m *models.ChatMessage) error
}

// GroupCache is an optional read-path cache of context triplet -> group id.
// Only listing consults it; the resolver always goes to the store because
// race arbitration has to happen there.
type GroupCache interface {
	GetGroupID(ctx context.Context, c models.Context) (primitive.ObjectID, bool)
	SetGroupID(ctx context.Context, c models.Context, id primitive.ObjectID)
}

type Service struct {
	groups   GroupStore
	messages MessageStore
	bc       Broadcaster
	events   GroupEventPublisher   // optional
	stream   MessageEventPublisher // optional
	cache    GroupCache            // optional
	log      *zap.SugaredLogger
}

func NewService(groups GroupStore, messages MessageStore, bc Broadcaster, log *zap.SugaredLogger) *Service {
	return &Service{groups: groups, messages: messages, bc: bc, log: log}
}

func (s *Service) WithGroupEvents(p GroupEventPublisher) *Service     { s.events = p; return s }
func (s *Service) WithMessageStream(p MessageEventPublisher) *Service { s.stream = p; return s }
func (s *Service) WithGroupCache(c GroupCache) *Service               { s.cache = c; return s }

// ResolveGroup finds or atomically creates the group owning a context
// triplet. For any triplet, regardless of concurrent callers, exactly one
// group ever exists and every caller receives its identity.
func (s *Service) ResolveGroup(ctx context.Context, c models.Context, name string) (*models.ChatGroup, error) {
	if c.Incomplete() {
		return nil, validationErr("contextApp, contextEntityType and contextEntityId are required")
	}

	g, created, err := s.groups.Upsert(ctx, c, name)
	if errors.Is(err, repository.ErrConflict) {
		// A competing insert won the race a moment earlier; the group now
		// exists, so a plain lookup must succeed.
		s.log.Warnw("group upsert lost creation race, retrying lookup",
			"contextApp", c.App, "contextEntityType", c.EntityType, "contextEntityId", c.EntityID)
		g, err = s.groups.FindByContext(ctx, c)
		if err != nil {
			return nil, s.storeErr(err)
		}
		return g, nil
	}
	if err != nil {
		return nil, s.storeErr(err)
	}

	if created {
		metrics.GroupsCreated.Inc()
		if s.events != nil {
			if perr := s.events.PublishGroupCreated(ctx, g); perr != nil {
				s.log.Warnw("group created event publish failed", "groupId", g.ID.Hex(), "err", perr)
			}
		}
	}
	return g, nil
}

// PostMessageInput carries everything needed to append a message to the
// group owning its context. GroupName is only used if the group must be
// created. Any caller-supplied read state is ignored: messages are always
// stored unread.
type PostMessageInput struct {
	Context           models.Context
	GroupName         string
	SenderUserID      string
	SenderName        string
	SenderCompanyID   string
	SenderCompanyName string
	Text              string
	FileID            string
}

// PostMessage resolves the owning group, persists the message and broadcasts
// it to the group's room. Persistence and broadcast are independent: a
// broadcast with no live subscribers is a no-op and never rolls back the
// write.
func (s *Service) PostMessage(ctx context.Context, in PostMessageInput) (*models.ChatMessage, error) {
	if in.SenderUserID == "" || in.SenderName == "" {
		return nil, validationErr("senderUserId and senderName are required")
	}
	if in.Text == "" && in.FileID == "" {
		return nil, validationErr("either text or fileId must be provided")
	}

	g, err := s.ResolveGroup(ctx, in.Context, in.GroupName)
	if err != nil {
		return nil, err
	}

	m := &models.ChatMessage{
		ChatGroupID:       g.ID,
		Text:              in.Text,
		SenderUserID:      in.SenderUserID,
		SenderName:        in.SenderName,
		SenderCompanyID:   in.SenderCompanyID,
		SenderCompanyName: in.SenderCompanyName,
		FileID:            in.FileID,
		IsRead:            false,
	}
	stored, err := s.messages.Insert(ctx, m)
	if err != nil {
		return nil, s.storeErr(err)
	}
	metrics.MessagesPosted.Inc()

	s.bc.Broadcast(room.Name(g.ID), EventNewMessage, stored)

	if s.stream != nil {
		if perr := s.stream.PublishMessageCreated(ctx, stored); perr != nil {
			s.log.Warnw("message event publish failed", "messageId", stored.ID.Hex(), "err", perr)
		}
	}
	return stored, nil
}

// MarkRead persists a message's new read state and notifies the owning
// group's room. The room is always re-derived from current group data at
// update time, never from cached state.
func (s *Service) MarkRead(ctx context.Context, messageID string, isRead bool) (*models.ChatMessage, error) {
	id, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, validationErr("invalid message ID format")
	}

	m, err := s.messages.UpdateReadStatus(ctx, id, isRead)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.storeErr(err)
	}

	roomName := room.Name(m.ChatGroupID)
	if g, gerr := s.groups.FindByID(ctx, m.ChatGroupID); gerr == nil {
		roomName = room.Name(g.ID)
	} else {
		s.log.Warnw("owning group lookup failed, deriving room from stored reference",
			"messageId", m.ID.Hex(), "err", gerr)
	}
	s.bc.Broadcast(roomName, EventReadStatusChanged, models.ReadStatusChange{
		MessageID:   m.ID,
		ChatGroupID: m.ChatGroupID,
		IsRead:      m.IsRead,
	})
	return m, nil
}

// Page is one page of a group's history, newest first.
type Page struct {
	GroupID     *primitive.ObjectID   `json:"chatGroupId"`
	Messages    []*models.ChatMessage `json:"data"`
	Total       int64                 `json:"totalMessages"`
	CurrentPage int64                 `json:"currentPage"`
	TotalPages  int64                 `json:"totalPages"`
}

// ListMessages returns a page of the context's history. An unseen context is
// not an error: listing never creates groups, it just returns an empty page.
func (s *Service) ListMessages(ctx context.Context, c models.Context, page, limit int64) (*Page, error) {
	if c.Incomplete() {
		return nil, validationErr("contextApp, contextEntityType and contextEntityId are required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	groupID, ok := s.cachedGroupID(ctx, c)
	if !ok {
		g, err := s.groups.FindByContext(ctx, c)
		if errors.Is(err, repository.ErrNotFound) {
			return &Page{CurrentPage: page}, nil
		}
		if err != nil {
			return nil, s.storeErr(err)
		}
		groupID = g.ID
		if s.cache != nil {
			s.cache.SetGroupID(ctx, c, groupID)
		}
	}

	msgs, err := s.messages.ListByGroup(ctx, groupID, (page-1)*limit, limit)
	if err != nil {
		return nil, s.storeErr(err)
	}
	total, err := s.messages.CountByGroup(ctx, groupID)
	if err != nil {
		return nil, s.storeErr(err)
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return &Page{
		GroupID:     &groupID,
		Messages:    msgs,
		Total:       total,
		CurrentPage: page,
		TotalPages:  totalPages,
	}, nil
}

// MessageContext resolves the context triplet a message belongs to, via its
// owning group. The authorization layer needs this for status updates.
func (s *Service) MessageContext(ctx context.Context, messageID string) (models.Context, error) {
	id, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return models.Context{}, validationErr("invalid message ID format")
	}
	m, err := s.messages.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Context{}, ErrNotFound
	}
	if err != nil {
		return models.Context{}, s.storeErr(err)
	}
	g, err := s.groups.FindByID(ctx, m.ChatGroupID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Context{}, ErrNotFound
	}
	if err != nil {
		return models.Context{}, s.storeErr(err)
	}
	return g.Context, nil
}

func (s *Service) cachedGroupID(ctx context.Context, c models.Context) (primitive.ObjectID, bool) {
	if s.cache == nil {
		return primitive.ObjectID{}, false
	}
	return s.cache.GetGroupID(ctx, c)
}

func (s *Service) storeErr(err error) error {
	s.log.Errorw("persistence error", "err", err)
	return ErrStoreUnavailable
}

// DefaultOpTimeout bounds persistence calls issued from request handlers.
const DefaultOpTimeout = 5 * time.Second
