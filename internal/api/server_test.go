package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/auth"
	"github.com/fathima-sithara/context-chat-service/internal/chat"
	"github.com/fathima-sithara/context-chat-service/internal/config"
	"github.com/fathima-sithara/context-chat-service/internal/models"
	"github.com/fathima-sithara/context-chat-service/internal/repository"
	"github.com/fathima-sithara/context-chat-service/internal/ws"
)

type stubGroups struct {
	mu    sync.Mutex
	byCtx map[models.Context]*models.ChatGroup
	byID  map[primitive.ObjectID]*models.ChatGroup
}

func newStubGroups() *stubGroups {
	return &stubGroups{
		byCtx: make(map[models.Context]*models.ChatGroup),
		byID:  make(map[primitive.ObjectID]*models.ChatGroup),
	}
}

func (s *stubGroups) Upsert(_ context.Context, c models.Context, name string) (*models.ChatGroup, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.byCtx[c]; ok {
		return g, false, nil
	}
	g := &models.ChatGroup{ID: primitive.NewObjectID(), Context: c, Name: name, CreatedAt: time.Now().UTC()}
	s.byCtx[c] = g
	s.byID[g.ID] = g
	return g, true, nil
}

func (s *stubGroups) FindByContext(_ context.Context, c models.Context) (*models.ChatGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.byCtx[c]; ok {
		return g, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubGroups) FindByID(_ context.Context, id primitive.ObjectID) (*models.ChatGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.byID[id]; ok {
		return g, nil
	}
	return nil, repository.ErrNotFound
}

type stubMessages struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.ChatMessage
}

func newStubMessages() *stubMessages {
	return &stubMessages{byID: make(map[primitive.ObjectID]*models.ChatMessage)}
}

func (s *stubMessages) Insert(_ context.Context, m *models.ChatMessage) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = primitive.NewObjectID()
	m.CreatedAt = time.Now().UTC()
	s.byID[m.ID] = m
	return m, nil
}

func (s *stubMessages) FindByID(_ context.Context, id primitive.ObjectID) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.byID[id]; ok {
		return m, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubMessages) UpdateReadStatus(_ context.Context, id primitive.ObjectID, isRead bool) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.IsRead = isRead
	return m, nil
}

func (s *stubMessages) ListByGroup(_ context.Context, groupID primitive.ObjectID, skip, limit int64) ([]*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ChatMessage
	for _, m := range s.byID {
		if m.ChatGroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubMessages) CountByGroup(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.byID {
		if m.ChatGroupID == groupID {
			n++
		}
	}
	return n, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	log := zap.NewNop().Sugar()
	hub := ws.NewHub(log)
	svc := chat.NewService(newStubGroups(), newStubMessages(), hub, log)
	cfg := &config.Config{Server: config.ServerCfg{RateLimitPerMin: 60000}}
	return NewServer(cfg, svc, auth.NewAllowAll(log), ws.NewServer(hub, log), log)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func postBody(text string) map[string]any {
	return map[string]any{
		"contextApp":        "AppX",
		"contextEntityType": "Order",
		"contextEntityId":   "123",
		"senderUserId":      "u1",
		"senderName":        "Alice",
		"message":           text,
	}
}

func TestPostMessageCreated(t *testing.T) {
	app := newTestApp(t)

	resp, out := doJSON(t, app, http.MethodPost, "/api/messages", postBody("hi"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, out["success"])

	data := out["data"].(map[string]any)
	assert.Equal(t, "hi", data["text"])
	assert.Equal(t, false, data["isRead"])
	assert.NotEmpty(t, data["chatGroupId"])
}

func TestPostMessageRejectsEmpty(t *testing.T) {
	app := newTestApp(t)

	body := postBody("")
	resp, out := doJSON(t, app, http.MethodPost, "/api/messages", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, out["success"])
}

func TestPostMessageMissingContextRejected(t *testing.T) {
	app := newTestApp(t)

	body := postBody("hi")
	delete(body, "contextApp")
	resp, _ := doJSON(t, app, http.MethodPost, "/api/messages", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListMessagesUnseenContext(t *testing.T) {
	app := newTestApp(t)

	resp, out := doJSON(t, app, http.MethodGet, "/api/messages/AppX/Order/999", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Nil(t, out["chatGroupId"])
	assert.EqualValues(t, 0, out["totalMessages"])
}

func TestListMessagesAfterPost(t *testing.T) {
	app := newTestApp(t)

	_, _ = doJSON(t, app, http.MethodPost, "/api/messages", postBody("hi"))
	resp, out := doJSON(t, app, http.MethodGet, "/api/messages/AppX/Order/123", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, out["totalMessages"])
	assert.NotEmpty(t, out["chatGroupId"])
}

func TestUpdateReadStatus(t *testing.T) {
	app := newTestApp(t)

	_, posted := doJSON(t, app, http.MethodPost, "/api/messages", postBody("hi"))
	id := posted["data"].(map[string]any)["id"].(string)

	resp, out := doJSON(t, app, http.MethodPatch, "/api/messages/"+id+"/status", map[string]any{"isRead": true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["data"].(map[string]any)["isRead"])
}

func TestUpdateReadStatusMissingFlag(t *testing.T) {
	app := newTestApp(t)

	_, posted := doJSON(t, app, http.MethodPost, "/api/messages", postBody("hi"))
	id := posted["data"].(map[string]any)["id"].(string)

	resp, _ := doJSON(t, app, http.MethodPatch, "/api/messages/"+id+"/status", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateReadStatusUnknownMessage(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPatch,
		"/api/messages/"+primitive.NewObjectID().Hex()+"/status", map[string]any{"isRead": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownRouteIs404(t *testing.T) {
	app := newTestApp(t)

	resp, out := doJSON(t, app, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, out["success"])
}
