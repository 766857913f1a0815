package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/models"
)

var authCtx = models.Context{App: "AppX", EntityType: "Order", EntityID: "123"}

func TestAllowAllGrantsEverything(t *testing.T) {
	a := NewAllowAll(zap.NewNop().Sugar())
	assert.NoError(t, a.Authorize(context.Background(), "", PermCreateMessage, authCtx))
	assert.NoError(t, a.Authorize(context.Background(), "tok", PermChangeStatus, models.Context{}))
}

func authServer(t *testing.T, perms []Permission) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req authRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AppX", req.ContextApp)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(authResponse{Permissions: perms})
	}))
}

func TestHTTPAuthorizerGrants(t *testing.T) {
	srv := authServer(t, []Permission{PermCreateMessage, PermListMessages})
	defer srv.Close()

	a := NewHTTPAuthorizer(map[string]string{"AppX": srv.URL}, time.Second, zap.NewNop().Sugar())
	assert.NoError(t, a.Authorize(context.Background(), "tok", PermCreateMessage, authCtx))
}

func TestHTTPAuthorizerDeniesMissingPermission(t *testing.T) {
	srv := authServer(t, []Permission{PermListMessages})
	defer srv.Close()

	a := NewHTTPAuthorizer(map[string]string{"AppX": srv.URL}, time.Second, zap.NewNop().Sugar())
	err := a.Authorize(context.Background(), "tok", PermChangeStatus, authCtx)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestHTTPAuthorizerDeniesUnknownApp(t *testing.T) {
	a := NewHTTPAuthorizer(map[string]string{}, time.Second, zap.NewNop().Sugar())
	err := a.Authorize(context.Background(), "tok", PermCreateMessage, authCtx)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestHTTPAuthorizerUnavailableOnClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := NewHTTPAuthorizer(map[string]string{"AppX": srv.URL}, time.Second, zap.NewNop().Sugar())
	err := a.Authorize(context.Background(), "tok", PermCreateMessage, authCtx)
	assert.ErrorIs(t, err, ErrUnavailable)
}
