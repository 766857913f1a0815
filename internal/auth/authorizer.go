// Package auth is the pluggable policy-check collaborator. The core treats
// authorization as a pre-condition checked before any chat operation runs
// and embeds no permission logic itself.
package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/models"
)

type Permission string

const (
	PermCreateMessage Permission = "create_message"
	PermListMessages  Permission = "list_messages"
	PermChangeStatus  Permission = "change_status"
)

var (
	ErrForbidden   = errors.New("permission denied")
	ErrUnavailable = errors.New("authorization service unavailable")
)

// Authorizer decides whether the holder of token may exercise perm on the
// given context. Implementations must not mutate anything.
type Authorizer interface {
	Authorize(ctx context.Context, token string, perm Permission, c models.Context) error
}

// AllowAll grants every request. It is the deployed default while the
// external authorization service integration is switched off.
type AllowAll struct {
	log *zap.SugaredLogger
}

func NewAllowAll(log *zap.SugaredLogger) *AllowAll {
	return &AllowAll{log: log}
}

func (a *AllowAll) Authorize(_ context.Context, token string, perm Permission, c models.Context) error {
	a.log.Debugw("authorization bypassed, granting access",
		"permission", perm,
		"contextApp", c.App,
		"contextEntityType", c.EntityType,
		"contextEntityId", c.EntityID,
		"tokenPresent", token != "")
	return nil
}
