package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/auth"
	"github.com/fathima-sithara/context-chat-service/internal/chat"
	"github.com/fathima-sithara/context-chat-service/internal/config"
	"github.com/fathima-sithara/context-chat-service/internal/ws"
)

// NewServer assembles the fiber app: REST routes for posting, listing and
// read-status updates, plus the websocket upgrade endpoint for rooms.
func NewServer(cfg *config.Config, svc *chat.Service, authz auth.Authorizer, wsrv *ws.Server, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
	})

	app.Use(fiberlogger.New())
	rl := NewIPRateLimiter(cfg.Server.RateLimitPerMin, log)

	h := NewHandlers(svc, authz.Authorize, log)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "UP", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsrv.Handler()))

	msgs := app.Group("/api/messages", rl.Handler())
	msgs.Post("/", h.requireAuth(auth.PermCreateMessage), h.postMessage)
	msgs.Get("/:contextApp/:contextEntityType/:contextEntityId", h.requireAuth(auth.PermListMessages), h.listMessages)
	msgs.Patch("/:messageId/status", h.requireAuth(auth.PermChangeStatus), h.updateReadStatus)

	app.Use(func(c *fiber.Ctx) error {
		return fail(c, fiber.StatusNotFound, "resource not found")
	})

	return app
}
