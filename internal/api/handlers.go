package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/chat"
	"github.com/fathima-sithara/context-chat-service/internal/models"
)

type Handlers struct {
	svc   *chat.Service
	authz authzFunc
	log   *zap.SugaredLogger
}

func NewHandlers(svc *chat.Service, authz authzFunc, log *zap.SugaredLogger) *Handlers {
	return &Handlers{svc: svc, authz: authz, log: log}
}

type postMessageRequest struct {
	ContextApp        string `json:"contextApp"`
	ContextEntityType string `json:"contextEntityType"`
	ContextEntityID   string `json:"contextEntityId"`
	SenderUserID      string `json:"senderUserId"`
	SenderName        string `json:"senderName"`
	SenderCompanyID   string `json:"senderCompanyId"`
	SenderCompanyName string `json:"senderCompanyName"`
	Message           string `json:"message"`
	FileID            string `json:"fileId"`
	GroupName         string `json:"groupName"`
}

func (r postMessageRequest) context() models.Context {
	return models.Context{App: r.ContextApp, EntityType: r.ContextEntityType, EntityID: r.ContextEntityID}
}

func (h *Handlers) postMessage(c *fiber.Ctx) error {
	var req postMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Context(), chat.DefaultOpTimeout)
	defer cancel()

	msg, err := h.svc.PostMessage(ctx, chat.PostMessageInput{
		Context:           req.context(),
		GroupName:         req.GroupName,
		SenderUserID:      req.SenderUserID,
		SenderName:        req.SenderName,
		SenderCompanyID:   req.SenderCompanyID,
		SenderCompanyName: req.SenderCompanyName,
		Text:              req.Message,
		FileID:            req.FileID,
	})
	if err != nil {
		return h.fromServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": msg})
}

func (h *Handlers) listMessages(c *fiber.Ctx) error {
	triplet := models.Context{
		App:        c.Params("contextApp"),
		EntityType: c.Params("contextEntityType"),
		EntityID:   c.Params("contextEntityId"),
	}
	page := int64(c.QueryInt("page", 1))
	limit := int64(c.QueryInt("limit", 20))

	ctx, cancel := context.WithTimeout(c.Context(), chat.DefaultOpTimeout)
	defer cancel()

	p, err := h.svc.ListMessages(ctx, triplet, page, limit)
	if err != nil {
		return h.fromServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"chatGroupId":   p.GroupID,
		"count":         len(p.Messages),
		"totalMessages": p.Total,
		"currentPage":   p.CurrentPage,
		"totalPages":    p.TotalPages,
		"data":          p.Messages,
	})
}

func (h *Handlers) updateReadStatus(c *fiber.Ctx) error {
	var req struct {
		IsRead *bool `json:"isRead"`
	}
	if err := c.BodyParser(&req); err != nil || req.IsRead == nil {
		return fail(c, fiber.StatusBadRequest, `invalid or missing "isRead" field; it must be true or false`)
	}

	ctx, cancel := context.WithTimeout(c.Context(), chat.DefaultOpTimeout)
	defer cancel()

	msg, err := h.svc.MarkRead(ctx, c.Params("messageId"), *req.IsRead)
	if err != nil {
		return h.fromServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": msg})
}

func (h *Handlers) fromServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "message not found")
	case errors.Is(err, chat.ErrStoreUnavailable):
		// no internal diagnostic detail leaks past this point
		return fail(c, fiber.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		h.log.Errorw("unhandled service error", "err", err)
		return fail(c, fiber.StatusInternalServerError, "an internal server error occurred")
	}
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": msg})
}
