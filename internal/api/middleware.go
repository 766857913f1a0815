package api

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fathima-sithara/context-chat-service/internal/auth"
	"github.com/fathima-sithara/context-chat-service/internal/chat"
	"github.com/fathima-sithara/context-chat-service/internal/metrics"
	"github.com/fathima-sithara/context-chat-service/internal/models"
)

type authzFunc func(ctx context.Context, token string, perm auth.Permission, c models.Context) error

// requireAuth builds the authorization pre-condition for one route. It
// determines the context triplet the way the route shape dictates, then
// defers the actual decision to the pluggable authorizer.
func (h *Handlers) requireAuth(perm auth.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		triplet, err := h.routeContext(c, perm)
		if err != nil {
			if errors.Is(err, chat.ErrNotFound) {
				return fail(c, fiber.StatusNotFound, "message not found")
			}
			if errors.Is(err, chat.ErrValidation) {
				return fail(c, fiber.StatusBadRequest, err.Error())
			}
			return fail(c, fiber.StatusBadRequest, "could not determine context for authorization")
		}
		if triplet.Incomplete() {
			return fail(c, fiber.StatusBadRequest, "could not determine context for authorization")
		}

		if err := h.authz(c.Context(), bearerToken(c), perm, triplet); err != nil {
			if errors.Is(err, auth.ErrUnavailable) {
				return fail(c, fiber.StatusServiceUnavailable, "authorization service unavailable")
			}
			return fail(c, fiber.StatusForbidden, "forbidden")
		}
		return c.Next()
	}
}

func (h *Handlers) routeContext(c *fiber.Ctx, perm auth.Permission) (models.Context, error) {
	switch perm {
	case auth.PermCreateMessage:
		var req postMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return models.Context{}, err
		}
		return req.context(), nil
	case auth.PermListMessages:
		return models.Context{
			App:        c.Params("contextApp"),
			EntityType: c.Params("contextEntityType"),
			EntityID:   c.Params("contextEntityId"),
		}, nil
	case auth.PermChangeStatus:
		// the message's owning group carries the context for status updates
		ctx, cancel := context.WithTimeout(c.Context(), chat.DefaultOpTimeout)
		defer cancel()
		return h.svc.MessageContext(ctx, c.Params("messageId"))
	}
	return models.Context{}, errors.New("unknown permission")
}

func bearerToken(c *fiber.Ctx) string {
	hdr := c.Get("Authorization")
	const pref = "Bearer "
	if strings.HasPrefix(hdr, pref) {
		return hdr[len(pref):]
	}
	return ""
}

// IPRateLimiter throttles requests per client IP.
type IPRateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	log      *zap.SugaredLogger
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(perMinute int, log *zap.SugaredLogger) *IPRateLimiter {
	l := &IPRateLimiter{
		rps:   rate.Limit(float64(perMinute) / 60.0),
		burst: 10,
		log:   log,
	}
	go l.evictIdle()
	return l
}

func (l *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	if v, ok := l.visitors.Load(ip); ok {
		vi := v.(*visitor)
		vi.lastSeen = time.Now()
		return vi.limiter
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.visitors.Store(ip, &visitor{limiter: lim, lastSeen: time.Now()})
	return lim
}

func (l *IPRateLimiter) evictIdle() {
	for {
		time.Sleep(time.Minute)
		cutoff := time.Now().Add(-5 * time.Minute)
		l.visitors.Range(func(k, v any) bool {
			if v.(*visitor).lastSeen.Before(cutoff) {
				l.visitors.Delete(k)
			}
			return true
		})
	}
}

func (l *IPRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := clientIP(c)
		if !l.limiterFor(ip).Allow() {
			metrics.RateLimitHits.Inc()
			l.log.Warnw("rate limit exceeded", "ip", ip, "path", c.Path())
			return fail(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}

func clientIP(c *fiber.Ctx) string {
	ip := c.IP()
	if ip == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
