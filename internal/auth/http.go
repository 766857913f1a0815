package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/models"
)

// HTTPAuthorizer asks an external authorization service, selected per
// contextApp, which permissions the token holder has on a context. Calls are
// retried with exponential backoff and guarded by a circuit breaker so a
// struggling auth service cannot pile up goroutines here.
type HTTPAuthorizer struct {
	urls    map[string]string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.SugaredLogger
}

type authRequest struct {
	ContextApp        string `json:"contextApp"`
	ContextEntityType string `json:"contextEntityType"`
	ContextEntityID   string `json:"contextEntityId"`
}

type authResponse struct {
	Permissions []Permission `json:"permissions"`
}

func NewHTTPAuthorizer(urls map[string]string, timeout time.Duration, log *zap.SugaredLogger) *HTTPAuthorizer {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "authorizer",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("authorizer breaker state change", "from", from.String(), "to", to.String())
		},
	})
	return &HTTPAuthorizer{
		urls:    urls,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		log:     log,
	}
}

func (a *HTTPAuthorizer) Authorize(ctx context.Context, token string, perm Permission, c models.Context) error {
	url, ok := a.urls[c.App]
	if !ok || url == "" {
		a.log.Warnw("no authorization service configured for context app", "contextApp", c.App)
		return fmt.Errorf("%w: no authorization service for %q", ErrForbidden, c.App)
	}

	res, err := a.breaker.Execute(func() (any, error) {
		return a.fetch(ctx, url, token, c)
	})
	if err != nil {
		a.log.Errorw("authorization check failed", "contextApp", c.App, "err", err)
		return ErrUnavailable
	}

	for _, p := range res.(*authResponse).Permissions {
		if p == perm {
			return nil
		}
	}
	return ErrForbidden
}

func (a *HTTPAuthorizer) fetch(ctx context.Context, url, token string, c models.Context) (*authResponse, error) {
	body, err := json.Marshal(authRequest{
		ContextApp:        c.App,
		ContextEntityType: c.EntityType,
		ContextEntityID:   c.EntityID,
	})
	if err != nil {
		return nil, err
	}

	var out *authResponse
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("auth service returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("auth service returned %d", resp.StatusCode))
		}

		var ar authResponse
		if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
			return backoff.Permanent(err)
		}
		out = &ar
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}
