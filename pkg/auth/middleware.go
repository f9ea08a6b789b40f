// Package auth reads the caller's identity from headers set by the fronting
// identity provider. Token validation happens upstream of the gateway.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/config"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
)

// ContextKey for storing the actor in the echo context
type contextKey string

const ActorContextKey contextKey = "mms_actor"

// GetActor retrieves the authenticated actor from the Echo context
func GetActor(c echo.Context) *access.Actor {
	if actor, ok := c.Get(string(ActorContextKey)).(*access.Actor); ok {
		return actor
	}
	return nil
}

// Middleware handles authentication for routes
type Middleware struct {
	userHeader   string
	groupsHeader string
	log          *slog.Logger
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(cfg *config.Config, log *slog.Logger) *Middleware {
	return &Middleware{
		userHeader:   cfg.Auth.UserHeader,
		groupsHeader: cfg.Auth.GroupsHeader,
		log:          log.With(logger.Scope("auth")),
	}
}

// RequireAuth returns middleware that requires an identity header
func (m *Middleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := m.authenticate(c.Request())
			if err != nil {
				m.log.Warn("authentication failed", logger.Error(err))
				return err
			}
			c.Set(string(ActorContextKey), actor)
			return next(c)
		}
	}
}

func (m *Middleware) authenticate(r *http.Request) (*access.Actor, error) {
	user := strings.TrimSpace(r.Header.Get(m.userHeader))
	if user == "" {
		return nil, apperror.ErrUnauthorized.WithMessage("Missing " + m.userHeader + " header")
	}
	if err := iri.ValidateID("user", user); err != nil {
		return nil, apperror.ErrUnauthorized.WithMessage("Invalid user identity").WithInternal(err)
	}
	return &access.Actor{User: user, Groups: parseGroups(r.Header.Values(m.groupsHeader))}, nil
}

// parseGroups splits comma-separated group identifiers across every header
// value, dropping blanks and duplicates.
func parseGroups(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		for _, g := range strings.Split(v, ",") {
			g = strings.TrimSpace(g)
			if g == "" || seen[g] {
				continue
			}
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}
