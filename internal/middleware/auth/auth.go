package authmw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	AccessCookie = "accessToken"
	userKey      = "user"
)

type UserResolver interface {
	ResolveCurrentUser(ctx context.Context, raw string) (*models.User, error)
}

type Middleware struct {
	Resolver UserResolver
	// PublicReads lets OptionalAuth pass anonymous requests through.
	PublicReads bool
}

func New(r UserResolver, publicReads bool) *Middleware {
	return &Middleware{Resolver: r, PublicReads: publicReads}
}

// BearerToken takes the token from the Authorization header and falls back
// to the access cookie.
func BearerToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if ck, err := c.Cookie(AccessCookie); err == nil {
		return ck.Value
	}
	return ""
}

func (m *Middleware) authenticate(c echo.Context) (*models.User, error) {
	ctx := c.Request().Context()
	user, err := m.Resolver.ResolveCurrentUser(ctx, BearerToken(c))
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
		}
		logging.FromContext(ctx).Error("auth_failed", "status", 500, "reason", "cannot load user", "error", err)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	c.Set(userKey, user)
	c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", user.ID))))
	return user, nil
}

func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := m.authenticate(c); err != nil {
			return err
		}
		return next(c)
	}
}

func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := m.authenticate(c)
		if err != nil {
			return err
		}
		if !user.IsAdmin {
			logging.FromContext(c.Request().Context()).Warn("access_denied", "status", 403, "reason", "admin only")
			return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
		}
		return next(c)
	}
}

func (m *Middleware) RequireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := m.authenticate(c)
		if err != nil {
			return err
		}
		if !user.IsOwner && !user.IsAdmin {
			logging.FromContext(c.Request().Context()).Warn("access_denied", "status", 403, "reason", "owner only")
			return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
		}
		return next(c)
	}
}

// OptionalAuth guards read-only routes. With public reads on, anonymous
// requests pass and a supplied token is still resolved.
func (m *Middleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.PublicReads && BearerToken(c) == "" {
			return next(c)
		}
		if _, err := m.authenticate(c); err != nil {
			return err
		}
		return next(c)
	}
}

// CurrentUser returns the user stored by the middleware, or nil.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}
