package httpserver

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/oauth"
	"github.com/Skotchmaster/storefront/internal/service"
)

const stateCookie = "oauthState"

type OAuthProvider interface {
	Configured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.Profile, error)
}

type OAuthHTTP struct {
	Svc      *service.AuthService
	Provider OAuthProvider

	SecureCookies bool
}

func (h *OAuthHTTP) Login(c echo.Context) error {
	if h.Provider == nil || !h.Provider.Configured() {
		return echo.NewHTTPError(http.StatusNotFound, "google sign-in is not configured")
	}
	state := uuid.NewString()
	c.SetCookie(CreateCookie(stateCookie, state, "/api/v1/auth/google", time.Now().Add(10*time.Minute), h.SecureCookies))
	return c.Redirect(http.StatusFound, h.Provider.AuthCodeURL(state))
}

func (h *OAuthHTTP) Callback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.google_callback")

	if h.Provider == nil || !h.Provider.Configured() {
		return echo.NewHTTPError(http.StatusNotFound, "google sign-in is not configured")
	}

	ck, err := c.Cookie(stateCookie)
	state := c.QueryParam("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(ck.Value), []byte(state)) != 1 {
		l.Warn("oauth_failed", "status", 400, "reason", "state mismatch")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid oauth state")
	}
	c.SetCookie(DeleteCookie(stateCookie, "/api/v1/auth/google", h.SecureCookies))

	code := c.QueryParam("code")
	if code == "" {
		return badRequest(l, "oauth_failed", "missing code", nil)
	}

	profile, err := h.Provider.Exchange(ctx, code)
	if err != nil {
		l.Warn("oauth_failed", "status", 401, "reason", "exchange failed", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "google sign-in failed")
	}
	if !profile.EmailVerified {
		l.Warn("oauth_failed", "status", 401, "reason", "email not verified by provider")
		return echo.NewHTTPError(http.StatusUnauthorized, "google account email is not verified")
	}

	res, err := h.Svc.SignInWithProvider(ctx, service.Profile{
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.Picture,
	})
	if err != nil {
		return fail(l, "oauth_failed", err)
	}
	c.SetCookie(CreateCookie(authmw.AccessCookie, res.AccessToken, "/", res.ExpiresAt, h.SecureCookies))
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt.Unix(),
	})
}
