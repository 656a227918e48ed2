package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", nil, "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", nil, "").Code)

	down := newTestEnv(t, func(d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("db down") }
	})
	assert.Equal(t, http.StatusServiceUnavailable, down.do(t, http.MethodGet, "/health/ready", nil, "").Code)
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		service.ErrInvalidArgument:    http.StatusBadRequest,
		service.ErrUnauthorized:       http.StatusUnauthorized,
		service.ErrInvalidCredentials: http.StatusUnauthorized,
		service.ErrForbidden:          http.StatusForbidden,
		service.ErrNotFound:           http.StatusNotFound,
		service.ErrConflict:           http.StatusConflict,
		service.ErrStorage:            http.StatusInternalServerError,
		errors.New("boom"):            http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusOf(fmt.Errorf("op: %w", err)), err.Error())
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email": "a@b.com", "full_name": "Alice", "password": "password1",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.do(t, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email": "a@b.com", "full_name": "Other", "password": "password1",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@b.com", "password": "nope-nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@b.com", "password": "password1"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decode[tokenResponse](t, rec)
	assert.Equal(t, "bearer", tok.TokenType)

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "accessToken" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", nil, tok.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[models.User](t, rec)
	assert.Equal(t, "a@b.com", me.Email)

	// the cookie alone authenticates as well
	req := newRequest(http.MethodGet, "/api/v1/auth/me")
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: tok.AccessToken})
	rec = serve(env, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": "ghost@b.com"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/v1/cart", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/v1/cart", nil, "garbage").Code)

	reset, err := env.Tokens.IssuePasswordResetToken("a@b.com")
	require.NoError(t, err)
	env.seedAccount(t, "a@b.com", nil)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/v1/cart", nil, reset.Value).Code)

	// a token for a user that no longer exists
	ghost, err := env.Tokens.IssueAccessToken("ghost@b.com")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/v1/cart", nil, ghost.Value).Code)
}

func TestRoleGuards(t *testing.T) {
	env := newTestEnv(t)
	_, userTok := env.seedAccount(t, "u@b.com", nil)
	_, adminTok := env.seedAccount(t, "admin@b.com", func(u *models.User) { u.IsAdmin = true })

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/v1/carts", nil, userTok).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/carts", nil, adminTok).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/v1/shops", map[string]string{"name": "S"}, userTok).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"name": "C"}, userTok).Code)
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"name": "C"}, adminTok).Code)
}

func TestPublicReads(t *testing.T) {
	open := newTestEnv(t)
	assert.Equal(t, http.StatusOK, open.do(t, http.MethodGet, "/api/v1/products", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, open.do(t, http.MethodGet, "/api/v1/products", nil, "garbage").Code)

	closed := newTestEnv(t, func(d *Deps) { d.AuthMW.PublicReads = false })
	assert.Equal(t, http.StatusUnauthorized, closed.do(t, http.MethodGet, "/api/v1/products", nil, "").Code)
	_, tok := closed.seedAccount(t, "u@b.com", nil)
	assert.Equal(t, http.StatusOK, closed.do(t, http.MethodGet, "/api/v1/products", nil, tok).Code)
}

func TestAccessCookie_SecureFollowsConfig(t *testing.T) {
	accessCookie := func(rec *httptest.ResponseRecorder) *http.Cookie {
		for _, ck := range rec.Result().Cookies() {
			if ck.Name == "accessToken" {
				return ck
			}
		}
		return nil
	}
	login := map[string]string{"email": "a@b.com", "password": "password1"}

	plain := newTestEnv(t)
	plain.seedAccount(t, "a@b.com", nil)
	rec := plain.do(t, http.MethodPost, "/api/v1/auth/login", login, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ck := accessCookie(rec)
	require.NotNil(t, ck)
	assert.False(t, ck.Secure)

	secure := newTestEnv(t, func(d *Deps) { d.Auth.SecureCookies = true })
	secure.seedAccount(t, "a@b.com", nil)
	rec = secure.do(t, http.MethodPost, "/api/v1/auth/login", login, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ck = accessCookie(rec)
	require.NotNil(t, ck)
	assert.True(t, ck.Secure)

	rec = secure.do(t, http.MethodPost, "/api/v1/auth/logout", nil, "")
	ck = accessCookie(rec)
	require.NotNil(t, ck)
	assert.True(t, ck.Secure)
	assert.Equal(t, -1, ck.MaxAge)
}
