package authmw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/models"
)

type stubResolver map[string]*models.User

func (s stubResolver) ResolveCurrentUser(_ context.Context, raw string) (*models.User, error) {
	if raw == "broken" {
		return nil, errors.New("db down")
	}
	if u, ok := s[raw]; ok {
		return u, nil
	}
	return nil, identity.ErrUnauthorized
}

func run(t *testing.T, mw echo.MiddlewareFunc, setup func(*http.Request)) (int, *models.User) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *models.User
	err := mw(func(c echo.Context) error {
		seen = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		return he.Code, seen
	}
	return rec.Code, seen
}

func bearer(tok string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+tok) }
}

func TestRequireAuth(t *testing.T) {
	alice := &models.User{ID: 1, Email: "a@b.com"}
	m := New(stubResolver{"alice": alice}, true)

	code, u := run(t, m.RequireAuth, bearer("alice"))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, alice, u)

	code, _ = run(t, m.RequireAuth, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessCookie, Value: "alice"})
	})
	assert.Equal(t, http.StatusOK, code)

	code, _ = run(t, m.RequireAuth, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = run(t, m.RequireAuth, bearer("nobody"))
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = run(t, m.RequireAuth, func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Basic alice") })
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = run(t, m.RequireAuth, bearer("broken"))
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestRoleMiddleware(t *testing.T) {
	m := New(stubResolver{
		"user":  {ID: 1},
		"owner": {ID: 2, IsOwner: true},
		"admin": {ID: 3, IsAdmin: true},
	}, true)

	code, _ := run(t, m.RequireAdmin, bearer("user"))
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = run(t, m.RequireAdmin, bearer("admin"))
	assert.Equal(t, http.StatusOK, code)

	code, _ = run(t, m.RequireOwner, bearer("user"))
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = run(t, m.RequireOwner, bearer("owner"))
	assert.Equal(t, http.StatusOK, code)
	code, _ = run(t, m.RequireOwner, bearer("admin"))
	assert.Equal(t, http.StatusOK, code)
}

func TestOptionalAuth(t *testing.T) {
	m := New(stubResolver{"user": {ID: 1}}, true)

	code, u := run(t, m.OptionalAuth, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Nil(t, u)

	code, u = run(t, m.OptionalAuth, bearer("user"))
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, u)

	m.PublicReads = false
	code, _ = run(t, m.OptionalAuth, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
