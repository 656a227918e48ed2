package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/mail"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

type testEnv struct {
	E      *echo.Echo
	Repo   *repo.GormRepo
	Tokens *tokens.Service
	Deps   *Deps
}

type envOption func(*Deps)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gdb, err := db.OpenTest(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	r := &repo.GormRepo{DB: gdb}
	hasher, err := hash.NewManager(hash.Bcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	tk := tokens.NewService(tokens.Config{Secret: []byte("test-secret"), AccessTTL: time.Hour, ResetTTL: 15 * time.Minute})
	events := mykafka.Nop{}

	authSvc := &service.AuthService{
		Repo:    r,
		Hasher:  hasher,
		Tokens:  tk,
		Mailer:  mail.LogMailer{},
		Events:  events,
		BaseURL: "http://localhost:8080",
	}
	d := &Deps{
		Auth:    &AuthHTTP{Svc: authSvc},
		OAuth:   &OAuthHTTP{Svc: authSvc},
		Cart:    &CartHTTP{Svc: &service.CartService{Repo: r, Events: events}},
		Users:   &UserHTTP{Svc: &service.UserService{Repo: r, Hasher: hasher, Events: events}},
		Catalog: &CatalogHTTP{Svc: &service.CatalogService{Repo: r, Events: events}},
		AuthMW:  authmw.New(identity.NewResolver(tk, r), true),
	}
	for _, o := range opts {
		o(d)
	}

	e := echo.New()
	e.Use(loggingmw.RequestLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	Register(e, d)
	return &testEnv{E: e, Repo: r, Tokens: tk, Deps: d}
}

// do sends body as JSON and authenticates with token when it is not empty.
func (env *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seedAccount stores a user with a password and returns a bearer token for it.
func (env *testEnv) seedAccount(t *testing.T, email string, mutate func(*models.User)) (*models.User, string) {
	t.Helper()
	pw, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Email: email, FullName: email, PasswordHash: string(pw), IsActive: true}
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, env.Repo.CreateUser(context.Background(), u))
	tok, err := env.Tokens.IssueAccessToken(email)
	require.NoError(t, err)
	return u, tok.Value
}

func (env *testEnv) seedProduct(t *testing.T, owner *models.User, name, price string) *models.Product {
	t.Helper()
	ctx := context.Background()
	shop := &models.Shop{Name: "shop " + name, OwnerID: owner.ID}
	require.NoError(t, env.Repo.CreateShop(ctx, shop))
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), IsAvailable: true, Count: 5, ShopID: shop.ID}
	require.NoError(t, env.Repo.CreateProduct(ctx, p))
	return p
}

type cartBody struct {
	ID         uint            `json:"id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []struct {
		ProductID  uint            `json:"product_id"`
		Quantity   int             `json:"quantity"`
		Price      decimal.Decimal `json:"price"`
		TotalPrice decimal.Decimal `json:"total_price"`
	} `json:"items"`
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}
