package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/mail"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	gdb, err := db.OpenTest(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &repo.GormRepo{DB: gdb}
}

type recordedEvent struct {
	Topic string
	Key   string
	Event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *fakePublisher) all() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

type fakeMailer struct {
	sent chan *mail.Message
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan *mail.Message, 8)}
}

func (m *fakeMailer) Send(_ context.Context, msg *mail.Message) error {
	m.sent <- msg
	return nil
}

func (m *fakeMailer) next(t *testing.T) *mail.Message {
	t.Helper()
	select {
	case msg := <-m.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no mail sent")
		return nil
	}
}

func (m *fakeMailer) none(t *testing.T) {
	t.Helper()
	select {
	case msg := <-m.sent:
		t.Fatalf("unexpected mail to %v", msg.To)
	case <-time.After(100 * time.Millisecond):
	}
}

func newTestHasher(t *testing.T) *hash.Manager {
	t.Helper()
	h, err := hash.NewManager(hash.Bcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func newTestTokens() *tokens.Service {
	return tokens.NewService(tokens.Config{
		Secret:    []byte("test-secret"),
		AccessTTL: 4000 * time.Minute,
		ResetTTL:  15 * time.Minute,
	})
}

func seedUser(t *testing.T, r *repo.GormRepo, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, FullName: email, IsActive: true}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func seedShop(t *testing.T, r *repo.GormRepo, owner *models.User) *models.Shop {
	t.Helper()
	s := &models.Shop{Name: "shop of " + owner.Email, OwnerID: owner.ID}
	require.NoError(t, r.CreateShop(context.Background(), s))
	return s
}

func seedProduct(t *testing.T, r *repo.GormRepo, shopID uint, name, price string) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), IsAvailable: true, Count: 10, ShopID: shopID}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func unitPrice(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
