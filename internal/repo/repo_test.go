package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()
	gdb, err := db.OpenTest(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &GormRepo{DB: gdb}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestEnsureCart_Idempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	u := models.User{Email: "a@x.io", FullName: "A"}
	require.NoError(t, r.CreateUser(ctx, &u))

	require.NoError(t, r.EnsureCart(ctx, u.ID))
	require.NoError(t, r.EnsureCart(ctx, u.ID))

	var n int64
	require.NoError(t, r.DB.Model(&models.Cart{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	cart, err := r.CartByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, cart.TotalPrice.IsZero())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.CreateUser(ctx, &models.User{Email: "a@x.io", FullName: "A"}))
	err := r.CreateUser(ctx, &models.User{Email: "a@x.io", FullName: "B"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestConsumeReset_SingleUse(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	ok, err := r.ConsumeReset(ctx, "jti-1", "a@x.io", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.ConsumeReset(ctx, "jti-1", "a@x.io", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransaction_RollsBack(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	err := r.Transaction(ctx, func(tx *GormRepo) error {
		if err := tx.CreateUser(ctx, &models.User{Email: "a@x.io", FullName: "A"}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = r.UserByEmail(ctx, "a@x.io")
	assert.True(t, IsNotFound(err))
}
