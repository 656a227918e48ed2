package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInWithProvider_Idempotent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first, err := f.svc.SignInWithProvider(ctx, Profile{Email: "x@y.com", Name: "X"})
	require.NoError(t, err)
	second, err := f.svc.SignInWithProvider(ctx, Profile{Email: "x@y.com", Name: "X"})
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.True(t, first.User.IsVerified)
	assert.True(t, first.User.IsActive)
	assert.NotEmpty(t, second.AccessToken)

	_, err = f.repo.CartByUser(ctx, first.User.ID)
	require.NoError(t, err)

	// only the first call registers a user
	assert.Len(t, f.events.all(), 1)
}

func TestSignInWithProvider_NoPasswordLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignInWithProvider(ctx, Profile{Email: "x@y.com", Name: "X"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "x@y.com", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "x@y.com", "anything-at-all")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignInWithProvider_LinksExistingAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u := f.signUp(t, "x@y.com", "password1")

	res, err := f.svc.SignInWithProvider(ctx, Profile{Email: "x@y.com", Name: "X"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
}

func TestSignInWithProvider_NameCollision(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	a, err := f.svc.SignInWithProvider(ctx, Profile{Email: "a@y.com", Name: "Same Name"})
	require.NoError(t, err)
	b, err := f.svc.SignInWithProvider(ctx, Profile{Email: "b@y.com", Name: "Same Name"})
	require.NoError(t, err)

	assert.NotEqual(t, a.User.ID, b.User.ID)
	assert.Equal(t, "b@y.com", b.User.FullName)
}

func TestSignInWithProvider_RejectsBadEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.SignInWithProvider(context.Background(), Profile{Email: "nope"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}
