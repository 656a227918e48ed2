package identity

import (
	"context"
	"errors"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

// ErrUnauthorized is returned for bad tokens and for tokens whose subject no
// longer exists; callers cannot tell the two apart.
var ErrUnauthorized = errors.New("unauthorized")

type Verifier interface {
	Verify(raw string, purpose tokens.Purpose) (string, error)
}

type UserLookup interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Resolver struct {
	Tokens Verifier
	Users  UserLookup
}

func NewResolver(t Verifier, users *repo.GormRepo) *Resolver {
	return &Resolver{Tokens: t, Users: users}
}

func (r *Resolver) ResolveCurrentUser(ctx context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, ErrUnauthorized
	}
	email, err := r.Tokens.Verify(raw, tokens.PurposeAccess)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := r.Users.UserByEmail(ctx, email)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}
