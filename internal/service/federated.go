package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// Profile is the identity a federated provider vouches for.
type Profile struct {
	Email   string
	Name    string
	Picture string
}

// SignInWithProvider finds the account for the asserted email or creates it
// together with its cart. Repeated calls return the same account.
func (s *AuthService) SignInWithProvider(ctx context.Context, p Profile) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.federated")

	email := strings.TrimSpace(p.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, created, err := s.findOrCreateFederated(ctx, email, p.Name)
	if err != nil {
		l.Warn("federated_signin_failed", "error", err)
		return nil, err
	}

	tok, err := s.Tokens.IssueAccessToken(user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	if created {
		publish(ctx, s.Events, topicUser, strconv.FormatUint(uint64(user.ID), 10), UserEvent{
			Type: "user_registered", UserID: user.ID, Email: user.Email,
		})
	}
	l.Info("federated_signin_success", "user_id", user.ID, "created", created)
	return &LoginResult{AccessToken: tok.Value, ExpiresAt: tok.ExpiresAt, User: user}, nil
}

func (s *AuthService) findOrCreateFederated(ctx context.Context, email, name string) (*models.User, bool, error) {
	user, err := s.Repo.UserByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !repo.IsNotFound(err) {
		return nil, false, wrapStorage("federated sign in", err)
	}

	user = &models.User{
		Email:      email,
		FullName:   federatedName(email, name),
		IsActive:   true,
		IsVerified: true,
	}
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.EnsureCart(ctx, user.ID)
	})
	if err == nil {
		return user, true, nil
	}
	if !repo.IsUniqueViolation(err) {
		return nil, false, wrapStorage("federated sign in", err)
	}

	// lost a race with a concurrent first sign-in for the same email
	existing, ferr := s.Repo.UserByEmail(ctx, email)
	if ferr == nil {
		return existing, false, nil
	}
	if !repo.IsNotFound(ferr) {
		return nil, false, wrapStorage("federated sign in", ferr)
	}

	// the full name collided with another account; fall back to the email
	user.ID = 0
	user.FullName = email
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.EnsureCart(ctx, user.ID)
	})
	if err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("federated account for %s: %w", email, ErrConflict)
		}
		return nil, false, wrapStorage("federated sign in", err)
	}
	return user, true, nil
}

func federatedName(email, name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return email
}
