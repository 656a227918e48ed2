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

type UserService struct {
	Repo   *repo.GormRepo
	Hasher PasswordHasher
	Events EventPublisher
}

// UserPatch lists the fields a user may change. Nil fields are left untouched.
type UserPatch struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Repo.UserByID(ctx, id)
	if err != nil {
		return nil, wrapStorage("get user", err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	total, users, err := s.Repo.ListUsers(ctx, offset, limit)
	if err != nil {
		return 0, nil, wrapStorage("list users", err)
	}
	return total, users, nil
}

func (s *UserService) Update(ctx context.Context, id uint, p UserPatch) (*models.User, error) {
	fields := map[string]any{}
	if p.FullName != nil {
		name := strings.TrimSpace(*p.FullName)
		if name == "" {
			return nil, fmt.Errorf("full name cannot be empty: %w", ErrInvalidArgument)
		}
		fields["full_name"] = name
	}
	if p.Password != nil {
		if err := validatePassword(*p.Password); err != nil {
			return nil, err
		}
		h, err := s.Hasher.Hash(*p.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		fields["password_hash"] = h
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("nothing to update: %w", ErrInvalidArgument)
	}

	var user *models.User
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := tx.UpdateUser(ctx, id, fields); err != nil {
			if repo.IsUniqueViolation(err) {
				return fmt.Errorf("full name already taken: %w", ErrConflict)
			}
			return err
		}
		u, err := tx.UserByID(ctx, id)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, wrapStorage("update user", err)
	}

	publish(ctx, s.Events, topicUser, strconv.FormatUint(uint64(id), 10), UserEvent{
		Type: "user_updated", UserID: id, Email: user.Email,
	})
	return user, nil
}

// Delete removes the user and their cart. Users that still own shops are kept.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "user.delete", "user_id", id)

	var email string
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		u, err := tx.UserByID(ctx, id)
		if err != nil {
			return err
		}
		email = u.Email

		shops, err := tx.CountShopsByOwner(ctx, id)
		if err != nil {
			return err
		}
		if shops > 0 {
			return fmt.Errorf("user owns %d shops: %w", shops, ErrConflict)
		}

		cart, err := tx.LockCartByUser(ctx, id)
		switch {
		case err == nil:
			if err := tx.DeleteCartItems(ctx, cart.ID); err != nil {
				return err
			}
			if err := tx.DeleteCart(ctx, cart.ID); err != nil {
				return err
			}
		case !repo.IsNotFound(err):
			return err
		}
		return tx.DeleteUser(ctx, id)
	})
	if err != nil {
		l.Warn("delete_user_failed", "error", err)
		return wrapStorage("delete user", err)
	}

	publish(ctx, s.Events, topicUser, strconv.FormatUint(uint64(id), 10), UserEvent{
		Type: "user_deleted", UserID: id, Email: email,
	})
	l.Info("delete_user_success")
	return nil
}
