package service

import (
	"errors"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/repo"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrStorage            = errors.New("storage failure")
)

var domainErrors = []error{
	ErrInvalidArgument, ErrNotFound, ErrUnauthorized,
	ErrInvalidCredentials, ErrForbidden, ErrConflict, ErrStorage,
}

// wrapStorage passes domain errors through and marks everything else as a
// storage failure while keeping the cause reachable for errors.Is.
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	if repo.IsNotFound(err) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
