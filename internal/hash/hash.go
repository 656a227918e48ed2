package hash

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

var ErrUnknownHash = errors.New("unrecognized password hash format")

type Method string

const (
	Bcrypt   Method = "bcrypt"
	Argon2ID Method = "argon2id"
)

// Hasher performs one-way password hashing and verification.
// Check reports a mismatch as (false, nil); errors mean the hash itself is unusable.
type Hasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) (bool, error)
}

type BcryptHasher struct {
	Cost int
}

var _ Hasher = BcryptHasher{}

func (h BcryptHasher) cost() int {
	if h.Cost < bcrypt.MinCost || h.Cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

func (h BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(b), nil
}

func (BcryptHasher) Check(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt compare password hash: %w", err)
	}
}

type Argon2IDHasher struct {
	Params *argon2id.Params
}

var _ Hasher = Argon2IDHasher{}

func (h Argon2IDHasher) Hash(password string) (string, error) {
	params := h.Params
	if params == nil {
		params = argon2id.DefaultParams
	}
	s, err := argon2id.CreateHash(password, params)
	if err != nil {
		return "", fmt.Errorf("argon hash: %w", err)
	}
	return s, nil
}

func (Argon2IDHasher) Check(password, hash string) (bool, error) {
	ok, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("argon compare password hash: %w", err)
	}
	return ok, nil
}

// Manager hashes with its default method and verifies any hash it recognizes,
// so stored hashes keep working after the default changes.
type Manager struct {
	method  Method
	hashers map[Method]Hasher
}

func NewManager(method Method, bcryptCost int) (*Manager, error) {
	m := &Manager{
		method: method,
		hashers: map[Method]Hasher{
			Bcrypt:   BcryptHasher{Cost: bcryptCost},
			Argon2ID: Argon2IDHasher{},
		},
	}
	if _, ok := m.hashers[method]; !ok {
		return nil, fmt.Errorf("hasher not found: %s", method)
	}
	return m, nil
}

func (m *Manager) Method() Method { return m.method }

func (m *Manager) Hash(password string) (string, error) {
	return m.hashers[m.method].Hash(password)
}

func (m *Manager) Check(password, hash string) (bool, error) {
	mt, err := Identify(hash)
	if err != nil {
		return false, err
	}
	return m.hashers[mt].Check(password, hash)
}

// NeedsRehash reports whether a verified hash should be replaced by one made
// with the current default method and cost.
func (m *Manager) NeedsRehash(hash string) bool {
	mt, err := Identify(hash)
	if err != nil {
		return false
	}
	if mt != m.method {
		return true
	}
	if mt == Bcrypt {
		cost, err := bcrypt.Cost([]byte(hash))
		if err != nil {
			return false
		}
		return cost < m.hashers[Bcrypt].(BcryptHasher).cost()
	}
	return false
}

func Identify(hash string) (Method, error) {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return Argon2ID, nil
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return Bcrypt, nil
	default:
		return "", ErrUnknownHash
	}
}
