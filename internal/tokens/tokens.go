package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every verification failure: bad signature,
// wrong algorithm, expiry, wrong purpose and missing subject.
var ErrInvalidToken = errors.New("invalid token")

type Purpose string

const (
	PurposeAccess Purpose = "access"
	PurposeReset  Purpose = "reset"
)

type Claims struct {
	Purpose Purpose `json:"typ"`
	jwt.RegisteredClaims
}

type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

type Config struct {
	Secret    []byte
	AccessTTL time.Duration
	ResetTTL  time.Duration
}

type Service struct {
	secret    []byte
	accessTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg Config, opts ...Option) *Service {
	s := &Service{
		secret:    cfg.Secret,
		accessTTL: cfg.AccessTTL,
		resetTTL:  cfg.ResetTTL,
		now:       time.Now,
	}
	if s.accessTTL <= 0 {
		s.accessTTL = 4000 * time.Minute
	}
	if s.resetTTL <= 0 {
		s.resetTTL = 15 * time.Minute
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

func (s *Service) IssueAccessToken(email string) (Token, error) {
	return s.issue(email, PurposeAccess, s.accessTTL)
}

func (s *Service) IssuePasswordResetToken(email string) (Token, error) {
	return s.issue(email, PurposeReset, s.resetTTL)
}

func (s *Service) issue(email string, purpose Purpose, ttl time.Duration) (Token, error) {
	now := s.now().UTC()
	exp := now.Add(ttl)
	jti := uuid.NewString()

	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: raw, ID: jti, ExpiresAt: exp}, nil
}

func (s *Service) Verify(raw string, purpose Purpose) (string, error) {
	claims, err := s.Parse(raw, purpose)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *Service) Parse(raw string, purpose Purpose) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
