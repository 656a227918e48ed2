package service

import (
	"context"
	"fmt"
	netmail "net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/mail"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input past 72 bytes
	MaxPasswordLength = 72
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) (bool, error)
	NeedsRehash(hash string) bool
}

type TokenIssuer interface {
	IssueAccessToken(email string) (tokens.Token, error)
	IssuePasswordResetToken(email string) (tokens.Token, error)
	Parse(raw string, purpose tokens.Purpose) (*tokens.Claims, error)
}

type AuthService struct {
	Repo    *repo.GormRepo
	Hasher  PasswordHasher
	Tokens  TokenIssuer
	Mailer  mail.Mailer
	Events  EventPublisher
	BaseURL string
	From    mail.Address

	// MailTimeout bounds a background delivery. Zero means 30 seconds.
	MailTimeout time.Duration
}

type SignUpInput struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *models.User
}

func validateEmail(email string) error {
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("malformed email: %w", ErrInvalidArgument)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", MinPasswordLength, ErrInvalidArgument)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d bytes: %w", MaxPasswordLength, ErrInvalidArgument)
	}
	return nil
}

// SignUp registers an inactive account with an empty cart and mails a
// verification link.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if in.FullName == "" {
		return nil, fmt.Errorf("full name is required: %w", ErrInvalidArgument)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	taken, err := s.Repo.UserTaken(ctx, in.Email, in.FullName)
	if err != nil {
		return nil, wrapStorage("sign up", err)
	}
	if taken {
		l.Warn("signup_failed", "status", 409, "reason", "email or name already registered")
		return nil, fmt.Errorf("email or full name already registered: %w", ErrConflict)
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("signup_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	verification := uuid.NewString()
	user := &models.User{
		Email:             in.Email,
		FullName:          in.FullName,
		PasswordHash:      pwHash,
		VerificationToken: &verification,
	}
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			if repo.IsUniqueViolation(err) {
				return fmt.Errorf("email or full name already registered: %w", ErrConflict)
			}
			return err
		}
		return tx.EnsureCart(ctx, user.ID)
	})
	if err != nil {
		return nil, wrapStorage("sign up", err)
	}

	link := s.BaseURL + "/api/v1/auth/verify?token=" + url.QueryEscape(verification)
	s.sendAsync(ctx, "verification", func() (*mail.Message, error) {
		return mail.VerificationMessage(s.From, mail.Address{Name: user.FullName, Address: user.Email}, link)
	})
	publish(ctx, s.Events, topicUser, strconv.FormatUint(uint64(user.ID), 10), UserEvent{
		Type: "user_registered", UserID: user.ID, Email: user.Email,
	})

	l.Info("signup_success", "user_id", user.ID)
	return user, nil
}

// VerifyEmail activates the account holding the verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("verification token is required: %w", ErrInvalidArgument)
	}

	var user *models.User
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		u, err := tx.UserByVerificationToken(ctx, token)
		if err != nil {
			if repo.IsNotFound(err) {
				return fmt.Errorf("unknown verification token: %w", ErrNotFound)
			}
			return err
		}
		if err := tx.UpdateUser(ctx, u.ID, map[string]any{
			"is_verified":        true,
			"is_active":          true,
			"verification_token": nil,
		}); err != nil {
			return err
		}
		u.IsVerified, u.IsActive, u.VerificationToken = true, true, nil
		user = u
		return nil
	})
	if err != nil {
		return nil, wrapStorage("verify email", err)
	}

	logging.FromContext(ctx).Info("email_verified", "user_id", user.ID)
	return user, nil
}

// Login never tells unknown email, wrong password and federated-only accounts apart.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if repo.IsNotFound(err) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, wrapStorage("login", err)
	}
	if user.PasswordHash == "" {
		l.Warn("login_failed", "status", 401, "reason", "account has no password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	ok, err := s.Hasher.Check(password, user.PasswordHash)
	if err != nil {
		l.Error("login_failed", "status", 401, "reason", "stored hash unusable", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	if s.Hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	tok, err := s.Tokens.IssueAccessToken(user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	l.Info("login_success", "user_id", user.ID)
	return &LoginResult{AccessToken: tok.Value, ExpiresAt: tok.ExpiresAt, User: user}, nil
}

func (s *AuthService) rehash(ctx context.Context, user *models.User, password string) {
	l := logging.FromContext(ctx)
	h, err := s.Hasher.Hash(password)
	if err != nil {
		l.Warn("rehash_failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.Repo.UpdateUser(ctx, user.ID, map[string]any{"password_hash": h}); err != nil {
		l.Warn("rehash_failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = h
}

// ForgotPassword mails a reset link when the account exists. The caller sees
// the same outcome either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")

	user, err := s.Repo.UserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if repo.IsNotFound(err) {
			l.Info("reset_skipped", "reason", "unknown email")
			return nil
		}
		return wrapStorage("forgot password", err)
	}

	tok, err := s.Tokens.IssuePasswordResetToken(user.Email)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	link := s.BaseURL + "/reset-password?token=" + url.QueryEscape(tok.Value)
	s.sendAsync(ctx, "password_reset", func() (*mail.Message, error) {
		return mail.PasswordResetMessage(s.From, mail.Address{Name: user.FullName, Address: user.Email}, link)
	})

	l.Info("reset_requested", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token once and stores the new password hash.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.reset_password")

	if err := validatePassword(newPassword); err != nil {
		return err
	}
	claims, err := s.Tokens.Parse(token, tokens.PurposeReset)
	if err != nil {
		l.Warn("reset_failed", "status", 401, "reason", "invalid token")
		return fmt.Errorf("reset token: %w", ErrUnauthorized)
	}

	pwHash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		user, err := tx.UserByEmail(ctx, claims.Subject)
		if err != nil {
			if repo.IsNotFound(err) {
				return fmt.Errorf("reset token subject: %w", ErrUnauthorized)
			}
			return err
		}
		fresh, err := tx.ConsumeReset(ctx, claims.ID, claims.Subject, time.Now().UTC())
		if err != nil {
			return err
		}
		if !fresh {
			return fmt.Errorf("reset token already used: %w", ErrUnauthorized)
		}
		return tx.UpdateUser(ctx, user.ID, map[string]any{"password_hash": pwHash})
	})
	if err != nil {
		l.Warn("reset_failed", "error", err)
		return wrapStorage("reset password", err)
	}

	l.Info("reset_success")
	return nil
}

// sendAsync renders and delivers a message without holding up the request.
func (s *AuthService) sendAsync(ctx context.Context, kind string, build func() (*mail.Message, error)) {
	if s.Mailer == nil {
		return
	}
	timeout := s.MailTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	l := logging.FromContext(ctx).With("mail", kind)
	bg := context.WithoutCancel(ctx)

	go func() {
		msg, err := build()
		if err != nil {
			l.Error("mail_render_failed", "error", err)
			return
		}
		sendCtx, cancel := context.WithTimeout(bg, timeout)
		defer cancel()
		if err := s.Mailer.Send(sendCtx, msg); err != nil {
			l.Error("mail_send_failed", "error", err)
			return
		}
		l.Info("mail_sent")
	}()
}
