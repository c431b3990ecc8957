package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/minimart/apiserver/internal/store"
	"github.com/minimart/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// ResetTokenRepository defines persistence operations for reset tokens.
type ResetTokenRepository interface {
	Create(ctx context.Context, token types.ResetToken) (types.ResetToken, error)
	GetByToken(ctx context.Context, token string) (types.ResetToken, error)
	MarkUsed(ctx context.Context, token string) error
}

// UserService encapsulates account and reset-token use-cases.
type UserService struct {
	users    UserRepository
	tokens   ResetTokenRepository
	resetTTL time.Duration
}

func NewUserService(users UserRepository, tokens ResetTokenRepository, resetTTL time.Duration) *UserService {
	return &UserService{
		users:    users,
		tokens:   tokens,
		resetTTL: resetTTL,
	}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// Create persists a new account. The role must be admin or user.
func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.Role != types.RoleAdmin && user.Role != types.RoleUser {
		return types.User{}, fmt.Errorf("%w: invalid role, must be 'admin' or 'user'", ErrValidation)
	}
	return s.users.Create(ctx, user)
}

// CreateResetToken issues a fresh reset token for the given account.
// Returns store.ErrNotFound when no account has the email; the caller
// decides whether to reveal that.
func (s *UserService) CreateResetToken(ctx context.Context, email string) (types.ResetToken, error) {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		return types.ResetToken{}, err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return types.ResetToken{}, err
	}

	return s.tokens.Create(ctx, types.ResetToken{
		Email:     email,
		Token:     base64.RawURLEncoding.EncodeToString(raw),
		ExpiresAt: time.Now().Add(s.resetTTL),
	})
}

// ResetPassword consumes the token and stores the new password hash.
// A token is valid at most once; expired or used tokens fail with a
// validation error.
func (s *UserService) ResetPassword(ctx context.Context, token, passwordHash string) error {
	rt, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired reset token", ErrValidation)
		}
		return err
	}

	if rt.Used || time.Now().After(rt.ExpiresAt) {
		return fmt.Errorf("%w: invalid or expired reset token", ErrValidation)
	}

	if err := s.tokens.MarkUsed(ctx, token); err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, rt.Email, passwordHash)
}
