package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/identity/internal/domain"
)

// Authenticate resolves a bearer token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.creds.AccessTokens.Validate(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrInactiveAccount
	}
	return user, nil
}

// EnsureSuperuser creates an active superuser with the given credentials
// unless an account with that email already exists. It reports whether a
// user was created.
func (s *AuthService) EnsureSuperuser(ctx context.Context, email, password string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return false, fmt.Errorf("get user by email: %w", err)
	}

	hashed, err := s.creds.Hasher.Hash(password)
	if err != nil {
		return false, err
	}

	user := domain.NewUser(email, hashed, "")
	user.IsActive = true
	user.IsSuperuser = true
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("create superuser: %w", err)
	}

	s.log(ctx).InfoContext(ctx, "superuser created", slog.String("user_id", user.ID))
	return true, nil
}

// SendTestEmail sends the test template to addr, inline or in the background.
func (s *AuthService) SendTestEmail(ctx context.Context, addr string, background bool) error {
	job := domain.EmailJob{Template: domain.TemplateTest, To: addr}
	if background {
		s.sendDeferred(ctx, job)
		return nil
	}

	if err := s.notifier.SendBlocking(ctx, job); err != nil {
		s.log(ctx).ErrorContext(ctx, "test email failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err)
	}
	return nil
}
