package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/identity/internal/auth"
	"github.com/utafrali/identity/internal/domain"
	"github.com/utafrali/identity/internal/repository"
	"github.com/utafrali/identity/pkg/logger"
	"github.com/utafrali/identity/pkg/tracing"
)

// Notifier delivers email jobs either inline or in the background.
type Notifier interface {
	SendDeferred(ctx context.Context, job domain.EmailJob) error
	SendBlocking(ctx context.Context, job domain.EmailJob) error
}

// Credentials groups the hashing and token primitives used by AuthService.
type Credentials struct {
	Hasher       *auth.Hasher
	ActionTokens *auth.ActionTokenCodec
	AccessTokens *auth.AccessTokenIssuer
}

// AuthService implements signup, activation, login and password recovery.
// It keeps no state of its own between calls.
type AuthService struct {
	users     repository.UserRepository
	creds     Credentials
	notifier  Notifier
	actionTTL time.Duration
	ledger    repository.TokenLedger
	logger    *slog.Logger
	tracer    trace.Tracer

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new auth service. actionTTL is the lifetime of
// activation and password reset tokens.
func NewAuthService(
	users repository.UserRepository,
	creds Credentials,
	notifier Notifier,
	actionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		creds:     creds,
		notifier:  notifier,
		actionTTL: actionTTL,
		logger:    logger,
		tracer:    tracing.Tracer("github.com/utafrali/identity/internal/service"),
	}
}

// WithTokenLedger makes action tokens single-use: a token whose id the
// ledger has already seen is rejected as invalid.
func (s *AuthService) WithTokenLedger(ledger repository.TokenLedger) *AuthService {
	s.ledger = ledger
	return s
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// Register creates an inactive account and queues a signup confirmation
// email. Delivery problems are never reported to the caller.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (err error) {
	ctx, end := s.startSpan(ctx, "Register")
	defer func() { end(err) }()

	if err := s.ensureAbsent(ctx, input.Email); err != nil {
		return err
	}

	hashed, err := s.creds.Hasher.Hash(input.Password)
	if err != nil {
		return err
	}

	user := domain.NewUser(input.Email, hashed, input.FullName)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}

	token, err := s.creds.ActionTokens.Issue(user.Email, domain.PurposeActivation, s.actionTTL)
	if err != nil {
		return err
	}
	s.sendDeferred(ctx, domain.EmailJob{
		Template: domain.TemplateConfirmSignup,
		To:       user.Email,
		Username: user.DisplayName(),
		Token:    token,
	})

	s.log(ctx).InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return nil
}

// SendActivationEmail queues a fresh activation link for an inactive user.
func (s *AuthService) SendActivationEmail(ctx context.Context, email string) (err error) {
	ctx, end := s.startSpan(ctx, "SendActivationEmail")
	defer func() { end(err) }()

	user, err := s.getByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsActive {
		return domain.ErrAlreadyActive
	}

	token, err := s.creds.ActionTokens.Issue(user.Email, domain.PurposeActivation, s.actionTTL)
	if err != nil {
		return err
	}
	s.sendDeferred(ctx, domain.EmailJob{
		Template: domain.TemplateActivation,
		To:       user.Email,
		Username: user.DisplayName(),
		Token:    token,
	})

	s.log(ctx).InfoContext(ctx, "activation email queued", slog.String("user_id", user.ID))
	return nil
}

// Activate marks the token's subject active. Activating an already active
// account succeeds without change.
func (s *AuthService) Activate(ctx context.Context, token string) (err error) {
	ctx, end := s.startSpan(ctx, "Activate")
	defer func() { end(err) }()

	claims, err := s.creds.ActionTokens.Parse(token, domain.PurposeActivation)
	if err != nil {
		return err
	}

	user, err := s.getByEmail(ctx, claims.Subject)
	if err != nil {
		return err
	}

	if err := s.consume(ctx, claims); err != nil {
		return err
	}

	user.IsActive = true
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}

	s.log(ctx).InfoContext(ctx, "account activated", slog.String("user_id", user.ID))
	return nil
}

// Login exchanges an email and password for an access token. An unknown
// email and a wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ domain.AccessToken, err error) {
	ctx, end := s.startSpan(ctx, "Login")
	defer func() { end(err) }()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return domain.AccessToken{}, fmt.Errorf("get user by email: %w", err)
		}
		// Spend the same bcrypt work as a real check.
		s.creds.Hasher.Verify(password, s.dummy())
		return domain.AccessToken{}, domain.ErrInvalidCredentials
	}

	if !s.creds.Hasher.Verify(password, user.HashedPassword) {
		return domain.AccessToken{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return domain.AccessToken{}, domain.ErrInactiveAccount
	}

	token, err := s.creds.AccessTokens.Issue(user.ID)
	if err != nil {
		return domain.AccessToken{}, err
	}

	s.log(ctx).InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return domain.NewBearerToken(token), nil
}

// RequestPasswordReset sends a recovery link and waits for the delivery
// attempt. Unlike Login, an unknown email is reported as not found.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (err error) {
	ctx, end := s.startSpan(ctx, "RequestPasswordReset")
	defer func() { end(err) }()

	user, err := s.getByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.creds.ActionTokens.Issue(user.Email, domain.PurposePasswordReset, s.actionTTL)
	if err != nil {
		return err
	}

	job := domain.EmailJob{
		Template: domain.TemplateResetPassword,
		To:       user.Email,
		Username: user.DisplayName(),
		Token:    token,
	}
	if err := s.notifier.SendBlocking(ctx, job); err != nil {
		s.log(ctx).ErrorContext(ctx, "password recovery email failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err)
	}

	s.log(ctx).InfoContext(ctx, "password recovery email sent", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword replaces the password of the token's subject. The account
// must be active.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	ctx, end := s.startSpan(ctx, "ResetPassword")
	defer func() { end(err) }()

	claims, err := s.creds.ActionTokens.Parse(token, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	user, err := s.getByEmail(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return domain.ErrInactiveAccount
	}

	hashed, err := s.creds.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.consume(ctx, claims); err != nil {
		return err
	}
	user.HashedPassword = hashed
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.log(ctx).InfoContext(ctx, "password reset completed", slog.String("user_id", user.ID))
	return nil
}

func (s *AuthService) ensureAbsent(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.ErrConflict
	case errors.Is(err, domain.ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("get user by email: %w", err)
	}
}

func (s *AuthService) getByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (s *AuthService) consume(ctx context.Context, claims *auth.ActionClaims) error {
	if s.ledger == nil {
		return nil
	}

	ttl := time.Second
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > ttl {
			ttl = remaining
		}
	}

	fresh, err := s.ledger.Consume(ctx, claims.ID, ttl)
	if err != nil {
		return fmt.Errorf("consume action token: %w", err)
	}
	if !fresh {
		return domain.ErrInvalidToken
	}
	return nil
}

// sendDeferred hands job to the notifier. A failed hand-off is logged and
// otherwise ignored.
func (s *AuthService) sendDeferred(ctx context.Context, job domain.EmailJob) {
	if err := s.notifier.SendDeferred(ctx, job); err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to queue email",
			slog.String("template", string(job.Template)),
			slog.String("to", job.To),
			slog.String("error", err.Error()),
		)
	}
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.creds.Hasher.Hash("identity-dummy-password")
	})
	return s.dummyHash
}

func (s *AuthService) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, s.logger)
}

func (s *AuthService) startSpan(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "AuthService."+op,
		trace.WithAttributes(attribute.String("auth.operation", op)))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
