package repository

import (
	"context"
	"time"

	"github.com/utafrali/identity/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user. A duplicate email yields domain.ErrConflict.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address. The match is exact.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update persists the mutable fields of an existing user.
	Update(ctx context.Context, user *domain.User) error
}

// TokenLedger records consumed action token ids.
type TokenLedger interface {
	// Consume marks id as used for ttl. It returns false when id was
	// already consumed.
	Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
}
