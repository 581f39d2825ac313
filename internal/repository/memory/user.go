package memory

import (
	"context"
	"sync"

	"github.com/utafrali/identity/internal/domain"
)

// UserRepository is an in-process repository.UserRepository. Stored users
// are copied on the way in and out.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	idIndex map[string]string // email -> id
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]domain.User),
		idIndex: make(map[string]string),
	}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.idIndex[user.Email]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byID[user.ID]; ok {
		return domain.ErrConflict
	}
	r.byID[user.ID] = *user
	r.idIndex[user.Email] = user.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idIndex[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.byID[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if prev.Email != user.Email {
		if _, taken := r.idIndex[user.Email]; taken {
			return domain.ErrConflict
		}
		delete(r.idIndex, prev.Email)
		r.idIndex[user.Email] = user.ID
	}
	r.byID[user.ID] = *user
	return nil
}
