package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account in the identity store.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	FullName       string    `json:"full_name,omitempty"`
	IsActive       bool      `json:"is_active"`
	IsSuperuser    bool      `json:"is_superuser"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser returns an inactive, non-superuser account with a fresh ID.
func NewUser(email, hashedPassword, fullName string) *User {
	now := time.Now().UTC()
	return &User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hashedPassword,
		FullName:       fullName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// DisplayName is the name used to greet the user in emails.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
