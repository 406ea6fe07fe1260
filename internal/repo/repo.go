// Package repo is the credential-store boundary: user lookup, creation, and
// password verification. The auth service never talks to the users table
// except through UserRepo, so tests can swap in the in-memory implementation.
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/blogplatform/auth_service/internal/models"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user already exists")
	ErrInvalidRole   = errors.New("invalid role")
)

type UserRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// Create persists a new user. The role must be one of the known roles;
	// unknown roles are rejected with ErrInvalidRole before the write.
	Create(ctx context.Context, user *models.User) error
	// VerifyPassword checks a candidate against the stored hash. A missing
	// user and a wrong password are both reported as false, nil.
	VerifyPassword(ctx context.Context, email, candidate string) (bool, error)
	UpdateLoginStats(ctx context.Context, email string) error
}

// NormalizeEmail lower-cases and trims an email. Email is the canonical
// lookup key; every comparison goes through this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
