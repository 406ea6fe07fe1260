// Package session owns the registry of active refresh sessions. A refresh
// token is only honorable while its session record exists and has not
// expired; the store, not the token signature, is authoritative for liveness.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/blogplatform/auth_service/internal/models"
)

const (
	// DefaultTTL is the expiry horizon for sessions without remember-me.
	DefaultTTL = 24 * time.Hour
	// RememberTTL is the expiry horizon for remember-me sessions.
	RememberTTL = 7 * 24 * time.Hour
)

var ErrNotFound = errors.New("session not found")

// CreateInput carries everything needed to open a new refresh session.
// TokenHash is the SHA-256 hex of the refresh token; plaintext tokens are
// never stored.
type CreateInput struct {
	UserID    uuid.UUID
	UserEmail string
	TokenHash string
	Remember  bool
	IP        string
	UserAgent string
}

// Store is the session registry. Implementations must be safe for concurrent
// use, and DeleteByToken must be an atomic check-and-delete: when two
// requests race over the same token, exactly one may observe found=true.
type Store interface {
	Create(ctx context.Context, in CreateInput) (*models.Session, error)
	// Get returns the session by id, lazily deleting it if expired.
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// GetByToken returns the live session backing a refresh-token hash.
	GetByToken(ctx context.Context, tokenHash string) (*models.Session, error)
	// DeleteByToken removes the session for a token hash and reports whether
	// one existed. Absence is not an error.
	DeleteByToken(ctx context.Context, tokenHash string) (bool, error)
	// DeleteAllForUser removes every session of a user and returns the count.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	// Cleanup removes all expired sessions and returns the count.
	Cleanup(ctx context.Context) (int64, error)
}

func ttlFor(remember bool) time.Duration {
	if remember {
		return RememberTTL
	}
	return DefaultTTL
}
