package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blogplatform/auth_service/internal/hash"
	"github.com/blogplatform/auth_service/internal/models"
)

// MemoryRepo is a concurrency-safe in-memory UserRepo used by tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	byEmail map[string]*models.User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byEmail: make(map[string]*models.User)}
}

func (r *MemoryRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *MemoryRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.byEmail {
		if user.ID == id {
			out := *user
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) Create(_ context.Context, user *models.User) error {
	if !user.Role.Valid() {
		return ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(user.Email)
	if _, ok := r.byEmail[email]; ok {
		return ErrAlreadyExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = email
	user.CreatedAt = time.Now()

	stored := *user
	r.byEmail[email] = &stored
	return nil
}

// Update replaces a stored user record, matched by normalized email.
func (r *MemoryRepo) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(user.Email)
	if _, ok := r.byEmail[email]; !ok {
		return ErrNotFound
	}
	stored := *user
	stored.Email = email
	r.byEmail[email] = &stored
	return nil
}

func (r *MemoryRepo) VerifyPassword(ctx context.Context, email, candidate string) (bool, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return hash.CheckPassword(user.PasswordHash, candidate), nil
}

func (r *MemoryRepo) UpdateLoginStats(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	user.LastLoginAt = &now
	user.LoginCount++
	return nil
}
