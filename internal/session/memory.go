package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blogplatform/auth_service/internal/models"
)

// MemoryStore is a mutex-guarded in-process Store. It backs tests and
// single-node deployments; multi-node deployments use GormStore.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.Session
	byToken  map[string]uuid.UUID

	// now is swappable in tests.
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*models.Session),
		byToken:  make(map[string]uuid.UUID),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, in CreateInput) (*models.Session, error) {
	now := m.now()
	s := &models.Session{
		ID:        uuid.New(),
		UserID:    in.UserID,
		UserEmail: in.UserEmail,
		TokenHash: in.TokenHash,
		IP:        in.IP,
		UserAgent: in.UserAgent,
		Remember:  in.Remember,
		CreatedAt: now,
		ExpiresAt: now.Add(ttlFor(in.Remember)),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	m.byToken[s.TokenHash] = s.ID

	out := *s
	return &out, nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.IsExpired(m.now()) {
		m.removeLocked(s)
		return nil, ErrNotFound
	}

	out := *s
	return &out, nil
}

func (m *MemoryStore) GetByToken(_ context.Context, tokenHash string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byToken[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	s := m.sessions[id]
	if s == nil {
		delete(m.byToken, tokenHash)
		return nil, ErrNotFound
	}
	if s.IsExpired(m.now()) {
		m.removeLocked(s)
		return nil, ErrNotFound
	}

	out := *s
	return &out, nil
}

func (m *MemoryStore) DeleteByToken(_ context.Context, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byToken[tokenHash]
	if !ok {
		return false, nil
	}
	s := m.sessions[id]
	delete(m.byToken, tokenHash)
	if s == nil {
		return false, nil
	}
	delete(m.sessions, id)
	return true, nil
}

func (m *MemoryStore) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, s := range m.sessions {
		if s.UserID == userID {
			m.removeLocked(s)
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) Cleanup(_ context.Context) (int64, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, s := range m.sessions {
		if s.IsExpired(now) {
			m.removeLocked(s)
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) removeLocked(s *models.Session) {
	delete(m.sessions, s.ID)
	delete(m.byToken, s.TokenHash)
}
