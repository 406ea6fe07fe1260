package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInput(userID uuid.UUID, tokenHash string, remember bool) CreateInput {
	return CreateInput{
		UserID:    userID,
		UserEmail: "jane@example.com",
		TokenHash: tokenHash,
		Remember:  remember,
		IP:        "203.0.113.7",
		UserAgent: "go-test",
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	created, err := store.Create(ctx, newInput(userID, "hash-1", false))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, userID, created.UserID)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), created.ExpiresAt, time.Second)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	byToken, err := store.GetByToken(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byToken.ID)
}

func TestMemoryStore_RememberExtendsExpiry(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	s, err := store.Create(ctx, newInput(uuid.New(), "hash-r", true))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(RememberTTL), s.ExpiresAt, time.Second)
}

func TestMemoryStore_GetLazilyExpires(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	s, err := store.Create(ctx, newInput(uuid.New(), "hash-exp", false))
	require.NoError(t, err)

	// Move the clock past the expiry horizon.
	store.now = func() time.Time { return time.Now().Add(DefaultTTL + time.Minute) }

	got, err := store.Get(ctx, s.ID)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrNotFound)

	// The record was deleted as a side effect, so the token lookup misses too.
	byToken, err := store.GetByToken(ctx, "hash-exp")
	assert.Nil(t, byToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteByToken_Idempotent(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, newInput(uuid.New(), "hash-del", false))
	require.NoError(t, err)

	found, err := store.DeleteByToken(ctx, "hash-del")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.DeleteByToken(ctx, "hash-del")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = store.DeleteByToken(ctx, "never-existed")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_DeleteByToken_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, newInput(uuid.New(), "hash-race", false))
	require.NoError(t, err)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			found, err := store.DeleteByToken(ctx, "hash-race")
			assert.NoError(t, err)
			results[i] = found
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, found := range results {
		if found {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestMemoryStore_DeleteAllForUser(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()
	otherID := uuid.New()

	for _, h := range []string{"h1", "h2", "h3"} {
		_, err := store.Create(ctx, newInput(userID, h, false))
		require.NoError(t, err)
	}
	other, err := store.Create(ctx, newInput(otherID, "h-other", false))
	require.NoError(t, err)

	count, err := store.DeleteAllForUser(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	for _, h := range []string{"h1", "h2", "h3"} {
		_, err := store.GetByToken(ctx, h)
		assert.ErrorIs(t, err, ErrNotFound)
	}

	// Unrelated sessions survive the sweep.
	got, err := store.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)
}

func TestMemoryStore_Cleanup(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, newInput(uuid.New(), "h-short", false))
	require.NoError(t, err)
	kept, err := store.Create(ctx, newInput(uuid.New(), "h-long", true))
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(DefaultTTL + time.Minute) }

	removed, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	got, err := store.Get(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, kept.ID, got.ID)

	// A second sweep has nothing left to do.
	removed, err = store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestMemoryStore_ConcurrentCreateAndDelete(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := newInput(userID, uuid.NewString(), false)
			s, err := store.Create(ctx, in)
			assert.NoError(t, err)
			_, err = store.Get(ctx, s.ID)
			assert.NoError(t, err)
			found, err := store.DeleteByToken(ctx, in.TokenHash)
			assert.NoError(t, err)
			assert.True(t, found)
		}(i)
	}
	wg.Wait()

	count, err := store.DeleteAllForUser(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
