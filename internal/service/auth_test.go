package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogplatform/auth_service/internal/hash"
	"github.com/blogplatform/auth_service/internal/models"
	"github.com/blogplatform/auth_service/internal/repo"
	"github.com/blogplatform/auth_service/internal/session"
	"github.com/blogplatform/auth_service/internal/tokens"
)

type testEnv struct {
	svc      *AuthService
	users    *repo.MemoryRepo
	sessions *session.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := repo.NewMemoryRepo()
	sessions := session.NewMemoryStore()
	return &testEnv{
		svc: &AuthService{
			Users:    users,
			Sessions: sessions,
			Tokens:   tokens.NewService([]byte("test-jwt-secret"), []byte("test-refresh-secret")),
		},
		users:    users,
		sessions: sessions,
	}
}

func (env *testEnv) seedUser(t *testing.T, email, pw string, active bool) *models.User {
	t.Helper()

	pwHash, err := hash.HashPassword(pw)
	require.NoError(t, err)

	user := &models.User{
		Username:     "jane",
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleAuthor,
		IsActive:     active,
	}
	require.NoError(t, env.users.Create(context.Background(), user))
	return user
}

func meta() ClientMeta {
	return ClientMeta{IP: "203.0.113.7", UserAgent: "go-test"}
}

func TestLogin_Success_NormalizesEmailAndStripsPassword(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "jane@example.com", "Secret123!", true)
	ctx := context.Background()

	res, err := env.svc.Login(ctx, LoginInput{
		Email:    "JANE@EXAMPLE.COM",
		Password: "Secret123!",
		Meta:     meta(),
	})
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", res.User.Email)
	assert.Empty(t, res.User.PasswordHash)
	assert.False(t, res.MustChangePassword)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(tokens.DefaultAccessTTL), res.Tokens.AccessExp, time.Second)

	// The refresh token is backed by a live session.
	_, err = env.sessions.GetByToken(ctx, tokens.Sha256Hex(res.Tokens.RefreshToken))
	require.NoError(t, err)
}

func TestLogin_Gates(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "jane@example.com", "Secret123!", true)
	env.seedUser(t, "gone@example.com", "Secret123!", false)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   LoginInput
		wantErr error
	}{
		{name: "missing email", input: LoginInput{Password: "Secret123!"}, wantErr: ErrInvalidRequest},
		{name: "missing password", input: LoginInput{Email: "jane@example.com"}, wantErr: ErrInvalidRequest},
		{name: "unknown email", input: LoginInput{Email: "nobody@example.com", Password: "Secret123!"}, wantErr: ErrInvalidCredentials},
		{name: "wrong password", input: LoginInput{Email: "jane@example.com", Password: "WrongPass1!"}, wantErr: ErrInvalidCredentials},
		{name: "deactivated account", input: LoginInput{Email: "gone@example.com", Password: "Secret123!"}, wantErr: ErrAccountDeactivated},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := env.svc.Login(ctx, tt.input)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogin_UnknownUserAndWrongPasswordAreIndistinguishable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "jane@example.com", "Secret123!", true)
	ctx := context.Background()

	_, errUnknown := env.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Secret123!"})
	_, errMismatch := env.svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "WrongPass1!"})

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errMismatch, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errMismatch.Error())
}

func TestLogin_EachCallCreatesNewSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.seedUser(t, "jane@example.com", "Secret123!", true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "Secret123!", Meta: meta()})
		require.NoError(t, err)
	}

	count, err := env.sessions.DeleteAllForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestLogin_UpdatesLoginStats(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "jane@example.com", "Secret123!", true)
	ctx := context.Background()

	_, err := env.svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "Secret123!", Meta: meta()})
	require.NoError(t, err)

	user, err := env.users.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, user.LoginCount)
	require.NotNil(t, user.LastLoginAt)
	assert.WithinDuration(t, time.Now(), *user.LastLoginAt, time.Second)
}

func TestRefresh_RoundTripIsSingleUse(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "jane@example.com", "Secret123!", true)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "Secret123!", Meta: meta()})
	require.NoError(t, err)

	first, err := env.svc.Refresh(ctx, login.Tokens.RefreshToken, meta())
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, first.Tokens.RefreshToken)
	assert.NotEmpty(t, first.Tokens.AccessToken)

	// The presented token was rotated away; replaying it must fail.
	res, err := env.svc.Refresh(ctx, login.Tokens.RefreshToken, meta())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The new token drives exactly one further rotation.
	_, err = env.svc.Refresh(ctx, first.Tokens.RefreshToken, meta())
	require.NoError(t, err)
}

func TestRefresh_Gates(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Refresh(ctx, "", meta())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrRefreshRequired)

	res, err = env.svc.Refresh(ctx, "garbage-token", meta())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// A well-signed token for an unknown user is rejected by the user lookup.
	ghost := &models.User{ID: uuid.New(), Email: "ghost@example.com", Role: models.RoleUser}
	token, _, err := env.svc.Tokens.GenerateRefreshToken(ghost, time.Now())
	require.NoError(t, err)

	res, err = env.svc.Refresh(ctx, token, meta())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefresh_DeactivatedAccount(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.seedUser(t, "jane@example.com", "Secret123!", true)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "Secret123!", Meta: meta()})
	require.NoError(t, err)

	// Deactivate after login; the still-valid signature must not help.
	user.IsActive = false
	require.NoError(t, env.users.Update(user))

	res, err := env.svc.Refresh(ctx, login.Tokens.RefreshToken, meta())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestRefresh_SignatureAloneIsNotEnough(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.seedUser(t, "jane@example.com", "Secret123!", true)
	ctx := context.Background()

	// A valid signed token with no backing session must be rejected.
	token, _, err := env.svc.Tokens.GenerateRefreshToken(user, time.Now())
	require.NoError(t, err)

	res, err := env.svc.Refresh(ctx, token, meta())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_ConcurrentRotationSingleWinner(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.seedUser(t, "jane@example.com", "Secret123!", true)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "Secret123!", Meta: meta()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.svc.Refresh(ctx, login.Tokens.RefreshToken, meta())
		}(i)
	}
	wg.Wait()

	successes, failures := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		default:
			assert.ErrorIs(t, err, ErrInvalidRefreshToken)
			failures++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)

	// Exactly one live session remains for the user.
	count, err := env.sessions.DeleteAllForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestLogout_Idempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "jane@example.com", "Secret123!", true)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "Secret123!", Meta: meta()})
	require.NoError(t, err)

	env.svc.Logout(ctx, login.Tokens.RefreshToken, false, meta())

	_, err = env.sessions.GetByToken(ctx, tokens.Sha256Hex(login.Tokens.RefreshToken))
	assert.ErrorIs(t, err, session.ErrNotFound)

	// A second logout with the already-invalidated token is a no-op.
	env.svc.Logout(ctx, login.Tokens.RefreshToken, false, meta())
	env.svc.Logout(ctx, "", false, meta())
}

func TestLogout_AllDevices(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "jane@example.com", "Secret123!", true)
	ctx := context.Background()

	var refreshTokens []string
	for i := 0; i < 3; i++ {
		res, err := env.svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "Secret123!", Meta: meta()})
		require.NoError(t, err)
		refreshTokens = append(refreshTokens, res.Tokens.RefreshToken)
	}

	env.svc.Logout(ctx, refreshTokens[1], true, meta())

	for _, token := range refreshTokens {
		res, err := env.svc.Refresh(ctx, token, meta())
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, "jane", "Jane@Example.com", "Str0ng!Pass")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.Empty(t, user.PasswordHash)

	// Registering the same email again conflicts.
	_, err = env.svc.Register(ctx, "jane2", "jane@example.com", "Str0ng!Pass")
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)

	// The new account can log in right away.
	res, err := env.svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "Str0ng!Pass", Meta: meta()})
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "", "jane@example.com", "Str0ng!Pass")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = env.svc.Register(ctx, "jane", "not-an-email", "Str0ng!Pass")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = env.svc.Register(ctx, "jane", "jane@example.com", "Weak1")
	var weak *WeakPasswordError
	require.ErrorAs(t, err, &weak)
	assert.GreaterOrEqual(t, len(weak.Violations), 2)
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.seedUser(t, "jane@example.com", "Secret123!", true)
	ctx := context.Background()

	login, err := env.svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "Secret123!", Meta: meta()})
	require.NoError(t, err)

	got, err := env.svc.CurrentUser(ctx, login.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Empty(t, got.PasswordHash)

	_, err = env.svc.CurrentUser(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user.IsActive = false
	require.NoError(t, env.users.Update(user))

	_, err = env.svc.CurrentUser(ctx, login.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}
