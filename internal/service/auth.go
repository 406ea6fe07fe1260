// Package service orchestrates the session lifecycle: login, refresh
// rotation, and logout. It composes the credential store, token service, and
// session store and enforces the ordering between token issuance and session
// bookkeeping.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/blogplatform/auth_service/internal/audit"
	"github.com/blogplatform/auth_service/internal/hash"
	"github.com/blogplatform/auth_service/internal/logging"
	"github.com/blogplatform/auth_service/internal/models"
	"github.com/blogplatform/auth_service/internal/password"
	"github.com/blogplatform/auth_service/internal/repo"
	"github.com/blogplatform/auth_service/internal/session"
	"github.com/blogplatform/auth_service/internal/tokens"
)

// DefaultStoreTimeout bounds every credential-store and session-store call so
// a slow backend surfaces as a generic failure instead of a hang.
const DefaultStoreTimeout = 5 * time.Second

type AuthService struct {
	Users    repo.UserRepo
	Sessions session.Store
	Tokens   *tokens.Service
	Audit    *audit.Recorder

	StoreTimeout time.Duration
}

// ClientMeta is the per-request client fingerprint recorded on sessions.
type ClientMeta struct {
	IP        string
	UserAgent string
}

type LoginInput struct {
	Email    string
	Password string
	Remember bool
	Meta     ClientMeta
}

// TokenPair is a freshly minted access + refresh pair.
type TokenPair struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

type LoginResult struct {
	User               *models.User
	Tokens             TokenPair
	MustChangePassword bool
}

func (s *AuthService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// Register creates a new account with the user role after checking the
// email shape and password policy.
func (s *AuthService) Register(ctx context.Context, username, email, pw string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email = repo.NormalizeEmail(email)
	if username == "" || !password.ValidEmail(email) {
		return nil, ErrInvalidRequest
	}
	if res := password.Validate(pw); !res.Valid {
		return nil, &WeakPasswordError{Violations: res.Errors}
	}

	pwHash, err := hash.HashPassword(pw)
	if err != nil {
		l.Error("register failed", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
		IsActive:     true,
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.Users.Create(sctx, user); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			l.Warn("register conflict", "email", email)
			return nil, ErrEmailAlreadyRegistered
		}
		l.Error("register failed", "error", err)
		return nil, err
	}

	s.Audit.Record(audit.Event{
		Type:    audit.EventUserRegistered,
		UserID:  user.ID.String(),
		Email:   user.Email,
		Success: true,
	})

	return sanitize(user), nil
}

// Login verifies credentials, issues an access+refresh pair, and opens a new
// session tracking the refresh token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if in.Email == "" || in.Password == "" {
		return nil, ErrInvalidRequest
	}
	email := repo.NormalizeEmail(in.Email)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.Users.FindByEmail(sctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.auditLoginFailure(email, in.Meta, "unknown email")
			return nil, ErrInvalidCredentials
		}
		l.Error("login failed", "error", err)
		return nil, err
	}

	if !user.IsActive {
		l.Warn("login rejected", "reason", "account deactivated", "user_id", user.ID)
		s.auditLoginFailure(email, in.Meta, "account deactivated")
		return nil, ErrAccountDeactivated
	}

	ok, err := s.Users.VerifyPassword(sctx, email, in.Password)
	if err != nil {
		l.Error("login failed", "error", err)
		return nil, err
	}
	if !ok {
		s.auditLoginFailure(email, in.Meta, "password mismatch")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueSession(sctx, user, in.Remember, in.Meta)
	if err != nil {
		l.Error("login failed", "error", err)
		return nil, err
	}

	// Login stats are bookkeeping, not a gate.
	if err := s.Users.UpdateLoginStats(sctx, email); err != nil {
		l.Warn("login stats update failed", "user_id", user.ID, "error", err)
	}

	s.Audit.Record(audit.Event{
		Type:      audit.EventUserLoggedIn,
		UserID:    user.ID.String(),
		Email:     user.Email,
		IP:        in.Meta.IP,
		UserAgent: in.Meta.UserAgent,
		Success:   true,
	})
	l.Info("login successful", "user_id", user.ID)

	return &LoginResult{
		User:               sanitize(user),
		Tokens:             pair,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// Refresh rotates a refresh token: the presented token is invalidated first,
// then a new pair and session are issued. A refresh token is single-use; the
// loser of a concurrent rotation race observes a missing session and fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta ClientMeta) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		return nil, ErrRefreshRequired
	}

	claims, err := s.Tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.Users.FindByID(sctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error("refresh failed", "error", err)
		return nil, err
	}
	if !user.IsActive {
		l.Warn("refresh rejected", "reason", "account deactivated", "user_id", user.ID)
		return nil, ErrAccountDeactivated
	}

	tokenHash := tokens.Sha256Hex(refreshToken)

	// The session store is authoritative for liveness; an expired session is
	// lazily removed here and the token becomes unusable.
	old, err := s.Sessions.GetByToken(sctx, tokenHash)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		l.Error("refresh failed", "error", err)
		return nil, err
	}

	// Atomic gate: exactly one concurrent rotation of the same token can win
	// this delete. The presented token dies here regardless of what follows.
	found, err := s.Sessions.DeleteByToken(sctx, tokenHash)
	if err != nil {
		l.Error("refresh failed", "error", err)
		return nil, err
	}
	if !found {
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.issueSession(sctx, user, old.Remember, meta)
	if err != nil {
		l.Error("refresh failed", "error", err)
		return nil, err
	}

	s.Audit.Record(audit.Event{
		Type:      audit.EventTokenRefreshed,
		UserID:    user.ID.String(),
		Email:     user.Email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Success:   true,
	})

	return &LoginResult{
		User:               sanitize(user),
		Tokens:             pair,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// Logout revokes the session behind a refresh token, or every session of the
// owning user when allDevices is set. It never fails from the caller's
// perspective: a missing session is a no-op and storage errors are only
// logged, so the transport layer can always clear cookies.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, allDevices bool, meta ClientMeta) {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if refreshToken == "" {
		return
	}
	tokenHash := tokens.Sha256Hex(refreshToken)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if allDevices {
		sess, err := s.Sessions.GetByToken(sctx, tokenHash)
		if err == nil {
			count, err := s.Sessions.DeleteAllForUser(sctx, sess.UserID)
			if err != nil {
				l.Error("all-devices logout failed", "user_id", sess.UserID, "error", err)
				return
			}
			l.Info("all-devices logout", "user_id", sess.UserID, "revoked", count)
			s.Audit.Record(audit.Event{
				Type:      audit.EventSessionsRevoked,
				UserID:    sess.UserID.String(),
				Email:     sess.UserEmail,
				IP:        meta.IP,
				UserAgent: meta.UserAgent,
				Success:   true,
			})
			return
		}
		if !errors.Is(err, session.ErrNotFound) {
			l.Error("logout lookup failed", "error", err)
			return
		}
		// Session already gone; fall through to the idempotent single delete.
	}

	found, err := s.Sessions.DeleteByToken(sctx, tokenHash)
	if err != nil {
		l.Error("logout failed", "error", err)
		return
	}
	if found {
		s.Audit.Record(audit.Event{
			Type:      audit.EventUserLoggedOut,
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			Success:   true,
		})
	}
}

// CurrentUser resolves a verified access token to its live account,
// re-confirming the active flag against the credential store.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.Tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.Users.FindByID(sctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	return sanitize(user), nil
}

// issueSession mints a token pair and opens the backing session. Tokens are
// never handed out without a session record: if the store write fails the
// login or refresh fails with it.
func (s *AuthService) issueSession(ctx context.Context, user *models.User, remember bool, meta ClientMeta) (TokenPair, error) {
	now := time.Now()

	access, accessExp, err := s.Tokens.GenerateAccessToken(user, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.Tokens.GenerateRefreshToken(user, now)
	if err != nil {
		return TokenPair{}, err
	}

	_, err = s.Sessions.Create(ctx, session.CreateInput{
		UserID:    user.ID,
		UserEmail: user.Email,
		TokenHash: tokens.Sha256Hex(refresh),
		Remember:  remember,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *AuthService) auditLoginFailure(email string, meta ClientMeta, detail string) {
	s.Audit.Record(audit.Event{
		Type:      audit.EventUserLoggedIn,
		Email:     email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Success:   false,
		Detail:    detail,
	})
}

func sanitize(user *models.User) *models.User {
	out := *user
	out.PasswordHash = ""
	return &out
}
