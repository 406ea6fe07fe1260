// Package auth guards protected routes. It resolves the caller's identity
// from the auth-token cookie or an Authorization bearer header and checks
// roles against the user < author < admin hierarchy. The guard never mutates
// state.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/blogplatform/auth_service/internal/models"
	"github.com/blogplatform/auth_service/internal/service"
)

const (
	// AccessCookie is the transport cookie carrying the access token.
	AccessCookie = "auth-token"

	userContextKey = "auth.user"
)

type Guard struct {
	Svc *service.AuthService
}

func NewGuard(svc *service.AuthService) *Guard {
	return &Guard{Svc: svc}
}

// token extracts the access token: cookie first, bearer header as fallback.
func token(c echo.Context) string {
	if cookie, err := c.Cookie(AccessCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return rest
	}
	return ""
}

// RequireAuth authenticates the request and stores the resolved user in the
// echo context. The account's active flag is re-confirmed against the
// credential store on every call; access-token signatures alone do not
// outlive a deactivation beyond their own expiry.
func (g *Guard) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr := token(c)
		if tokenStr == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		user, err := g.Svc.CurrentUser(c.Request().Context(), tokenStr)
		if err != nil {
			if errors.Is(err, service.ErrAccountDeactivated) {
				return echo.NewHTTPError(http.StatusForbidden, service.UserMessage(err))
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// RequireRole composes RequireAuth with a role-hierarchy check.
func (g *Guard) RequireRole(required models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return g.RequireAuth(func(c echo.Context) error {
			user := UserFromContext(c)
			if user == nil || !user.Role.AtLeast(required) {
				return echo.NewHTTPError(http.StatusForbidden, service.UserMessage(service.ErrInsufficientPermissions))
			}
			return next(c)
		})
	}
}

// UserFromContext returns the authenticated user set by RequireAuth, or nil.
func UserFromContext(c echo.Context) *models.User {
	if user, ok := c.Get(userContextKey).(*models.User); ok {
		return user
	}
	return nil
}
