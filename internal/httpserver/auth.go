package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blogplatform/auth_service/internal/logging"
	authmw "github.com/blogplatform/auth_service/internal/middleware/auth"
	"github.com/blogplatform/auth_service/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
	// SecureCookies turns the Secure flag on; enabled in production.
	SecureCookies bool
}

func (h *AuthHTTP) meta(c echo.Context) service.ClientMeta {
	return service.ClientMeta{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

func httpErr(err error) *echo.HTTPError {
	return echo.NewHTTPError(service.HTTPStatus(err), service.UserMessage(err))
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		l.Warn("register_failed", "status", service.HTTPStatus(err), "error", err)
		return httpErr(err)
	}

	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Remember: req.Remember,
		Meta:     h.meta(c),
	})
	if err != nil {
		l.Warn("login_failed", "status", service.HTTPStatus(err), "error", err)
		return httpErr(err)
	}

	h.setTokenCookies(c, res.Tokens)
	l.Info("login_successful")

	// The access token is also returned in the body for non-cookie clients.
	return c.JSON(http.StatusOK, echo.Map{
		"user":                 res.User,
		"access_token":         res.Tokens.AccessToken,
		"must_change_password": res.MustChangePassword,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	// Cookie clients send no body; ignore bind errors.
	_ = c.Bind(&req)

	res, err := h.Svc.Refresh(ctx, h.refreshToken(c, req.RefreshToken), h.meta(c))
	if err != nil {
		l.Warn("refresh_failed", "status", service.HTTPStatus(err), "error", err)
		return httpErr(err)
	}

	h.setTokenCookies(c, res.Tokens)

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  res.Tokens.AccessToken,
		"refresh_token": res.Tokens.RefreshToken,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var req struct {
		RefreshToken string `json:"refresh_token"`
		AllDevices   bool   `json:"all_devices"`
	}
	// A malformed body must not stop a logout.
	_ = c.Bind(&req)
	allDevices := req.AllDevices || c.QueryParam("all_devices") == "true"

	h.Svc.Logout(ctx, h.refreshToken(c, req.RefreshToken), allDevices, h.meta(c))

	// Cookies are cleared unconditionally: whatever happened above, the
	// client must not be left holding credentials the server lost track of.
	c.SetCookie(deleteCookie(AccessCookie, "/", h.SecureCookies))
	c.SetCookie(deleteCookie(RefreshCookie, "/", h.SecureCookies))

	l.Info("logout_successful")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	user := authmw.UserFromContext(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(http.StatusOK, user)
}

// refreshToken prefers the transport cookie over the token a non-cookie
// client sent in the request body.
func (h *AuthHTTP) refreshToken(c echo.Context, fromBody string) string {
	if cookie, err := c.Cookie(RefreshCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return fromBody
}

func (h *AuthHTTP) setTokenCookies(c echo.Context, pair service.TokenPair) {
	c.SetCookie(createCookie(AccessCookie, pair.AccessToken, "/", pair.AccessExp, h.SecureCookies))
	c.SetCookie(createCookie(RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp, h.SecureCookies))
}
