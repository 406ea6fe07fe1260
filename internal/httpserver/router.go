package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/blogplatform/auth_service/internal/middleware/auth"
	"github.com/blogplatform/auth_service/internal/models"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Guard       *authmw.Guard
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh", d.AuthHandler.Refresh)
	e.POST("/logout", d.AuthHandler.Logout)

	private := e.Group("")
	private.Use(d.Guard.RequireAuth)
	private.GET("/me", d.AuthHandler.Me)

	admin := e.Group("/admin")
	admin.Use(d.Guard.RequireRole(models.RoleAdmin))
	admin.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
}
