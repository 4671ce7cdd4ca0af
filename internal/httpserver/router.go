package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/glowpoint/makeup_shop/internal/middleware/auth"
	"github.com/glowpoint/makeup_shop/internal/models"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Guard       *authmw.Guard
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/auth")

	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.LogOut)

	private := auth.Group("", d.Guard.RequireLogin)
	private.GET("/me", d.AuthHandler.Me)

	admin := auth.Group("", d.Guard.RequireLogin, authmw.RequireRole([]string{models.RoleAdmin}))
	admin.POST("/force-logout/:username", d.AuthHandler.ForceLogout)
}
