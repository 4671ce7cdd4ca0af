package auth

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

func RequireRole(required []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing role")
			}
			if !slices.Contains(required, role) {
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights to see this page")
			}
			return next(c)
		}
	}
}
