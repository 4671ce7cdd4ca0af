package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/glowpoint/makeup_shop/pkg/tokens"
)

const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRole     = "role"
)

type Guard struct {
	Tokens *tokens.Maker
}

func NewGuard(m *tokens.Maker) *Guard {
	return &Guard{Tokens: m}
}

// RequireLogin validates the bearer access token and stores its claims on the
// echo context. The access token is carried in the Authorization header only.
func (g *Guard) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := g.Tokens.ParseAccessToken(raw)
		if err != nil || claims == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		if claims.Subject == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxRole, claims.Role)

		return next(c)
	}
}
