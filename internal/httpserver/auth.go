package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	jwthelp "github.com/glowpoint/makeup_shop/internal/jwt"
	authmw "github.com/glowpoint/makeup_shop/internal/middleware/auth"
	"github.com/glowpoint/makeup_shop/internal/mykafka"
	"github.com/glowpoint/makeup_shop/internal/repo"
	"github.com/glowpoint/makeup_shop/internal/service"
	"github.com/glowpoint/makeup_shop/pkg/logging"
)

// refreshCookieName is the one cookie this service sets. It carries the
// refresh token only; the access token travels in the JSON body.
const refreshCookieName = "jwt"

type AuthHTTP struct {
	Svc          *service.AuthService
	Producer     *mykafka.Producer
	CookieSecure bool
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username        string `json:"username"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	if req.Password != req.ConfirmPassword {
		return echo.NewHTTPError(http.StatusBadRequest, "passwords do not match")
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			l.Warn("register_error", "status", 409, "username", req.Username)
			return echo.NewHTTPError(http.StatusConflict, "username already taken")
		}
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		l.Error("register_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "register failed")
	}

	h.publishEvent(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":     "user_registered",
		"user_id":  user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message": fmt.Sprintf("user %s created", user.Username),
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	presented := ""
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		presented = ck.Value
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password, presented)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			l.Warn("login_failed", "status", 401)
			return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
		}
		l.Error("login_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	if presented != "" {
		c.SetCookie(jwthelp.DeleteCookie(refreshCookieName, "/", h.CookieSecure))
	}
	c.SetCookie(jwthelp.CreateCookie(refreshCookieName, res.RefreshToken, "/", res.RefreshExp, h.CookieSecure))

	h.publishEvent(c, fmt.Sprint(res.UserID), map[string]interface{}{
		"type":     "user_logged_in",
		"user_id":  res.UserID,
		"username": res.Username,
	})

	l.Info("login_successful")
	return c.JSON(http.StatusOK, echo.Map{
		"accessToken": res.AccessToken,
		"role":        res.Role,
		"userId":      res.UserID,
		"username":    res.Username,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	ck, err := c.Cookie(refreshCookieName)
	if err != nil || ck.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	res, svcErr := h.Svc.Refresh(ctx, ck.Value)
	// the presented cookie is spent either way, clear it before re-setting
	c.SetCookie(jwthelp.DeleteCookie(refreshCookieName, "/", h.CookieSecure))
	if svcErr != nil {
		switch {
		case errors.Is(svcErr, service.ErrTokenReuse):
			l.Warn("refresh_reuse_detected", "status", 401)
			h.publishEvent(c, "reuse", map[string]interface{}{
				"type":      "token_reuse_detected",
				"remote_ip": c.RealIP(),
			})
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh token reuse detected")
		case errors.Is(svcErr, jwt.ErrTokenExpired):
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh token expired")
		case errors.Is(svcErr, service.ErrUsernameMismatch):
			return echo.NewHTTPError(http.StatusUnauthorized, "username incorrect")
		case errors.Is(svcErr, service.ErrMissingRefreshToken),
			errors.Is(svcErr, service.ErrInvalidRefreshToken):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
		default:
			l.Error("refresh_failed", "status", 500, "error", svcErr)
			return echo.NewHTTPError(http.StatusInternalServerError, "refresh failed")
		}
	}

	c.SetCookie(jwthelp.CreateCookie(refreshCookieName, res.RefreshToken, "/", res.RefreshExp, h.CookieSecure))

	return c.JSON(http.StatusOK, echo.Map{
		"accessToken": res.AccessToken,
		"role":        res.Role,
		"userId":      res.UserID,
		"username":    res.Username,
	})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	ck, err := c.Cookie(refreshCookieName)
	if err != nil || ck.Value == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh token cookie missing")
	}

	ok, err := h.Svc.Logout(ctx, ck.Value)
	if err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed")
	}

	c.SetCookie(jwthelp.DeleteCookie(refreshCookieName, "/", h.CookieSecure))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "refresh token not found")
	}

	l.Info("successful_logout")
	return c.NoContent(http.StatusNoContent)
}

// Me echoes the authenticated identity straight from the access-token claims
// the guard already validated.
func (h *AuthHTTP) Me(c echo.Context) error {
	sub, _ := c.Get(authmw.CtxUserID).(string)
	username, _ := c.Get(authmw.CtxUsername).(string)
	role, _ := c.Get(authmw.CtxRole).(string)

	userID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"userId":   uint(userID),
		"username": username,
		"role":     role,
	})
}

func (h *AuthHTTP) ForceLogout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_force_logout")

	username := c.Param("username")
	if err := h.Svc.ForceLogout(ctx, username); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		l.Error("force_logout_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "force logout failed")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) publishEvent(c echo.Context, key string, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}
