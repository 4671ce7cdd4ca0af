package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/glowpoint/makeup_shop/internal/hash"
	"github.com/glowpoint/makeup_shop/internal/models"
	"github.com/glowpoint/makeup_shop/internal/repo"
	"github.com/glowpoint/makeup_shop/pkg/logging"
	"github.com/glowpoint/makeup_shop/pkg/tokens"
)

var (
	// 400
	ErrValidation = errors.New("validation error")
	// 401: deliberately one message for unknown user and wrong password
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// 401
	ErrMissingRefreshToken = errors.New("refresh token missing")
	// 401: the presented token verified but no user holds it anymore
	ErrTokenReuse = errors.New("refresh token reuse detected")
	// 401: token subject and owning user drifted apart
	ErrUsernameMismatch = errors.New("username incorrect")
	// 401: bad signature or malformed token
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// 409
	ErrConflict = errors.New("username already taken")
)

type AuthService struct {
	Repo   repo.UserStore
	Tokens *tokens.Maker
}

// AuthResult is what login and refresh hand back to the transport layer:
// the access token for the response body, the refresh token for the cookie.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	RefreshExp   time.Time
	UserID       uint
	Username     string
	Role         string
}

// Register creates a user with the lowest-privilege role. Registration can
// never self-elevate and issues no tokens; the caller logs in afterwards.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if username == "" || password == "" {
		return nil, ErrValidation
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: pwHash,
		Role:         models.RoleClient,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserExists) {
			return nil, ErrConflict
		}
		return nil, err
	}

	l.Info("user_registered", "username", username)
	return user, nil
}

// Login verifies credentials and issues a fresh token pair. presentedToken is
// the refresh-token cookie the client may still be carrying: it is dropped
// from the user's list, and if no user holds it at all the cookie is treated
// as stale or replayed and every other session of this account is discarded.
func (s *AuthService) Login(ctx context.Context, username, password, presentedToken string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if username == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	accessToken, _, err := s.Tokens.SignAccessToken(user.Role, user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.Tokens.SignRefreshToken(user.Username)
	if err != nil {
		return nil, err
	}

	base := tokens.FilterTokens(user.RefreshTokens, presentedToken)
	if presentedToken != "" {
		if _, err := s.Repo.FindByRefreshToken(ctx, presentedToken); err != nil {
			if !errors.Is(err, repo.ErrUserNotFound) {
				return nil, err
			}
			l.Warn("login with unrecognized refresh cookie, clearing other sessions",
				"username", user.Username)
			base = []string{}
		}
	}

	if err := s.Repo.UpdateRefreshTokens(ctx, user.ID, append(base, refreshToken)); err != nil {
		return nil, err
	}

	l.Info("login_successful", "username", user.Username)
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		RefreshExp:   refreshExp,
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
	}, nil
}

// Refresh rotates the presented refresh token: single use, replaced by a new
// one in the same request. A token that verifies but belongs to no user is a
// theft signal and revokes every session of the username it claims.
func (s *AuthService) Refresh(ctx context.Context, presentedToken string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if presentedToken == "" {
		return nil, ErrMissingRefreshToken
	}

	user, err := s.Repo.FindByRefreshToken(ctx, presentedToken)
	if err != nil && !errors.Is(err, repo.ErrUserNotFound) {
		return nil, err
	}

	if user == nil {
		claims, verr := s.Tokens.ParseRefreshToken(presentedToken)
		if verr != nil {
			if errors.Is(verr, jwt.ErrTokenExpired) {
				return nil, verr
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, verr)
		}
		l.Warn("refresh token reuse detected", "username", claims.Subject)
		victim, ferr := s.Repo.FindByUsername(ctx, claims.Subject)
		if ferr != nil && !errors.Is(ferr, repo.ErrUserNotFound) {
			return nil, ferr
		}
		if victim != nil {
			if err := s.Repo.UpdateRefreshTokens(ctx, victim.ID, []string{}); err != nil {
				return nil, err
			}
		}
		return nil, ErrTokenReuse
	}

	claims, err := s.Tokens.ParseRefreshToken(presentedToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// the token is still on file; evict it before failing
			cleaned := tokens.FilterTokens(user.RefreshTokens, presentedToken)
			if uerr := s.Repo.UpdateRefreshTokens(ctx, user.ID, cleaned); uerr != nil {
				return nil, uerr
			}
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}

	if claims.Subject != user.Username {
		return nil, ErrUsernameMismatch
	}

	accessToken, _, err := s.Tokens.SignAccessToken(user.Role, user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	newRefresh, refreshExp, err := s.Tokens.SignRefreshToken(user.Username)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.RotateRefreshToken(ctx, user.ID, presentedToken, newRefresh); err != nil {
		if errors.Is(err, repo.ErrStaleRefreshToken) {
			// a concurrent refresh consumed the token first: same treatment
			// as replay of an already-rotated token
			l.Warn("refresh token consumed concurrently, treating as reuse",
				"username", user.Username)
			if uerr := s.Repo.UpdateRefreshTokens(ctx, user.ID, []string{}); uerr != nil {
				return nil, uerr
			}
			return nil, ErrTokenReuse
		}
		return nil, err
	}

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		RefreshExp:   refreshExp,
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
	}, nil
}

// Logout removes the presented token from its owner's list. Logging out an
// unknown token returns false rather than an error: logging out twice must
// be safe.
func (s *AuthService) Logout(ctx context.Context, presentedToken string) (bool, error) {
	user, err := s.Repo.FindByRefreshToken(ctx, presentedToken)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	cleaned := tokens.FilterTokens(user.RefreshTokens, presentedToken)
	if err := s.Repo.UpdateRefreshTokens(ctx, user.ID, cleaned); err != nil {
		return false, err
	}
	return true, nil
}

// ForceLogout wipes every refresh token of the target user, ending all their
// sessions at once. Admin surface.
func (s *AuthService) ForceLogout(ctx context.Context, username string) error {
	l := logging.FromContext(ctx).With("svc", "auth.force_logout")

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdateRefreshTokens(ctx, user.ID, []string{}); err != nil {
		return err
	}

	l.Info("sessions_revoked", "username", username)
	return nil
}
