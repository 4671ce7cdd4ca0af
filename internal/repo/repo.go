package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/glowpoint/makeup_shop/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")

	// ErrStaleRefreshToken means the token to rotate was already gone from
	// the owner's list, i.e. a concurrent rotation consumed it first.
	ErrStaleRefreshToken = errors.New("refresh token already rotated")
)

// UserStore is the persistence contract of the auth core: a user-record
// store plus the per-user refresh-token list. FindByRefreshToken is the
// reverse lookup used for rotation and reuse detection; how it is indexed
// is an infrastructure decision.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByRefreshToken(ctx context.Context, token string) (*models.User, error)
	UpdateRefreshTokens(ctx context.Context, userID uint, tokens []string) error
	RotateRefreshToken(ctx context.Context, userID uint, oldToken, newToken string) error
}

type GormStore struct {
	DB *gorm.DB
}
