package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/glowpoint/makeup_shop/internal/models"
	"github.com/glowpoint/makeup_shop/pkg/tokens"
)

// CreateUser inserts the user unless the username is taken. The duplicate
// path reads the existing row into a scratch record, never into the caller's
// struct.
func (r *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	rec := *user
	tx := r.DB.WithContext(ctx).Where("username = ?", user.Username).FirstOrCreate(&rec)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserExists
	}
	*user = rec
	return nil
}

func (r *GormStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByRefreshToken is the reverse lookup: which user currently holds this
// token in their list. The list is a JSON array on the user row, so the match
// is a quoted LIKE over the serialized column; token characters outside
// base64url never occur, only the LIKE metacharacters need escaping.
func (r *GormStore) FindByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}

	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(token)
	pattern := `%"` + escaped + `"%`

	var user models.User
	err := r.DB.WithContext(ctx).
		Where(`refresh_tokens LIKE ? ESCAPE '\'`, pattern).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormStore) UpdateRefreshTokens(ctx context.Context, userID uint, list []string) error {
	if list == nil {
		list = []string{}
	}
	return r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_tokens", list).Error
}

// rotateAttempts bounds the compare-and-swap retry loop in
// RotateRefreshToken. More than one retry only happens when unrelated
// logins keep changing the list between the read and the swap.
const rotateAttempts = 3

// RotateRefreshToken replaces oldToken with newToken via a conditional
// update: the write lands only if the token list is still byte-identical to
// the one the presence check ran against. A plain read-check-write is not
// enough here; under read committed two refreshes carrying the same token
// both pass the presence check on their own snapshot and the second write
// silently drops the first winner's new token. With the compare-and-swap
// the loser gets ErrStaleRefreshToken. A swap lost to an unrelated list
// change, such as a concurrent login appending a token, is re-read and
// retried.
func (r *GormStore) RotateRefreshToken(ctx context.Context, userID uint, oldToken, newToken string) error {
	for range rotateAttempts {
		var user models.User
		if err := r.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if !slices.Contains(user.RefreshTokens, oldToken) {
			return ErrStaleRefreshToken
		}

		// the stored column is written by the json serializer, so
		// re-marshalling the decoded list reproduces it byte for byte
		snapshot, err := json.Marshal(user.RefreshTokens)
		if err != nil {
			return err
		}

		rotated := append(tokens.FilterTokens(user.RefreshTokens, oldToken), newToken)
		res := r.DB.WithContext(ctx).
			Model(&models.User{}).
			Where("id = ? AND refresh_tokens = ?", userID, string(snapshot)).
			Update("refresh_tokens", rotated)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}
	return fmt.Errorf("rotate refresh token: user %d list kept changing", userID)
}
