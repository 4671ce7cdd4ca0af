package tokens

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Maker signs and verifies both token classes. Access and refresh tokens use
// independent secrets and independent lifetimes, so leaking one secret never
// compromises verification of the other class.
type Maker struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewMaker(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Maker {
	return &Maker{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (m *Maker) SignAccessToken(role string, userID uint, username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.accessTTL)

	claims := AccessClaims{
		Role:     role,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *Maker) SignRefreshToken(username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.refreshTTL)

	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *Maker) ParseAccessToken(raw string) (*AccessClaims, error) {
	return AccessClaimsFromToken(raw, m.accessSecret)
}

// ParseRefreshToken verifies signature and expiry. An expired-but-otherwise
// valid token fails with an error matching jwt.ErrTokenExpired, which the
// caller distinguishes from other verification failures.
func (m *Maker) ParseRefreshToken(raw string) (*RefreshClaims, error) {
	return RefreshClaimsFromToken(raw, m.refreshSecret)
}
