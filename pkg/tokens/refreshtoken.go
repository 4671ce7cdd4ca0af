package tokens

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshClaims carry only the owning username (as subject) plus a JTI.
// The refresh token is a lookup key, not an authorization payload: it is
// only usable while it is also present in the owner's stored token list.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

func RefreshClaimsFromToken(tokenStr string, refreshSecret []byte) (*RefreshClaims, error) {
	var claims RefreshClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return refreshSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return &claims, nil
}
