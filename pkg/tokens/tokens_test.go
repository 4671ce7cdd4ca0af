package tokens

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaker() *Maker {
	return NewMaker(
		[]byte("test-jwt-secret"),
		[]byte("test-refresh-secret"),
		15*time.Minute,
		24*time.Hour,
	)
}

func TestMaker_SignAccessToken_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	m := newTestMaker()
	token, exp, err := m.SignAccessToken("mua", 42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ParseAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, "mua", claims.Role)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, strconv.Itoa(42), claims.Subject)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestMaker_SignRefreshToken_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	m := newTestMaker()
	token, exp, err := m.SignRefreshToken("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ParseRefreshToken(token)
	require.NoError(t, err)

	assert.Equal(t, "alice", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestMaker_SecretsAreIndependent(t *testing.T) {
	t.Parallel()

	m := newTestMaker()

	access, _, err := m.SignAccessToken("client", 1, "alice")
	require.NoError(t, err)
	refresh, _, err := m.SignRefreshToken("alice")
	require.NoError(t, err)

	_, err = m.ParseRefreshToken(access)
	require.Error(t, err)

	_, err = m.ParseAccessToken(refresh)
	require.Error(t, err)
}

func TestMaker_WrongSecretFails(t *testing.T) {
	t.Parallel()

	m := newTestMaker()
	other := NewMaker([]byte("other-jwt-secret"), []byte("other-refresh-secret"), time.Minute, time.Hour)

	refresh, _, err := m.SignRefreshToken("alice")
	require.NoError(t, err)

	_, err = other.ParseRefreshToken(refresh)
	require.Error(t, err)
	assert.False(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestMaker_ExpiredRefreshToken_IsExpiryError(t *testing.T) {
	t.Parallel()

	expired := NewMaker([]byte("test-jwt-secret"), []byte("test-refresh-secret"), 15*time.Minute, -time.Minute)

	token, _, err := expired.SignRefreshToken("alice")
	require.NoError(t, err)

	_, err = expired.ParseRefreshToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestMaker_MalformedToken(t *testing.T) {
	t.Parallel()

	m := newTestMaker()
	_, err := m.ParseRefreshToken("not-a-valid-jwt")
	require.Error(t, err)
	assert.False(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestFilterTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		tokens   []string
		toRemove string
		want     []string
	}{
		{name: "removes present token", tokens: []string{"a", "b", "c"}, toRemove: "b", want: []string{"a", "c"}},
		{name: "absent token unchanged", tokens: []string{"a", "b"}, toRemove: "z", want: []string{"a", "b"}},
		{name: "empty toRemove unchanged", tokens: []string{"a", "b"}, toRemove: "", want: []string{"a", "b"}},
		{name: "empty list", tokens: nil, toRemove: "a", want: []string{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := FilterTokens(tt.tokens, tt.toRemove)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterTokens_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []string{"a", "b", "c"}
	_ = FilterTokens(in, "b")
	assert.Equal(t, []string{"a", "b", "c"}, in)
}
