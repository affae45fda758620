package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestJWTManager_IssueAndParse(t *testing.T) {
	manager := JWTManager{Secret: []byte("test-secret"), Issuer: "accounts", AccessTokenTTL: time.Hour}

	token, ttl, err := manager.IssueAccessToken("user-1", "alice123", []string{"user", "editor"})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	claims, err := manager.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice123", claims.Username)
	assert.Equal(t, []string{"user", "editor"}, claims.Roles)
	assert.Equal(t, "accounts", claims.Issuer)
}

func TestJWTManager_DefaultTTLIsOneHour(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	manager := JWTManager{Secret: []byte("test-secret"), Now: fixedClock(issuedAt)}

	token, ttl, err := manager.IssueAccessToken("user-1", "alice123", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	claims, err := manager.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(time.Hour), claims.ExpiresAt.Time.UTC())
	assert.Empty(t, claims.Roles)
}

func TestJWTManager_Expiry(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := JWTManager{Secret: []byte("test-secret"), AccessTokenTTL: time.Hour, Now: fixedClock(issuedAt)}

	token, _, err := issuer.IssueAccessToken("user-1", "alice123", nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		at      time.Time
		wantErr bool
	}{
		{name: "immediately", at: issuedAt, wantErr: false},
		{name: "before expiry", at: issuedAt.Add(59 * time.Minute), wantErr: false},
		{name: "after expiry", at: issuedAt.Add(time.Hour + time.Second), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := issuer
			verifier.Now = fixedClock(tt.at)
			_, err := verifier.ParseAccessToken(token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestJWTManager_RejectsTamperedTokens(t *testing.T) {
	manager := JWTManager{Secret: []byte("test-secret")}
	other := JWTManager{Secret: []byte("other-secret")}

	foreign, _, err := other.IssueAccessToken("user-1", "alice123", nil)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"alg none":     unsigned,
		"garbage":      "garbage",
		"empty":        "",
		"two segments": "a.b",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := manager.ParseAccessToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTManager_EmptySecret(t *testing.T) {
	_, _, err := JWTManager{}.IssueAccessToken("user-1", "alice123", nil)
	assert.Error(t, err)
}
