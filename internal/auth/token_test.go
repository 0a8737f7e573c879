// ABOUTME: Tests for JWT token generation and verification

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(testSecret)
	require.NoError(t, err)
	return v
}

func TestNewJWTVerifier_RejectsShortSecret(t *testing.T) {
	_, err := NewJWTVerifier([]byte("short"))
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestGenerateAndVerify(t *testing.T) {
	v := newTestVerifier(t)

	token, err := v.Generate("laptop", time.Hour)
	require.NoError(t, err)

	sub, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "laptop", sub)
}

func TestVerify_Expired(t *testing.T) {
	v := newTestVerifier(t)
	v.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := v.Generate("laptop", time.Hour)
	require.NoError(t, err)

	v.now = time.Now
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	other, err := NewJWTVerifier([]byte(strings.Repeat("z", 32)))
	require.NoError(t, err)
	token, err := other.Generate("laptop", time.Hour)
	require.NoError(t, err)

	_, err = newTestVerifier(t).Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsForeignTokens(t *testing.T) {
	v := newTestVerifier(t)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		method jwt.SigningMethod
		claims jwt.RegisteredClaims
		want   error
	}{
		{"wrong issuer", jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "someone-else", Subject: "x", ExpiresAt: exp}, ErrInvalidToken},
		{"no expiry", jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: Issuer, Subject: "x"}, ErrInvalidToken},
		{"wrong algorithm", jwt.SigningMethodHS512, jwt.RegisteredClaims{Issuer: Issuer, Subject: "x", ExpiresAt: exp}, ErrInvalidToken},
		{"no subject", jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: Issuer, ExpiresAt: exp}, ErrMissingClaim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(tt.method, tt.claims).SignedString(testSecret)
			require.NoError(t, err)

			_, err = v.Verify(token)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerify_Garbage(t *testing.T) {
	_, err := newTestVerifier(t).Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerate_RequiresSubject(t *testing.T) {
	_, err := newTestVerifier(t).Generate("", time.Hour)
	require.ErrorIs(t, err, ErrMissingClaim)
}
