package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)

	tok, err := issuer.Issue("shadow")
	require.NoError(t, err)

	username, err := issuer.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "shadow", username)
}

func TestValidateWrongSecret(t *testing.T) {
	tok, err := NewTokenIssuer("secret-a", time.Minute).Issue("shadow")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Minute).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)

	now := time.Now().Add(-time.Hour)
	claims := jwt.RegisteredClaims{
		Subject:   "shadow",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = issuer.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateWrongAlgorithm(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)

	claims := jwt.RegisteredClaims{
		Subject:   "shadow",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateMissingSubject(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)

	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = issuer.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)
	_, err := issuer.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDefaultTTL(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 0)
	assert.Equal(t, 30*time.Minute, issuer.TTL())
}
