package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)

	token, err := manager.Issue("jdoe")
	require.NoError(t, err)

	subject, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", subject)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).Issue("jdoe")
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager("secret", -time.Minute)

	token, err := manager.Issue("jdoe")
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)

	_, err := manager.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
