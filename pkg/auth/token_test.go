package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenbook/kitchenbook-backend/pkg/config"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
)

func newVerifier() *Verifier {
	return NewVerifier(&config.AuthConfig{JWTSecret: "test-secret", Issuer: "kitchenbook"})
}

func TestVerifier_RoundTrip(t *testing.T) {
	v := newVerifier()

	token, err := v.Sign("user-1", "chef@example.com", "owner-1", time.Minute)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "chef@example.com", claims.Email)
	assert.Equal(t, "owner-1", claims.OwnerID)
}

func TestVerifier_Rejects(t *testing.T) {
	v := newVerifier()

	expired, err := v.Sign("user-1", "", "owner-1", -time.Minute)
	require.NoError(t, err)

	other := NewVerifier(&config.AuthConfig{JWTSecret: "other-secret", Issuer: "kitchenbook"})
	foreign, err := other.Sign("user-1", "", "owner-1", time.Minute)
	require.NoError(t, err)

	noOwner, err := v.Sign("user-1", "", "", time.Minute)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"no owner":     noOwner,
		"garbage":      "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrUnauthorized))
		})
	}
}
