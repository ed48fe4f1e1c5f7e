package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService("test-secret", "gestionali-test", 1)
	userID := uuid.New()
	roleID := uuid.New()

	token, err := svc.GenerateToken(userID, roleID, "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, roleID, claims.RoleID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "gestionali-test", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := NewJWTService("secret-a", "gestionali-test", 1)
	verifier := NewJWTService("secret-b", "gestionali-test", 1)

	token, err := issuer.GenerateToken(uuid.New(), uuid.Nil, "user@example.com")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", "gestionali-test", 1)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
