package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/garmentflow/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	password := "secret123"

	hash, err := HashPassword(password)
	require.NoError(t, err)
	assert.NotEqual(t, password, hash)
	assert.NotEmpty(t, hash)

	assert.True(t, CheckPasswordHash(password, hash))
	assert.False(t, CheckPasswordHash("wrongpassword", hash))
}

func TestJWT(t *testing.T) {
	secret := "test-secret-key-12345"
	user := &models.UserAuth{
		ID:       "uuid-1234",
		Username: "line-lead",
		Email:    "lead@example.com",
		Role:     models.RoleSupervisor,
	}

	accessToken, refreshToken, err := GenerateTokens(user, secret, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)

	claims, err := ValidateToken(accessToken, secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.RoleSupervisor, claims.Role)

	refreshClaims, err := ValidateToken(refreshToken, secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshClaims.UserID)
	assert.Empty(t, refreshClaims.Role)

	_, err = ValidateToken(accessToken, "wrong-key")
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	secret := "test-secret"
	user := &models.UserAuth{ID: "u-1", Role: models.RoleOperator}

	accessToken, _, err := GenerateTokens(user, secret, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)

	_, err = ValidateToken(accessToken, secret)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestGenerateTokensRequiresSecret(t *testing.T) {
	_, _, err := GenerateTokens(&models.UserAuth{ID: "u-1"}, "", time.Now())
	assert.Error(t, err)
}
