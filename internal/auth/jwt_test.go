package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biztrack/biztrack-server/internal/config"
	"github.com/biztrack/biztrack-server/internal/models"
)

func testManager(secret string) *JWTManager {
	return NewJWTManager(&config.JWTConfig{
		Secret:          secret,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func TestGenerateTokenPair(t *testing.T) {
	m := testManager("test-secret")

	mainID := uuid.New()
	branchID := uuid.New()
	user := &models.User{
		Email:         "cashier@example.com",
		Role:          models.RoleCashier,
		MainAccountID: &mainID,
		BranchID:      &branchID,
	}
	user.ID = uuid.New()

	access, refresh, err := m.GenerateTokenPair(user)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	t.Run("access token round-trips claims", func(t *testing.T) {
		claims, err := m.ValidateToken(access)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, user.Email, claims.Email)
		assert.Equal(t, models.RoleCashier, claims.Role)
		require.NotNil(t, claims.MainAccountID)
		assert.Equal(t, mainID, *claims.MainAccountID)
		require.NotNil(t, claims.BranchID)
		assert.Equal(t, branchID, *claims.BranchID)
	})

	t.Run("refresh token resolves the user ID", func(t *testing.T) {
		userID, err := m.ValidateRefreshToken(refresh)
		require.NoError(t, err)
		assert.Equal(t, user.ID, userID)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		other := testManager("other-secret")
		_, err := other.ValidateToken(access)
		assert.Error(t, err)
		_, err = other.ValidateRefreshToken(refresh)
		assert.Error(t, err)
	})

	t.Run("garbage tokens are rejected", func(t *testing.T) {
		_, err := m.ValidateToken("not.a.token")
		assert.Error(t, err)
		_, err = m.ValidateRefreshToken("")
		assert.Error(t, err)
	})
}

func TestExpiredToken(t *testing.T) {
	m := NewJWTManager(&config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  -time.Minute,
		RefreshTokenTTL: -time.Minute,
	})

	user := &models.User{Email: "x@example.com", Role: models.RoleSubscriber}
	user.ID = uuid.New()

	access, refresh, err := m.GenerateTokenPair(user)
	require.NoError(t, err)

	_, err = m.ValidateToken(access)
	assert.Error(t, err)
	_, err = m.ValidateRefreshToken(refresh)
	assert.Error(t, err)
}
