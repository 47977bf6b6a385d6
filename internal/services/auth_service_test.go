package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/needus/ecommerce-backend/internal/apperr"
	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository/memory"
	"github.com/needus/ecommerce-backend/internal/utils"
)

func seedUser(t *testing.T, store *memory.Store, username string, role models.UserRole, enabled bool) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@shop.test", Role: role, Enabled: enabled}
	require.NoError(t, user.SetPassword("Secret#123"))
	require.NoError(t, store.Users().Save(context.Background(), user))
	return user
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cfg := testConfig()
	utils.SetJWTSecret(cfg.JWT.SecretKey)
	admin := seedUser(t, store, "admin", models.UserRoleAdmin, true)
	service := NewAuthService(store, cfg)

	resp, err := service.Login(ctx, &LoginRequest{Username: "admin", Password: "Secret#123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID.String(), claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	stored, err := store.Users().FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedUser(t, store, "pending", models.UserRoleUser, false)
	seedUser(t, store, "admin", models.UserRoleAdmin, true)
	service := NewAuthService(store, testConfig())

	_, err := service.Login(ctx, &LoginRequest{Username: "nobody", Password: "Secret#123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, &LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, &LoginRequest{Username: "pending", Password: "Secret#123"})
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, err = service.Login(ctx, &LoginRequest{Username: "admin"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
