package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurkhatq/connect/internal/config"
	"github.com/nurkhatq/connect/internal/model"
	"github.com/nurkhatq/connect/internal/repository"
)

func newAuthService(t *testing.T) (*AuthService, *repository.UserRepository) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:      "test-secret",
		JWTExpiry:      time.Hour,
		BotToken:       testBotToken,
		InitDataMaxAge: 24 * time.Hour,
	}
	users := repository.NewUserRepository()
	return NewAuthService(cfg, users, zerolog.Nop()), users
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	initData, err := SignInitData(testBotToken, model.TelegramUser{ID: 1001, FirstName: "Aibek"}, time.Now())
	require.NoError(t, err)

	resp, err := svc.Login(ctx, initData)
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	require.NotNil(t, resp.User)
	assert.Equal(t, int64(1001), resp.User.TelegramID)
	assert.Equal(t, 1, resp.User.Level)

	claims, err := svc.ValidateToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.Subject)
	assert.Equal(t, int64(1001), claims.TelegramID)

	again, err := svc.Login(ctx, initData)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, again.User.ID)

	refreshed, err := svc.Refresh(ctx, claims)
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, refreshed.AccessToken)
	assert.NoError(t, err)
}

func TestLoginRejectsBadInitData(t *testing.T) {
	svc, _ := newAuthService(t)

	initData, err := SignInitData("someone-elses-bot", model.TelegramUser{ID: 1}, time.Now())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), initData)
	assert.ErrorIs(t, err, ErrInitDataInvalid)
}

func TestValidateToken(t *testing.T) {
	svc, users := newAuthService(t)
	ctx := context.Background()

	user, _, err := users.UpsertTelegramUser(ctx, model.TelegramUser{ID: 5})
	require.NoError(t, err)

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()
		_, err := svc.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}).SignedString([]byte("not-the-secret"))
		require.NoError(t, err)
		_, err = svc.ValidateToken(ctx, forged)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("unknown user", func(t *testing.T) {
		ghost, err := svc.GenerateToken(&model.User{ID: "ghost"})
		require.NoError(t, err)
		_, err = svc.ValidateToken(ctx, ghost)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("inactive user", func(t *testing.T) {
		require.NoError(t, users.SetActive(ctx, user.ID, false))
		defer func() { _ = users.SetActive(ctx, user.ID, true) }()
		_, err := svc.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrUserInactive)
	})
}
