package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurkhatq/connect/internal/config"
	"github.com/nurkhatq/connect/internal/model"
	"github.com/nurkhatq/connect/internal/repository"
)

// Common auth errors.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrUserInactive = errors.New("inactive user")
)

// Claims extends JWT standard claims with the Telegram user ID.
// Subject is the platform user ID.
type Claims struct {
	jwt.RegisteredClaims
	TelegramID int64 `json:"telegram_id"`
}

// AuthService exchanges Telegram init data for JWTs and validates them.
type AuthService struct {
	cfg   *config.Config
	users repository.UserStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, users repository.UserStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:   cfg,
		users: users,
		log:   log.With().Str("component", "auth_service").Logger(),
		now:   time.Now,
	}
}

// Login verifies init data, finds or creates the user and issues a token.
func (s *AuthService) Login(ctx context.Context, initData string) (*model.TokenResponse, error) {
	tu, err := VerifyInitData(initData, s.cfg.BotToken, s.cfg.InitDataMaxAge, s.now())
	if err != nil {
		return nil, err
	}

	user, created, err := s.users.UpsertTelegramUser(ctx, *tu)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if created {
		s.log.Info().Int64("telegram_id", tu.ID).Str("user_id", user.ID).Msg("User created")
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &model.TokenResponse{AccessToken: token, TokenType: "bearer", User: user}, nil
}

// Refresh issues a new token for an already authenticated user.
func (s *AuthService) Refresh(ctx context.Context, claims *Claims) (*model.TokenResponse, error) {
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &model.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// GenerateToken creates an HS256 JWT for user.
func (s *AuthService) GenerateToken(user *model.User) (string, error) {
	now := s.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TelegramID: user.TelegramID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT and checks that its user exists
// and is active.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return claims, nil
}

// Me returns the authenticated user's profile.
func (s *AuthService) Me(ctx context.Context, claims *Claims) (*model.User, error) {
	return s.users.GetByID(ctx, claims.Subject)
}
