package model

import "time"

// TelegramUser is the user object embedded in Telegram WebApp init data.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// User is a platform user as exposed by the identity endpoints.
type User struct {
	ID         string    `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name,omitempty"`
	Level      int       `json:"level"`
	Points     int       `json:"points"`
	IsActive   bool      `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// LoginRequest exchanges Telegram init data for an access token.
type LoginRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

// TokenResponse is returned by POST /auth/login and POST /auth/refresh.
type TokenResponse struct {
	AccessToken string `json:"access_token" binding:"required"`
	TokenType   string `json:"token_type,omitempty"`
	User        *User  `json:"user,omitempty"`
}
