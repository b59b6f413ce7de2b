package service

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurkhatq/connect/internal/model"
)

const testBotToken = "123456:TEST-bot-token"

func TestInitDataRoundTrip(t *testing.T) {
	now := time.Now()
	user := model.TelegramUser{ID: 777, FirstName: "Aru", Username: "aru_k"}

	initData, err := SignInitData(testBotToken, user, now.Add(-time.Minute))
	require.NoError(t, err)

	got, err := VerifyInitData(initData, testBotToken, 24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, user, *got)
}

func TestInitDataRejections(t *testing.T) {
	now := time.Now()
	user := model.TelegramUser{ID: 777, FirstName: "Aru"}

	valid, err := SignInitData(testBotToken, user, now)
	require.NoError(t, err)

	tampered := func() string {
		v, err := url.ParseQuery(valid)
		require.NoError(t, err)
		v.Set("user", `{"id":1,"first_name":"Mallory"}`)
		return v.Encode()
	}()

	noUser := func() string {
		v := url.Values{}
		v.Set("auth_date", "1")
		v.Set("hash", initDataHash(testBotToken, v))
		return v.Encode()
	}()
	freshNoUser := func() string {
		v := url.Values{}
		v.Set("auth_date", "9999999999")
		v.Set("hash", initDataHash(testBotToken, v))
		return v.Encode()
	}()

	stale, err := SignInitData(testBotToken, user, now.Add(-25*time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name     string
		initData string
		botToken string
		want     error
	}{
		{"wrong bot token", valid, "other:token", ErrInitDataInvalid},
		{"tampered user", tampered, testBotToken, ErrInitDataInvalid},
		{"missing hash", "auth_date=1&user=%7B%22id%22%3A1%7D", testBotToken, ErrInitDataInvalid},
		{"garbage", "%%%", testBotToken, ErrInitDataInvalid},
		{"no user", noUser, testBotToken, ErrInitDataNoUser},
		{"no user fresh", freshNoUser, testBotToken, ErrInitDataNoUser},
		{"too old", stale, testBotToken, ErrInitDataExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyInitData(tt.initData, tt.botToken, 24*time.Hour, now)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
