package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nurkhatq/connect/internal/model"
)

// Telegram init data errors.
var (
	ErrInitDataInvalid = errors.New("init data hash verification failed")
	ErrInitDataNoUser  = errors.New("init data has no user")
	ErrInitDataExpired = errors.New("init data is too old")
)

// VerifyInitData checks a Telegram WebApp init data string: the hash must be
// HMAC-SHA256 of the sorted key=value lines keyed with
// HMAC-SHA256("WebAppData", botToken), the user must carry an ID and
// auth_date must be within maxAge of now.
func VerifyInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*model.TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInitDataInvalid
	}

	received := values.Get("hash")
	if received == "" {
		return nil, ErrInitDataInvalid
	}
	values.Del("hash")

	expected := initDataHash(botToken, values)
	if !hmac.Equal([]byte(strings.ToLower(received)), []byte(expected)) {
		return nil, ErrInitDataInvalid
	}

	var user model.TelegramUser
	raw := values.Get("user")
	if raw == "" || json.Unmarshal([]byte(raw), &user) != nil || user.ID == 0 {
		return nil, ErrInitDataNoUser
	}

	authDate, _ := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if now.Sub(time.Unix(authDate, 0)) > maxAge {
		return nil, ErrInitDataExpired
	}

	return &user, nil
}

// SignInitData builds a signed init data string the way Telegram does. The
// sandbox uses it to mint credentials for local test users.
func SignInitData(botToken string, user model.TelegramUser, authDate time.Time) (string, error) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAH"+strconv.FormatInt(user.ID, 36))
	values.Set("user", string(userJSON))
	values.Set("hash", initDataHash(botToken, values))
	return values.Encode(), nil
}

func initDataHash(botToken string, values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
