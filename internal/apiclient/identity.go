package apiclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/nurkhatq/connect/internal/model"
)

// identity owns the bearer token. Renewals are serialised by mu so that
// concurrent 401s result in a single refresh.
type identity struct {
	client   *Client
	initData string
	skew     time.Duration
	now      func() time.Time
	log      zerolog.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
	user   *model.User
}

func newIdentity(c *Client, initData, token string, skew time.Duration, log zerolog.Logger) *identity {
	id := &identity{
		client:   c,
		initData: initData,
		skew:     skew,
		now:      time.Now,
		log:      log,
	}
	if token != "" {
		id.setTokenLocked(token, nil)
	}
	return id
}

// Token returns a usable token, logging in or refreshing as needed.
func (i *identity) Token(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.token == "" {
		return i.loginLocked(ctx)
	}
	if !i.expiry.IsZero() && i.now().Add(i.skew).After(i.expiry) {
		i.log.Debug().Time("expires_at", i.expiry).Msg("Token close to expiry, renewing")
		return i.renewLocked(ctx)
	}
	return i.token, nil
}

// Renew replaces a token the server rejected. If another caller has already
// replaced stale, the newer token is returned without a request.
func (i *identity) Renew(ctx context.Context, stale string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.token != "" && i.token != stale {
		return i.token, nil
	}
	return i.renewLocked(ctx)
}

// renewLocked tries /auth/refresh first and falls back to a fresh login.
func (i *identity) renewLocked(ctx context.Context) (string, error) {
	if i.token != "" {
		var resp model.TokenResponse
		err := i.client.doAnonymous(ctx, "refresh token", http.MethodPost, "/auth/refresh", nil, i.token, &resp)
		if err == nil && resp.AccessToken != "" {
			i.setTokenLocked(resp.AccessToken, resp.User)
			i.log.Info().Msg("Token refreshed")
			return i.token, nil
		}
		i.log.Debug().Err(err).Msg("Refresh failed, falling back to login")
	}
	return i.loginLocked(ctx)
}

func (i *identity) loginLocked(ctx context.Context) (string, error) {
	if i.initData == "" {
		i.token = ""
		return "", ErrNoCredentials
	}

	var resp model.TokenResponse
	req := model.LoginRequest{InitData: i.initData}
	if err := i.client.doAnonymous(ctx, "login", http.MethodPost, "/auth/login", req, "", &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &Error{Op: "login", Kind: KindDecode, Message: "empty access_token"}
	}

	i.setTokenLocked(resp.AccessToken, resp.User)
	i.log.Info().Msg("Logged in with Telegram init data")
	return i.token, nil
}

func (i *identity) setTokenLocked(token string, user *model.User) {
	i.token = token
	i.expiry = tokenExpiry(token)
	if user != nil {
		i.user = user
	}
}

func (i *identity) currentUser() *model.User {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.user
}

// tokenExpiry reads exp without verifying the signature; the server is the
// authority, the client only needs to know when to renew. Opaque tokens yield
// the zero time and are only renewed on 401.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
