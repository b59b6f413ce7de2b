package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://connect-aitu.me/api.
	BaseURL string
	// InitData is the Telegram WebApp init data exchanged for a token.
	InitData string
	// Token is an already-issued bearer token; optional when InitData is set.
	Token string
	// Timeout bounds each HTTP request. Zero means 15s.
	Timeout time.Duration
	// RefreshSkew renews the token this long before it expires. Zero means 5m.
	RefreshSkew time.Duration
	// HTTPClient overrides the default client (tests use httptest clients).
	HTTPClient *http.Client
}

// Client talks to the catalog, session and identity endpoints.
// It is constructed once per application and shared; it is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	identity *identity
	log      zerolog.Logger
}

// New creates a Client. No request is made until the first call.
func New(opts Options, log zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RefreshSkew <= 0 {
		opts.RefreshSkew = 5 * time.Minute
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		log:     log.With().Str("component", "api_client").Logger(),
	}
	c.identity = newIdentity(c, opts.InitData, opts.Token, opts.RefreshSkew, c.log)
	return c
}

// do performs an authenticated call. A 401 triggers one token renewal and a
// single retry of the same request.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	payload, err := encodeBody(op, body)
	if err != nil {
		return err
	}

	token, err := c.identity.Token(ctx)
	if err != nil {
		return err
	}

	err = c.send(ctx, op, method, path, payload, token, out)
	if KindOf(err) != KindUnauthorized {
		return err
	}

	c.log.Debug().Str("op", op).Msg("Got 401, renewing token")
	renewed, rerr := c.identity.Renew(ctx, token)
	if rerr != nil {
		c.log.Warn().Err(rerr).Str("op", op).Msg("Token renewal failed")
		return err
	}
	return c.send(ctx, op, method, path, payload, renewed, out)
}

// doAnonymous performs a call with an explicit (possibly empty) token and no renewal.
func (c *Client) doAnonymous(ctx context.Context, op, method, path string, body interface{}, token string, out interface{}) error {
	payload, err := encodeBody(op, body)
	if err != nil {
		return err
	}
	return c.send(ctx, op, method, path, payload, token, out)
}

func encodeBody(op string, body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindUnexpected, Err: err}
	}
	return payload, nil
}

func (c *Client) send(ctx context.Context, op, method, path string, payload []byte, token string, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Kind: KindUnexpected, Err: err}
	}

	reqID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("op", op).Str("request_id", reqID).Msg("Request failed")
		return &Error{Op: op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Kind: KindNetwork, Err: err}
	}

	c.log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Str("request_id", reqID).
		Msg("API call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(op, resp.StatusCode, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Kind: KindDecode, Err: err}
	}
	return nil
}
