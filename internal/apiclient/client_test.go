package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurkhatq/connect/internal/model"
)

func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(srv *httptest.Server, opts Options) *Client {
	opts.BaseURL = srv.URL + "/api/"
	opts.HTTPClient = srv.Client()
	return New(opts, zerolog.Nop())
}

func TestLoginIsLazyAndTokenIsCarried(t *testing.T) {
	token := signedToken(t, "u1", time.Now().Add(time.Hour))
	var logins int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logins, 1)
		var req model.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "query_id=1&hash=abc", req.InitData)
		writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: token, TokenType: "bearer", User: &model.User{ID: "u1", FirstName: "Aru"}})
	})
	mux.HandleFunc("/api/tests", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "ict", r.URL.Query().Get("category"))
		writeJSON(w, http.StatusOK, []model.TestSummary{{ID: "ict-1", Title: "ICT", TimeLimit: 600}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv, Options{InitData: "query_id=1&hash=abc"})

	tests, err := c.ListTests(context.Background(), model.CategoryICT)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "ict-1", tests[0].ID)

	_, err = c.ListTests(context.Background(), model.CategoryICT)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
	require.NotNil(t, c.CurrentUser())
	assert.Equal(t, "Aru", c.CurrentUser().FirstName)
}

func TestUnauthorizedRenewsAndRetriesOnce(t *testing.T) {
	stale := signedToken(t, "u1", time.Now().Add(time.Hour))
	fresh := signedToken(t, "u1", time.Now().Add(2*time.Hour))
	var answerCalls, refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		assert.Equal(t, "Bearer "+stale, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: fresh})
	})
	mux.HandleFunc("/api/tests/sessions/s1/answer", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&answerCalls, 1)
		if r.Header.Get("Authorization") != "Bearer "+fresh {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
			return
		}
		var req model.SubmitAnswerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "q1", req.QuestionID)
		assert.Equal(t, "B", req.Answer)
		writeJSON(w, http.StatusOK, model.SubmitAnswerResponse{Success: true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv, Options{Token: stale})

	require.NoError(t, c.SubmitAnswer(context.Background(), "s1", "q1", "B"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&answerCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}

func TestUnauthorizedAfterRenewalIsReturned(t *testing.T) {
	var answerCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: "opaque"})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "nope"})
	})
	mux.HandleFunc("/api/tests/sessions/s1/answer", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&answerCalls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv, Options{InitData: "x"})

	err := c.SubmitAnswer(context.Background(), "s1", "q1", "B")
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&answerCalls))
}

func TestRefreshFailureFallsBackToLogin(t *testing.T) {
	expiring := signedToken(t, "u1", time.Now().Add(time.Minute))
	fresh := signedToken(t, "u1", time.Now().Add(time.Hour))
	var logins int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logins, 1)
		writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: fresh})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+fresh, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, model.User{ID: "u1", Level: 2, Points: 1500})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv, Options{Token: expiring, InitData: "x", RefreshSkew: 5 * time.Minute})

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, user.Level)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestProactiveRefreshBeforeExpiry(t *testing.T) {
	expiring := signedToken(t, "u1", time.Now().Add(2*time.Minute))
	fresh := signedToken(t, "u1", time.Now().Add(time.Hour))
	var refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: fresh})
	})
	mux.HandleFunc("/api/tests/ict-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+fresh, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, model.TestDetail{
			TestSummary:  model.TestSummary{ID: "ict-1", TimeLimit: 600},
			PassingScore: 70,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv, Options{Token: expiring})

	detail, err := c.GetTest(context.Background(), "ict-1")
	require.NoError(t, err)
	assert.Equal(t, 70, detail.PassingScore)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}

func TestNoCredentials(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := newTestClient(srv, Options{})
	_, err := c.StartTest(context.Background(), "ict-1")
	assert.True(t, errors.Is(err, ErrNoCredentials))
}

func TestStartTestValidatesResponse(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		ok   bool
	}{
		{
			name: "valid",
			body: model.StartSessionResponse{
				SessionID: "s1",
				TimeLimit: 300,
				Questions: []model.Question{{ID: "q1", Options: []string{"A", "B"}}, {ID: "q2", Options: []string{"C"}}},
			},
			ok: true,
		},
		{
			name: "duplicate question ids",
			body: model.StartSessionResponse{
				SessionID: "s1",
				TimeLimit: 300,
				Questions: []model.Question{{ID: "q1", Options: []string{"A"}}, {ID: "q1", Options: []string{"B"}}},
			},
		},
		{
			name: "no questions",
			body: model.StartSessionResponse{SessionID: "s1", TimeLimit: 300, Questions: []model.Question{}},
		},
		{
			name: "zero time limit",
			body: model.StartSessionResponse{SessionID: "s1", Questions: []model.Question{{ID: "q1", Options: []string{"A"}}}},
		},
		{
			name: "question without options",
			body: model.StartSessionResponse{SessionID: "s1", TimeLimit: 60, Questions: []model.Question{{ID: "q1"}}},
		},
		{
			name: "missing session id",
			body: model.StartSessionResponse{TimeLimit: 60, Questions: []model.Question{{ID: "q1", Options: []string{"A"}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/tests/ict-1/start", r.URL.Path)
				writeJSON(w, http.StatusOK, tt.body)
			}))
			defer srv.Close()

			c := newTestClient(srv, Options{Token: "opaque"})
			resp, err := c.StartTest(context.Background(), "ict-1")
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, "s1", resp.SessionID)
				return
			}
			require.Error(t, err)
			assert.Equal(t, KindDecode, KindOf(err))
		})
	}
}

func TestErrorKindsAndBodies(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		kind    Kind
		code    string
		message string
	}{
		{http.StatusNotFound, `{"detail":"Test not found"}`, KindNotFound, "", "Test not found"},
		{http.StatusBadRequest, `{"error":{"code":"VALIDATION_ERROR","message":"Invalid request data"}}`, KindInvalid, "VALIDATION_ERROR", "Invalid request data"},
		{http.StatusForbidden, `{"detail":"Forbidden"}`, KindForbidden, "", "Forbidden"},
		{http.StatusConflict, `{}`, KindConflict, "", ""},
		{http.StatusUnprocessableEntity, `{"detail":[{"loc":["body"],"msg":"field required"}]}`, KindInvalid, "", `[{"loc":["body"],"msg":"field required"}]`},
		{http.StatusTooManyRequests, `{"error":{"code":"RATE_LIMITED","message":"Too many requests"}}`, KindRateLimited, "RATE_LIMITED", "Too many requests"},
		{http.StatusServiceUnavailable, `upstream down`, KindServer, "", "upstream down"},
		{http.StatusTeapot, `{}`, KindUnexpected, "", ""},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(srv, Options{Token: "opaque"})
			_, err := c.CompleteTest(context.Background(), "s1")
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestRawErrorBodyKeepsWholeRunes(t *testing.T) {
	// "x" shifts the Cyrillic text so byte 200 falls inside a rune.
	body := "x" + strings.Repeat("ж", 150)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestClient(srv, Options{Token: "opaque"})
	_, err := c.CompleteTest(context.Background(), "s1")

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, utf8.ValidString(apiErr.Message))
	assert.Equal(t, "x"+strings.Repeat("ж", 99), apiErr.Message)
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(srv, Options{Token: "opaque"})
	srv.Close()

	err := c.SubmitAnswer(context.Background(), "s1", "q1", "A")
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.True(t, IsTransient(err))
}

func TestCompleteAndProgress(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tests/sessions/s1/complete", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.CompletionResult{
			Score: 8, Percentage: 80, CorrectAnswers: 8, TotalQuestions: 10, Passed: true, PointsEarned: 410, TimeSpent: 120,
		})
	})
	mux.HandleFunc("/api/tests/sessions/s1/progress", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.Progress{Progress: 40, Answers: 4})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv, Options{Token: "opaque"})

	res, err := c.CompleteTest(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, 410, res.PointsEarned)

	p, err := c.Progress(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Answers)
}
