package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nurkhatq/connect/internal/model"
	"github.com/nurkhatq/connect/internal/validator"
)

// ─── Identity ───────────────────────────────────────────────────────────

// Login exchanges the configured init data for a token and returns the user.
func (c *Client) Login(ctx context.Context) (*model.User, error) {
	c.identity.mu.Lock()
	_, err := c.identity.loginLocked(ctx)
	user := c.identity.user
	c.identity.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if user == nil {
		return c.Me(ctx)
	}
	return user, nil
}

// Refresh forces a token renewal.
func (c *Client) Refresh(ctx context.Context) error {
	c.identity.mu.Lock()
	defer c.identity.mu.Unlock()
	_, err := c.identity.renewLocked(ctx)
	return err
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, "get current user", http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser returns the user from the last login, if any.
func (c *Client) CurrentUser() *model.User {
	return c.identity.currentUser()
}

// ─── Catalog ────────────────────────────────────────────────────────────

// ListTests returns the catalog, optionally filtered by category.
func (c *Client) ListTests(ctx context.Context, category model.TestCategory) ([]model.TestSummary, error) {
	path := "/tests"
	if category != "" {
		path += "?" + url.Values{"category": {string(category)}}.Encode()
	}

	var tests []model.TestSummary
	if err := c.do(ctx, "list tests", http.MethodGet, path, nil, &tests); err != nil {
		return nil, err
	}
	return tests, nil
}

// GetTest returns one test with the caller's attempt history.
func (c *Client) GetTest(ctx context.Context, testID string) (*model.TestDetail, error) {
	var detail model.TestDetail
	if err := c.do(ctx, "get test", http.MethodGet, "/tests/"+url.PathEscape(testID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ─── Sessions ───────────────────────────────────────────────────────────

// StartTest opens (or resumes) a session. A response without a session id,
// without questions, with duplicate question ids, or with a non-positive time
// limit is rejected as KindDecode.
func (c *Client) StartTest(ctx context.Context, testID string) (*model.StartSessionResponse, error) {
	const op = "start test"

	var resp model.StartSessionResponse
	if err := c.do(ctx, op, http.MethodPost, "/tests/"+url.PathEscape(testID)+"/start", nil, &resp); err != nil {
		return nil, err
	}
	if err := validator.Struct(resp); err != nil {
		return nil, &Error{Op: op, Kind: KindDecode, Err: err}
	}
	return &resp, nil
}

// SubmitAnswer persists one answer. Any 2xx is success.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, questionID, answer string) error {
	req := model.SubmitAnswerRequest{QuestionID: questionID, Answer: answer}
	return c.do(ctx, "submit answer", http.MethodPost, "/tests/sessions/"+url.PathEscape(sessionID)+"/answer", req, nil)
}

// CompleteTest closes the session and returns the scored result.
func (c *Client) CompleteTest(ctx context.Context, sessionID string) (*model.CompletionResult, error) {
	const op = "complete test"

	var result model.CompletionResult
	if err := c.do(ctx, op, http.MethodPost, "/tests/sessions/"+url.PathEscape(sessionID)+"/complete", nil, &result); err != nil {
		return nil, err
	}
	if err := validator.Struct(result); err != nil {
		return nil, &Error{Op: op, Kind: KindDecode, Err: err}
	}
	return &result, nil
}

// Progress returns the server's cached progress for an open session.
func (c *Client) Progress(ctx context.Context, sessionID string) (*model.Progress, error) {
	var p model.Progress
	if err := c.do(ctx, "get progress", http.MethodGet, "/tests/sessions/"+url.PathEscape(sessionID)+"/progress", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
