package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nurkhatq/connect/internal/middleware"
	"github.com/nurkhatq/connect/internal/model"
	"github.com/nurkhatq/connect/internal/response"
	"github.com/nurkhatq/connect/internal/service"
	"github.com/nurkhatq/connect/internal/validator"
)

// TestHandler handles the test catalog and session endpoints.
type TestHandler struct {
	testService *service.TestService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(testService *service.TestService) *TestHandler {
	return &TestHandler{testService: testService}
}

// ListTests godoc
// GET /api/tests?category=
// Returns active tests, optionally filtered by category, with the caller's best score.
func (h *TestHandler) ListTests(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	tests, err := h.testService.ListTests(c.Request.Context(), claims.Subject, model.TestCategory(c.Query("category")))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, tests)
}

// GetTest godoc
// GET /api/tests/:test_id
// Returns one test with the caller's recent attempt history.
func (h *TestHandler) GetTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	detail, err := h.testService.GetTest(c.Request.Context(), claims.Subject, c.Param("test_id"))
	if err != nil {
		failTest(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// StartTest godoc
// POST /api/tests/:test_id/start
// Starts a session with sampled questions, or resumes the caller's open one.
func (h *TestHandler) StartTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	started, err := h.testService.StartTest(c.Request.Context(), claims.Subject, c.Param("test_id"))
	if err != nil {
		failTest(c, err)
		return
	}

	response.Success(c, http.StatusOK, started)
}

// SubmitAnswer godoc
// POST /api/tests/sessions/:session_id/answer
// Records the latest answer for one question. Repeats overwrite.
func (h *TestHandler) SubmitAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	saved, err := h.testService.SubmitAnswer(c.Request.Context(), claims.Subject, c.Param("session_id"), req)
	if err != nil {
		failTest(c, err)
		return
	}

	response.Success(c, http.StatusOK, saved)
}

// CompleteTest godoc
// POST /api/tests/sessions/:session_id/complete
// Scores the session, credits points and closes it. A second call is a 404.
func (h *TestHandler) CompleteTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	result, err := h.testService.CompleteTest(c.Request.Context(), claims.Subject, c.Param("session_id"))
	if err != nil {
		failTest(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetProgress godoc
// GET /api/tests/sessions/:session_id/progress
// Returns the cached progress of a session, zeros when nothing is cached.
func (h *TestHandler) GetProgress(c *gin.Context) {
	progress, err := h.testService.Progress(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, progress)
}

func failTest(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTestNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrNotEnoughQuestions):
		response.Fail(c, http.StatusBadRequest, response.ErrNotEnoughQuestions)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
