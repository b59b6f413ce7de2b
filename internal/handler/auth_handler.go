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

// AuthHandler handles Telegram login and token endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login godoc
// POST /api/auth/login
// Verifies Telegram WebApp init data, creates the user on first login, returns JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.InitData)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInitDataInvalid):
			response.Fail(c, http.StatusUnauthorized, response.ErrInitDataInvalid)
		case errors.Is(err, service.ErrInitDataNoUser):
			response.Fail(c, http.StatusUnauthorized, response.ErrInitDataNoUser)
		case errors.Is(err, service.ErrInitDataExpired):
			response.Fail(c, http.StatusUnauthorized, response.ErrInitDataExpired)
		case errors.Is(err, service.ErrUserInactive):
			response.Fail(c, http.StatusForbidden, response.ErrUserInactive)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, token)
}

// Refresh godoc
// POST /api/auth/refresh
// Issues a fresh token for the bearer of a still valid one.
func (h *AuthHandler) Refresh(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	token, err := h.authService.Refresh(c.Request.Context(), claims)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, token)
}

// Me godoc
// GET /api/auth/me
// Returns the profile of the currently authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.authService.Me(c.Request.Context(), claims)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, user)
}
