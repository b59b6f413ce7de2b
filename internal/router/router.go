package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nurkhatq/connect/internal/config"
	"github.com/nurkhatq/connect/internal/handler"
	"github.com/nurkhatq/connect/internal/middleware"
	"github.com/nurkhatq/connect/internal/response"
	"github.com/nurkhatq/connect/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth *handler.AuthHandler
	Test *handler.TestHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work started by middlewares (rate limiter sweeps).
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// The Mini App runs inside Telegram's web view; restrict to
	// AllowedOrigins when set, otherwise allow all for local development.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(middleware.RequestID(), middleware.RequestLogger(log))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := api.Group("/auth")
	{
		loginLimiter := middleware.NewRateLimiter(ctx, cfg.LoginRatePerMinute, time.Minute)
		auth.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)

		auth.POST("/refresh", middleware.RequireJWT(authService), handlers.Auth.Refresh)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Tests Group (JWT) ──────────────────────────────────────────
	tests := api.Group("/tests")
	tests.Use(middleware.RequireJWT(authService))
	{
		catalog := middleware.Brotli(5, middleware.BrotliMinLength)
		tests.GET("", catalog, handlers.Test.ListTests)
		tests.GET("/:test_id", catalog, handlers.Test.GetTest)
		tests.POST("/:test_id/start", middleware.NoStore(), handlers.Test.StartTest)
	}

	// ─── 3. Session Group (JWT, no-store) ──────────────────────────────
	sessions := tests.Group("/sessions/:session_id")
	sessions.Use(middleware.NoStore())
	{
		sessions.POST("/answer",
			middleware.InjectFailures(cfg.AnswerFailureRate, log),
			handlers.Test.SubmitAnswer,
		)
		sessions.POST("/complete", handlers.Test.CompleteTest)
		sessions.GET("/progress", handlers.Test.GetProgress)
	}

	return router
}
