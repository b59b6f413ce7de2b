package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurkhatq/connect/internal/config"
	"github.com/nurkhatq/connect/internal/database"
	"github.com/nurkhatq/connect/internal/handler"
	"github.com/nurkhatq/connect/internal/logger"
	"github.com/nurkhatq/connect/internal/model"
	"github.com/nurkhatq/connect/internal/repository"
	"github.com/nurkhatq/connect/internal/router"
	"github.com/nurkhatq/connect/internal/service"
	"github.com/nurkhatq/connect/internal/validator"
	"github.com/nurkhatq/connect/internal/worker"
)

func main() {
	printInitData := flag.Bool("print-init-data", false, "print signed Telegram init data for a test user and exit")
	telegramID := flag.Int64("telegram-id", 100001, "Telegram user ID used with -print-init-data")
	firstName := flag.String("first-name", "Sandbox", "first name used with -print-init-data")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "sandbox", os.Stderr)

	if cfg.BotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN is required")
	}

	if *printInitData {
		initData, err := service.SignInitData(cfg.BotToken, model.TelegramUser{ID: *telegramID, FirstName: *firstName}, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to sign init data")
		}
		fmt.Println(initData)
		return
	}

	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Float64("answer_failure_rate", cfg.AnswerFailureRate).
		Msg("Starting Connect Session API sandbox")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Session Store ─────────────────────────────────────────────────
	var sessions repository.SessionStore
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		sessions = repository.NewRedisSessionStore(rdb)
	} else {
		log.Warn().Msg("REDIS_URL not set, sessions kept in memory")
		sessions = repository.NewMemorySessionStore()
	}

	// ─── Load Catalog ──────────────────────────────────────────────────
	catalog := repository.DemoCatalog()
	if cfg.CatalogPath != "" {
		loaded, err := repository.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("Failed to load catalog")
		}
		catalog = loaded
	}
	log.Info().
		Int("tests", len(catalog.Tests)).
		Int("questions", len(catalog.Questions)).
		Msg("Catalog loaded")

	// ─── User Store ────────────────────────────────────────────────────
	var userRepo repository.UserStore
	if cfg.DatabaseURL != "" {
		if err := database.MigrateUp(cfg.DatabaseURL, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.MaxDBConns, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		userRepo = repository.NewPostgresUserRepository(pool)
	} else {
		log.Warn().Msg("DATABASE_URL not set, users kept in memory")
		userRepo = repository.NewUserRepository()
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	catalogRepo := repository.NewCatalogRepository(catalog)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, log)
	testService := service.NewTestService(catalogRepo, sessions, userRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth: handler.NewAuthHandler(authService),
		Test: handler.NewTestHandler(testService),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	expiryWorker := worker.NewExpiryWorker(testService, cfg.SweepInterval, cfg.SessionGrace, log)
	go expiryWorker.Start(ctx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Stop background workers and the rate limiter sweep.
	cancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
