package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration for the client tools and the sandbox.
type Config struct {
	LogLevel  string
	LogFormat string

	// ─── Client ────────────────────────────────────────────────────────
	APIBaseURL        string
	InitData          string
	Token             string
	HTTPTimeout       time.Duration
	TokenRefreshSkew  time.Duration
	TickInterval      time.Duration
	ReconcileInterval time.Duration
	SavePause         time.Duration
	FlushPause        time.Duration

	// ─── Sandbox ───────────────────────────────────────────────────────
	ServerPort     string
	GinMode        string
	JWTSecret      string
	JWTExpiry      time.Duration
	BotToken       string
	InitDataMaxAge time.Duration
	RedisURL       string
	DatabaseURL    string
	MaxDBConns     int32
	CatalogPath    string
	// AllowedOrigins controls sandbox CORS. Empty slice means all origins are permitted.
	AllowedOrigins     []string
	AnswerFailureRate  float64
	LoginRatePerMinute int
	// Open sessions older than their time limit plus SessionGrace are
	// completed by the expiry worker every SweepInterval.
	SessionGrace  time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "pretty"),

		APIBaseURL:        strings.TrimRight(getEnv("CONNECT_API_URL", "http://localhost:8080/api"), "/"),
		InitData:          getEnv("TELEGRAM_INIT_DATA", ""),
		Token:             getEnv("CONNECT_TOKEN", ""),
		HTTPTimeout:       getEnvDuration("HTTP_TIMEOUT", 15*time.Second),
		TokenRefreshSkew:  getEnvDuration("TOKEN_REFRESH_SKEW", 5*time.Minute),
		TickInterval:      getEnvDuration("TICK_INTERVAL", time.Second),
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 10*time.Second),
		SavePause:         getEnvDuration("SAVE_PAUSE", 50*time.Millisecond),
		FlushPause:        getEnvDuration("FLUSH_PAUSE", 100*time.Millisecond),

		ServerPort:         getEnv("SERVER_PORT", "8080"),
		GinMode:            getEnv("GIN_MODE", "debug"),
		JWTSecret:          getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		JWTExpiry:          time.Duration(getEnvInt("JWT_EXPIRY_MINUTES", 60)) * time.Minute,
		BotToken:           getEnv("TELEGRAM_BOT_TOKEN", ""),
		InitDataMaxAge:     getEnvDuration("INIT_DATA_MAX_AGE", 24*time.Hour),
		RedisURL:           getEnv("REDIS_URL", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		MaxDBConns:         int32(getEnvInt("DB_MAX_CONNS", 10)),
		CatalogPath:        getEnv("CATALOG_PATH", ""),
		AllowedOrigins:     parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		AnswerFailureRate:  getEnvFloat("ANSWER_FAILURE_RATE", 0),
		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 30),
		SessionGrace:       getEnvDuration("SESSION_EXPIRY_GRACE", 2*time.Minute),
		SweepInterval:      getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go duration strings ("1500ms", "10s") and falls back
// on anything unparsable.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
