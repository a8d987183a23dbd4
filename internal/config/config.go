package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	// Application
	AppName   string
	AppEnv    string
	Port      string
	ClientURL string

	// Database (driver switch via ENV, default: sqlite)
	DBDriver      string
	DBConnection  string
	MongoURI      string
	MongoDatabase string

	// Locking (optional: empty means in-process locks)
	RedisURL string

	// Security
	JWTSecret string
	JWTExpiry time.Duration

	// Withdrawal rules
	WithdrawPolicy    string
	PenaltyRate       decimal.Decimal
	PenaltyFreeBreaks int
	EmergencyLimit    int

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN string

	// Storage for check images (optional: empty bucket disables uploads)
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string // Optional: for S3-compatible services (MinIO, R2, etc.)
	S3PresignExpiry time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:   envString("APP_NAME", "Venus"),
		AppEnv:    envRequired("APP_ENV"), // Required: 'development' or 'production'
		Port:      envString("PORT", "8090"),
		ClientURL: envString("CLIENT_URL", "http://localhost:5173"),

		// Database
		DBDriver:      envString("DB_DRIVER", "sqlite"),
		DBConnection:  envString("DB_CONNECTION", "./data/venus.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),
		MongoURI:      envString("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: envString("MONGO_DATABASE", "venus"),

		RedisURL: envString("REDIS_URL", ""),

		// Security
		JWTSecret: envRequired("JWT_SECRET"),
		JWTExpiry: envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days

		// Withdrawal rules (exactly one policy is active)
		WithdrawPolicy:    envString("WITHDRAW_POLICY", "penalty"),
		PenaltyRate:       envDecimal("PENALTY_RATE", decimal.RequireFromString("0.10")),
		PenaltyFreeBreaks: envInt("PENALTY_FREE_BREAKS", 1),
		EmergencyLimit:    envInt("EMERGENCY_LIMIT", 3),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		S3Region:        envString("S3_REGION", ""),
		S3Bucket:        envString("S3_BUCKET", ""),
		S3AccessKey:     envString("S3_ACCESS_KEY", ""),
		S3SecretKey:     envString("S3_SECRET_KEY", ""),
		S3Endpoint:      envString("S3_ENDPOINT", ""),
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", 1*time.Hour),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		err = validateProduction(cfg)
		if err != nil {
			slog.Error("invalid production configuration", "error", err,
				"hint", "set APP_ENV=development for local testing")
			os.Exit(1)
		}
	}

	return cfg
}

// validateProduction ensures production deployments do not run on
// development fallbacks (email log mode, in-memory storage).
func validateProduction(cfg *Config) error {
	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("production deployment requires RESEND_API_KEY")
	}
	if cfg.DBDriver == "memory" {
		return fmt.Errorf("production deployment cannot use DB_DRIVER=memory")
	}
	return nil
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		slog.Warn("config invalid decimal, using default", "key", key, "value", v, "default", def.String())
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// CheckUploadsEnabled reports whether an S3 bucket is configured.
func (c *Config) CheckUploadsEnabled() bool {
	return c.S3Bucket != ""
}
