package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string
	MockServices   bool

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	LogEmailsPath   string

	// App Defaults
	AppName        string
	CurrencyLocale string
	CurrencyCode   string

	// Appointments
	AppointmentSlotDuration time.Duration

	// Auctions
	AuctionDefaultExtendHours int
	AuctionAutoClose          bool

	// Sweeps
	SyncCron      string
	RolloverCron  string
	AutoCloseCron string
	SweepLockTTL  time.Duration

	// Rate Limiting Defaults
	RateLimitBidBucketSize int
	RateLimitBidRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	// Load basic string values
	cfg.DatabaseURL, err = getRequiredEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "8081")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@omnes-immobilier.example.com")
	cfg.LogEmailsPath = getEnv("LOG_EMAILS", "")
	cfg.AppName = getEnv("APP_NAME", "Omnes Immobilier")
	cfg.CurrencyLocale = getEnv("CURRENCY_LOCALE", "fr-FR")
	cfg.CurrencyCode = getEnv("CURRENCY_CODE", "EUR")
	cfg.SyncCron = getEnv("SYNC_CRON", "@every 1h")
	cfg.RolloverCron = getEnv("ROLLOVER_CRON", "@every 1h")
	cfg.AutoCloseCron = getEnv("AUTO_CLOSE_CRON", "@every 5m")

	// Load numeric and time duration values with defaults and parsing
	cfg.DBMaxOpenConns, err = strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	cfg.DBMaxIdleConns, err = strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	slotMinutes, err := strconv.Atoi(getEnv("APPOINTMENT_SLOT_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid APPOINTMENT_SLOT_MINUTES: %w", err)
	}
	if slotMinutes <= 0 {
		return nil, fmt.Errorf("invalid APPOINTMENT_SLOT_MINUTES: must be positive, got %d", slotMinutes)
	}
	cfg.AppointmentSlotDuration = time.Duration(slotMinutes) * time.Minute

	cfg.AuctionDefaultExtendHours, err = strconv.Atoi(getEnv("AUCTION_DEFAULT_EXTEND_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUCTION_DEFAULT_EXTEND_HOURS: %w", err)
	}

	cfg.AuctionAutoClose, err = strconv.ParseBool(getEnv("AUCTION_AUTO_CLOSE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUCTION_AUTO_CLOSE: %w", err)
	}

	cfg.MockServices, err = strconv.ParseBool(getEnv("MOCK_SERVICES", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid MOCK_SERVICES: %w", err)
	}

	sweepLockSeconds, err := strconv.ParseInt(getEnv("SWEEP_LOCK_TTL_SECONDS", "600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_LOCK_TTL_SECONDS: %w", err)
	}
	cfg.SweepLockTTL = time.Duration(sweepLockSeconds) * time.Second

	// Rate Limiting
	cfg.RateLimitBidBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BID_BUCKET_SIZE", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BID_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitBidRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_BID_REFILL_RATE", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BID_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
