package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must load on images without zoneinfo

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

// Notification drivers
const (
	NotificationLine = "line"
	NotificationNoop = "noop"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string

	StorageDriver   string
	DatabaseURL     string
	DatabaseMaxConn int32
	MongoURI        string
	MongoDB         string
	RedisURL        string

	LineChannelID          string
	LineChannelSecret      string
	LineChannelAccessToken string
	LineAPIBaseURL         string

	NotificationDriver  string
	NotificationTimeout time.Duration
	Timezone            string
	AdminAPIKey         string
	RateLimitPerMinute  int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Environment:    getEnv("ENVIRONMENT", "production"),

		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DatabaseMaxConn: int32(getIntEnv("DATABASE_MAX_CONNS", 10)),
		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDB:         getEnv("MONGO_DB", "survey"),
		RedisURL:        getEnv("REDIS_URL", ""),

		LineChannelID:          getEnv("LINE_CHANNEL_ID", ""),
		LineChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		LineChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LineAPIBaseURL:         getEnv("LINE_API_BASE_URL", "https://api.line.me"),

		NotificationDriver:  strings.ToLower(getEnv("NOTIFICATION_DRIVER", NotificationLine)),
		NotificationTimeout: getDurationEnv("NOTIFICATION_TIMEOUT", 10*time.Second),
		Timezone:            getEnv("TIMEZONE", "Asia/Tokyo"),
		AdminAPIKey:         getEnv("ADMIN_API_KEY", ""),
		RateLimitPerMinute:  getIntEnv("RATE_LIMIT_PER_MINUTE", 20),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent value at once
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, stderrors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres"))
		}
	case StorageMongo:
		if c.MongoURI == "" {
			errs = append(errs, stderrors.New("MONGO_URI is required when STORAGE_DRIVER=mongo"))
		}
		if c.MongoDB == "" {
			errs = append(errs, stderrors.New("MONGO_DB is required when STORAGE_DRIVER=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.NotificationDriver {
	case NotificationLine:
		if c.LineChannelAccessToken == "" {
			errs = append(errs, stderrors.New("LINE_CHANNEL_ACCESS_TOKEN is required when NOTIFICATION_DRIVER=line"))
		}
	case NotificationNoop:
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFICATION_DRIVER %q", c.NotificationDriver))
	}

	if c.LineChannelID == "" {
		errs = append(errs, stderrors.New("LINE_CHANNEL_ID is required"))
	}
	if c.NotificationTimeout <= 0 {
		errs = append(errs, stderrors.New("NOTIFICATION_TIMEOUT must be positive"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, stderrors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", stderrors.Join(errs...))
	}
	return nil
}

// Location returns the time zone coupon dates are stamped in
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv accepts Go durations ("10s") or a plain number of seconds
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
