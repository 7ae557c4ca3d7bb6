package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"kleinwatch/dealwatcher/logger"
	werrors "kleinwatch/dealwatcher/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Listing source configuration
	KleinanzeigenURL string
	FetchTimeout     time.Duration
	FetchDelay       time.Duration
	RateLimitBlock   time.Duration

	// Seen-cache configuration
	SeenCachePath string

	// Memcache configuration (optional, used for cross-run rate-limit blocks)
	MemcacheAddr string

	// Email notification configuration
	EmailFrom    string
	EmailTo      string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	UseStartTLS  bool

	// Push notification configuration (ntfy)
	NtfyURL   string
	NtfyTopic string

	// Redis stream configuration (optional channel)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	NotifyTimeout time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	smtpPort := getEnvInt("SMTP_PORT", 25)
	redisDB := getEnvInt("REDIS_DB", 0)
	redisStreamCount := getEnvInt("REDIS_STREAM_COUNT", 1)
	redisStreamMaxLen := getEnvInt("REDIS_STREAM_MAXLEN", 500)
	fetchTimeout := getEnvInt("FETCH_TIMEOUT_SECONDS", 10)
	fetchDelay := getEnvInt("FETCH_DELAY_SECONDS", 2)
	notifyTimeout := getEnvInt("NOTIFY_TIMEOUT_SECONDS", 5)
	rateLimitBlock := getEnvInt("RATE_LIMIT_BLOCK_SECONDS", 300)

	return Config{
		KleinanzeigenURL: getEnv("KLEINANZEIGEN_URL", "https://www.kleinanzeigen.de"),
		FetchTimeout:     time.Duration(fetchTimeout) * time.Second,
		FetchDelay:       time.Duration(fetchDelay) * time.Second,
		RateLimitBlock:   time.Duration(rateLimitBlock) * time.Second,

		SeenCachePath: getEnv("SEEN_CACHE_PATH", defaultSeenCachePath()),
		MemcacheAddr:  getEnv("MEMCACHE_ADDR", ""),

		EmailFrom:    getEnv("EMAIL_FROM", ""),
		EmailTo:      getEnv("EMAIL_TO", ""),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     smtpPort,
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		UseStartTLS:  getEnv("SMTP_STARTTLS", "0") == "1",

		NtfyURL:   getEnv("NTFY_URL", ""),
		NtfyTopic: getEnv("NTFY_TOPIC", ""),

		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "listings"),
		RedisStreamCount:     redisStreamCount,
		RedisStreamMaxLength: redisStreamMaxLen,

		NotifyTimeout: time.Duration(notifyTimeout) * time.Second,

		Environment: getEnv("DEALWATCHER_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values that can never work
func (c *Config) Validate() error {
	if c.FetchTimeout <= 0 {
		return werrors.NewConfiguration("fetch timeout must be positive", nil)
	}
	if c.NotifyTimeout <= 0 {
		return werrors.NewConfiguration("notify timeout must be positive", nil)
	}
	if c.FetchDelay < 0 {
		return werrors.NewConfiguration("fetch delay must not be negative", nil)
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return werrors.NewConfiguration("smtp port out of range", nil)
	}
	if c.RedisStreamCount <= 0 {
		return werrors.NewConfiguration("redis stream count must be positive", nil)
	}
	if c.SeenCachePath == "" {
		return werrors.NewConfiguration("seen cache path must not be empty", nil)
	}
	return nil
}

// EmailConfigured reports whether the email channel has the required fields
func (c *Config) EmailConfigured() bool {
	return c.EmailFrom != "" && c.EmailTo != "" && c.SMTPHost != ""
}

// PushConfigured reports whether the ntfy channel has the required fields
func (c *Config) PushConfigured() bool {
	return c.NtfyURL != "" || c.NtfyTopic != ""
}

// RedisConfigured reports whether the redis stream channel is set up
func (c *Config) RedisConfigured() bool {
	return c.RedisAddr != ""
}

// defaultSeenCachePath returns the per-user seen-cache location
func defaultSeenCachePath() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "dealwatcher_seen.json"
	}
	return filepath.Join(cacheDir, "dealwatcher", "seen.json")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an integer environment variable, falling back to
// the default with a warning when the value is not a number
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn("Invalid %s value %q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
