package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the incident control plane server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig
	Realtime  RealtimeConfig
	Notify    NotifyConfig
	Storage   StorageConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// AuthConfig configures the encrypted session cookie.
type AuthConfig struct {
	SessionSecret string
	CookieName    string
	MaxAge        time.Duration
}

// RateLimitConfig configures the in-process fixed-window limiter.
type RateLimitConfig struct {
	ReadsPerMinute  int
	WritesPerMinute int
}

// WorkerConfig configures the background job worker.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// RealtimeConfig configures the polling-based change stream.
type RealtimeConfig struct {
	PollInterval time.Duration
}

// NotifyConfig selects the provider used to deliver SEND_NOTIFICATION jobs.
type NotifyConfig struct {
	Provider   string
	WebhookURL string
}

// StorageConfig configures the S3-compatible bucket attachments are
// uploaded to.
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

var validNotifyProviders = map[string]bool{
	"log":     true,
	"webhook": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("APP_PORT", 8080),
			Env:  envString("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			SessionSecret: os.Getenv("NEXTAUTH_SECRET"),
			CookieName:    envString("SESSION_COOKIE_NAME", "session"),
			MaxAge:        envDuration("SESSION_MAX_AGE", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			ReadsPerMinute:  envInt("RATE_LIMIT_READS_PER_MIN", 100),
			WritesPerMinute: envInt("RATE_LIMIT_WRITES_PER_MIN", 30),
		},
		Worker: WorkerConfig{
			PollInterval: envMillis("WORKER_POLL_MS", 2*time.Second),
			BatchSize:    envInt("WORKER_BATCH_SIZE", 10),
		},
		Realtime: RealtimeConfig{
			PollInterval: envMillis("REALTIME_POLL_MS", 2*time.Second),
		},
		Notify: NotifyConfig{
			Provider:   envString("NOTIFY_PROVIDER", "log"),
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
		Storage: StorageConfig{
			Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
			Region:    envString("STORAGE_REGION", "us-east-1"),
			Bucket:    envString("STORAGE_BUCKET", "loghunter-attachments"),
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("NEXTAUTH_SECRET is required and must be at least 32 bytes")
	}

	if c.RateLimit.ReadsPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_READS_PER_MIN must be positive")
	}
	if c.RateLimit.WritesPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_WRITES_PER_MIN must be positive")
	}

	if !validNotifyProviders[c.Notify.Provider] {
		return fmt.Errorf("NOTIFY_PROVIDER must be one of log, webhook; got %q", c.Notify.Provider)
	}
	if c.Notify.Provider == "webhook" && c.Notify.WebhookURL == "" {
		return fmt.Errorf("NOTIFY_WEBHOOK_URL is required when NOTIFY_PROVIDER is webhook")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// envMillis reads key as a plain integer count of milliseconds, matching
// the *_MS environment variable convention used for poll intervals.
func envMillis(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}
