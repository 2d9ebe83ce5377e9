package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds settings for the order gateway.
type Config struct {
	Port string `yaml:"port"`

	// Session window (time of day, local clock)
	OpenTime  string `yaml:"open_time"`  // "HH:MM:SS"
	CloseTime string `yaml:"close_time"` // "HH:MM:SS"

	// Credentials used for logon/logout labeling and API auth
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	JWTSecret string `yaml:"jwt_secret"`

	// Throttle
	MaxOrdersPerSec int `yaml:"max_orders_per_sec"`

	// Persistence
	DBPath          string `yaml:"db_path"`
	ResponseLogPath string `yaml:"response_log_path"`

	// Batched response writes. Zero disables batching and every response is
	// written synchronously.
	ResponseBatchSize int `yaml:"response_batch_size"`
	ResponseBatchMs   int `yaml:"response_batch_ms"`

	// Simulated venue
	VenueLatencyMinMs int     `yaml:"venue_latency_min_ms"`
	VenueLatencyMaxMs int     `yaml:"venue_latency_max_ms"`
	VenueRejectRate   float64 `yaml:"venue_reject_rate"` // 0..1, applied to well-formed orders

	// Scheduling
	DrainTickMs       int `yaml:"drain_tick_ms"`
	SessionPollMs     int `yaml:"session_poll_ms"`
	ShutdownTimeoutMs int `yaml:"shutdown_timeout_ms"`
}

// Load reads environment variables (optionally via .env), then applies the
// YAML file pointed at by GATEWAY_CONFIG when present.
func Load() (*Config, error) {
	// Ignore error so the gateway still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		OpenTime:          getEnv("GATEWAY_OPEN_TIME", "09:00:00"),
		CloseTime:         getEnv("GATEWAY_CLOSE_TIME", "17:00:00"),
		Username:          getEnv("GATEWAY_USERNAME", "testuser"),
		Password:          getEnv("GATEWAY_PASSWORD", "testpass"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret"),
		MaxOrdersPerSec:   getEnvInt("MAX_ORDERS_PER_SEC", 3),
		DBPath:            getEnv("DB_PATH", "./data/gateway.db"),
		ResponseLogPath:   getEnv("RESPONSE_LOG_PATH", "./data/responses.log"),
		ResponseBatchSize: getEnvInt("RESPONSE_BATCH_SIZE", 0),
		ResponseBatchMs:   getEnvInt("RESPONSE_BATCH_MS", 500),
		VenueLatencyMinMs: getEnvInt("VENUE_LATENCY_MIN_MS", 20),
		VenueLatencyMaxMs: getEnvInt("VENUE_LATENCY_MAX_MS", 80),
		VenueRejectRate:   getEnvFloat("VENUE_REJECT_RATE", 0),
		DrainTickMs:       getEnvInt("DRAIN_TICK_MS", 20),
		SessionPollMs:     getEnvInt("SESSION_POLL_MS", 250),
		ShutdownTimeoutMs: getEnvInt("SHUTDOWN_TIMEOUT_MS", 5000),
	}

	if path := os.Getenv("GATEWAY_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyFile overlays YAML values on top of the env-derived defaults.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the core refuses to guess around.
// A close time at or before the open time is a caller error, not a
// wrap-past-midnight request.
func (c *Config) Validate() error {
	open, err := ParseTimeOfDay(c.OpenTime)
	if err != nil {
		return fmt.Errorf("open_time: %w", err)
	}
	closeAt, err := ParseTimeOfDay(c.CloseTime)
	if err != nil {
		return fmt.Errorf("close_time: %w", err)
	}
	if closeAt <= open {
		return fmt.Errorf("close_time %s must be after open_time %s", c.CloseTime, c.OpenTime)
	}
	if c.MaxOrdersPerSec <= 0 {
		return errors.New("max_orders_per_sec must be positive")
	}
	if c.Username == "" || c.Password == "" {
		return errors.New("gateway credentials must be set")
	}
	if c.VenueRejectRate < 0 || c.VenueRejectRate > 1 {
		return errors.New("venue_reject_rate must be within [0,1]")
	}
	return nil
}

// ParseTimeOfDay converts "HH:MM:SS" into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
