package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything needed to reach the maintenance backend.
type Config struct {
	BaseURL    string
	Token      string
	Username   string
	TimeoutMs  int
	MaxRetries int
	LogCalls   bool
}

// DefaultConfig returns a Config pointing at a local backend.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8000",
		TimeoutMs:  15000,
		MaxRetries: 1,
	}
}

// LoadConfig reads configuration from environment variables, falling back to
// defaults for any unset values. Variables in envFiles (".env" when none are
// given) are loaded first; they never override the real environment.
func LoadConfig(envFiles ...string) Config {
	_ = godotenv.Load(envFiles...)

	cfg := DefaultConfig()

	if v := os.Getenv("CMSS_API_URL"); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("CMSS_API_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("CMSS_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("CMSS_API_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("CMSS_API_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("CMSS_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}

	return cfg
}

// Validate reports the first missing setting.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("CMSS_API_URL is required")
	}
	if c.Token == "" {
		return fmt.Errorf("CMSS_API_TOKEN is required")
	}
	return nil
}

// Timeout is the per-call deadline.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
