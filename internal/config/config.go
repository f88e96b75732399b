// Package config loads and validates process configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings for the ashc CLI.
type Config struct {
	// Logging.
	LogLevel string // "debug", "info", "warn", or "error"

	// Persistence.
	DBPath string // SQLite evidence store; empty disables persistence.

	// Credibility ledger.
	Identity string // Ledger identity that claims are placed under.

	// Sampling.
	ToolTimeout    time.Duration // Per tool call, used when a scenario sets none.
	GenerationRate float64       // Generations per second; 0 means unlimited.

	// Causal graph.
	SimilarityCacheSize int
}

// Load reads a .env file if present, then the environment, with defaults.
func Load() (Config, error) {
	// Missing .env is fine; only the process environment counts then.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (Config, error) {
	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	toolTimeout, err := envDuration("ASHC_TOOL_TIMEOUT", 30*time.Second)
	collect(err)
	rate, err := envFloat("ASHC_GENERATION_RATE", 0)
	collect(err)
	cacheSize, err := envInt("ASHC_SIMILARITY_CACHE_SIZE", 1024)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}

	cfg := Config{
		LogLevel:            strings.ToLower(envStr("ASHC_LOG_LEVEL", "info")),
		DBPath:              envStr("ASHC_DB_PATH", ""),
		Identity:            envStr("ASHC_IDENTITY", "ashc"),
		ToolTimeout:         toolTimeout,
		GenerationRate:      rate,
		SimilarityCacheSize: cacheSize,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value domains.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: ASHC_LOG_LEVEL=%q must be one of debug, info, warn, error", c.LogLevel)
	}
	if c.Identity == "" {
		return fmt.Errorf("config: ASHC_IDENTITY is required")
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("config: ASHC_TOOL_TIMEOUT must be positive")
	}
	if c.GenerationRate < 0 {
		return fmt.Errorf("config: ASHC_GENERATION_RATE must not be negative")
	}
	if c.SimilarityCacheSize <= 0 {
		return fmt.Errorf("config: ASHC_SIMILARITY_CACHE_SIZE must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
