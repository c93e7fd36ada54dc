package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is process-wide configuration read from the environment. Per-call
// settings live in Options.
type Config struct {
	LogLevel  string
	LogFormat string
	OutputDir string

	Timeout   time.Duration
	Threshold float64
	MaxItems  int

	BrowserURL   string
	Headless     bool
	UserAgent    string
	SettleWindow time.Duration
}

// Defaults are the values Options falls back to when a key is unset.
type Defaults struct {
	Threshold float64
	Timeout   time.Duration
	MaxItems  int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		LogLevel:  getEnv("ENTITYMATCH_LOG_LEVEL", "info"),
		LogFormat: getEnv("ENTITYMATCH_LOG_FORMAT", "console"),
		OutputDir: getEnv("ENTITYMATCH_OUTPUT_DIR", filepath.Join(cwd, "out")),

		Timeout:   time.Duration(getEnvInt("ENTITYMATCH_TIMEOUT_MS", 10000)) * time.Millisecond,
		Threshold: getEnvFloat("ENTITYMATCH_THRESHOLD", 0.7),
		MaxItems:  getEnvInt("ENTITYMATCH_MAX_ITEMS", 100),

		BrowserURL:   getEnv("ENTITYMATCH_BROWSER_URL", ""),
		Headless:     getEnvBool("ENTITYMATCH_HEADLESS", true),
		UserAgent:    getEnv("ENTITYMATCH_USER_AGENT", "entitymatch/1.0"),
		SettleWindow: time.Duration(getEnvInt("ENTITYMATCH_SETTLE_MS", 500)) * time.Millisecond,
	}

	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		cfg.Threshold = 0.7
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return cfg, nil
}

func (c Config) Defaults() Defaults {
	return Defaults{Threshold: c.Threshold, Timeout: c.Timeout, MaxItems: c.MaxItems}
}

// DefaultDefaults matches Load with an empty environment.
func DefaultDefaults() Defaults {
	return Defaults{Threshold: 0.7, Timeout: 10 * time.Second, MaxItems: 100}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
