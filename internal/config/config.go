// Package config loads the ledger service configuration from environment
// variables and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/investment-ledger/internal/logger"
	"github.com/dvloznov/investment-ledger/internal/suggest"
)

// Config represents the application configuration.
type Config struct {
	Port          string
	Ledger        LedgerConfig
	Log           LogConfig
	Suggest       SuggestConfig
	GCS           GCSConfig
	ImportWorkers int
	// JobsDB is the SQLite file holding import job history. Empty keeps
	// history in memory.
	JobsDB string
}

// LedgerConfig locates the workbook file.
type LedgerConfig struct {
	DataDir string
	File    string
}

// Path returns the workbook path.
func (c LedgerConfig) Path() string {
	return filepath.Join(c.DataDir, c.File)
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string
	Format string
}

// SuggestConfig configures the lookup providers and their cache.
type SuggestConfig struct {
	AlphaVantageKey string
	AlphaVantageURL string
	MFAPIURL        string
	MFAPIEnabled    bool
	TTL             time.Duration
	MaxKeys         int
	CacheEmpty      bool
	Timeout         time.Duration
}

// EmptyResultPolicy maps CacheEmpty onto the cache policy.
func (c SuggestConfig) EmptyResultPolicy() suggest.EmptyResultPolicy {
	if c.CacheEmpty {
		return suggest.CacheEmptyResults
	}
	return suggest.SkipEmptyResults
}

// GCSConfig configures Cloud Storage imports and snapshots.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
}

// Load loads configuration from environment variables.
// It loads .env from the current directory if available, or the given
// file, which must then exist.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	var errs []error
	mfapiEnabled, err := parseBoolEnv("MFAPI_ENABLED", true)
	errs = append(errs, err)
	cacheEmpty, err := parseBoolEnv("SUGGEST_CACHE_EMPTY", true)
	errs = append(errs, err)
	ttl, err := parseDurationEnv("SUGGEST_TTL", suggest.DefaultTTL)
	errs = append(errs, err)
	timeout, err := parseDurationEnv("SUGGEST_TIMEOUT", suggest.DefaultHTTPTimeout)
	errs = append(errs, err)
	maxKeys, err := parseIntEnv("SUGGEST_MAX_KEYS", suggest.DefaultMaxKeys)
	errs = append(errs, err)
	workers, err := parseIntEnv("IMPORT_WORKERS", 2)
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	config := &Config{
		Port: getEnvOrDefault("PORT", "4000"),
		Ledger: LedgerConfig{
			DataDir: getEnvOrDefault("LEDGER_DATA_DIR", "data"),
			File:    getEnvOrDefault("LEDGER_FILE", "investments.xlsx"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", logger.FormatConsole),
		},
		Suggest: SuggestConfig{
			AlphaVantageKey: os.Getenv("ALPHAVANTAGE_API_KEY"),
			AlphaVantageURL: getEnvOrDefault("ALPHAVANTAGE_URL", suggest.DefaultAlphaVantageURL),
			MFAPIURL:        getEnvOrDefault("MFAPI_URL", suggest.DefaultMFAPIURL),
			MFAPIEnabled:    mfapiEnabled,
			TTL:             ttl,
			MaxKeys:         maxKeys,
			CacheEmpty:      cacheEmpty,
			Timeout:         timeout,
		},
		GCS: GCSConfig{
			Bucket:          os.Getenv("GCS_BUCKET"),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		ImportWorkers: workers,
		JobsDB:        os.Getenv("JOBS_DB"),
	}

	return config, nil
}

// Validate reports values that would prevent the service from starting.
func (c *Config) Validate() error {
	var problems []string

	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		problems = append(problems, fmt.Sprintf("PORT must be a TCP port, got %q", c.Port))
	}
	if strings.TrimSpace(c.Ledger.File) == "" {
		problems = append(problems, "LEDGER_FILE must not be empty")
	} else if !strings.EqualFold(filepath.Ext(c.Ledger.File), ".xlsx") {
		problems = append(problems, fmt.Sprintf("LEDGER_FILE must be an .xlsx file, got %q", c.Ledger.File))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL: %v", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case logger.FormatConsole, logger.FormatJSON:
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be console or json, got %q", c.Log.Format))
	}
	if c.Suggest.TTL <= 0 {
		problems = append(problems, "SUGGEST_TTL must be positive")
	}
	if c.Suggest.Timeout <= 0 {
		problems = append(problems, "SUGGEST_TIMEOUT must be positive")
	}
	if c.Suggest.MaxKeys <= 0 {
		problems = append(problems, "SUGGEST_MAX_KEYS must be positive")
	}
	if c.ImportWorkers <= 0 {
		problems = append(problems, "IMPORT_WORKERS must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s\nPlease check your .env file or environment variables", strings.Join(problems, "; "))
	}
	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}
	return parsed, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value for %s: %s", key, value)
	}
	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}
	return parsed, nil
}
