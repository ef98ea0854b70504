package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/investment-ledger/internal/suggest"
)

var configKeys = []string{
	"PORT", "LEDGER_DATA_DIR", "LEDGER_FILE", "LOG_LEVEL", "LOG_FORMAT",
	"ALPHAVANTAGE_API_KEY", "ALPHAVANTAGE_URL", "MFAPI_URL", "MFAPI_ENABLED",
	"SUGGEST_TTL", "SUGGEST_MAX_KEYS", "SUGGEST_CACHE_EMPTY", "SUGGEST_TIMEOUT",
	"GCS_BUCKET", "GOOGLE_APPLICATION_CREDENTIALS", "IMPORT_WORKERS", "JOBS_DB",
}

// clearEnv blanks every key so values from the host do not leak in.
// t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "4000" {
		t.Errorf("Port = %q, want 4000", cfg.Port)
	}
	if got := cfg.Ledger.Path(); got != filepath.Join("data", "investments.xlsx") {
		t.Errorf("Ledger.Path() = %q", got)
	}
	if cfg.Suggest.TTL != suggest.DefaultTTL || cfg.Suggest.MaxKeys != suggest.DefaultMaxKeys {
		t.Errorf("Suggest = %+v, want package defaults", cfg.Suggest)
	}
	if !cfg.Suggest.MFAPIEnabled || cfg.Suggest.EmptyResultPolicy() != suggest.CacheEmptyResults {
		t.Errorf("Suggest flags = %+v", cfg.Suggest)
	}
	if cfg.ImportWorkers != 2 {
		t.Errorf("ImportWorkers = %d, want 2", cfg.ImportWorkers)
	}
	if cfg.JobsDB != "" {
		t.Errorf("JobsDB = %q, want in-memory default", cfg.JobsDB)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("SUGGEST_TTL", "90m")
	t.Setenv("SUGGEST_CACHE_EMPTY", "false")
	t.Setenv("MFAPI_ENABLED", "0")
	t.Setenv("ALPHAVANTAGE_API_KEY", "demo")
	t.Setenv("IMPORT_WORKERS", "4")
	t.Setenv("JOBS_DB", "state/jobs.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8081" || cfg.Suggest.TTL != 90*time.Minute || cfg.ImportWorkers != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Suggest.MFAPIEnabled || cfg.Suggest.EmptyResultPolicy() != suggest.SkipEmptyResults {
		t.Errorf("Suggest flags = %+v", cfg.Suggest)
	}
	if cfg.Suggest.AlphaVantageKey != "demo" {
		t.Errorf("AlphaVantageKey = %q", cfg.Suggest.AlphaVantageKey)
	}
	if cfg.JobsDB != "state/jobs.db" {
		t.Errorf("JobsDB = %q", cfg.JobsDB)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ledger.env")
	if err := os.WriteFile(path, []byte("LEDGER_FILE=portfolio.xlsx\nGCS_BUCKET=snapshots\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set.
	os.Unsetenv("LEDGER_FILE")
	os.Unsetenv("GCS_BUCKET")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.File != "portfolio.xlsx" || cfg.GCS.Bucket != "snapshots" {
		t.Errorf("cfg = %+v", cfg)
	}
	os.Unsetenv("LEDGER_FILE")
	os.Unsetenv("GCS_BUCKET")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Load with a missing explicit file should fail")
	}
}

func TestLoad_MalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUGGEST_TTL", "six hours")
	t.Setenv("IMPORT_WORKERS", "many")

	_, err := Load()
	if err == nil {
		t.Fatal("Load should reject malformed values")
	}
	for _, key := range []string{"SUGGEST_TTL", "IMPORT_WORKERS"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:          "4000",
			Ledger:        LedgerConfig{DataDir: "data", File: "investments.xlsx"},
			Log:           LogConfig{Level: "info", Format: "json"},
			Suggest:       SuggestConfig{TTL: time.Hour, Timeout: time.Second, MaxKeys: 10},
			ImportWorkers: 1,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port", func(c *Config) { c.Port = "http" }, "PORT"},
		{"file extension", func(c *Config) { c.Ledger.File = "ledger.csv" }, "LEDGER_FILE"},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "LOG_FORMAT"},
		{"ttl", func(c *Config) { c.Suggest.TTL = 0 }, "SUGGEST_TTL"},
		{"workers", func(c *Config) { c.ImportWorkers = 0 }, "IMPORT_WORKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
