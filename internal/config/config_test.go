package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Binary != "" {
		t.Errorf("Binary = %q, want empty", cfg.Binary)
	}
	if cfg.Output != "results.json" {
		t.Errorf("Output = %q, want results.json", cfg.Output)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers = %d, want 1", cfg.Workers)
	}
	if cfg.SearchTimeout != 5*time.Minute {
		t.Errorf("SearchTimeout = %v, want 5m", cfg.SearchTimeout)
	}
	if cfg.BuildTimeout != 5*time.Minute {
		t.Errorf("BuildTimeout = %v, want 5m", cfg.BuildTimeout)
	}
	if cfg.LiftTimeout != 1*time.Hour {
		t.Errorf("LiftTimeout = %v, want 1h", cfg.LiftTimeout)
	}
	if cfg.CloneTimeout != 2*time.Minute {
		t.Errorf("CloneTimeout = %v, want 2m", cfg.CloneTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Bootstrap.Iterations != 1000 {
		t.Errorf("Bootstrap.Iterations = %d, want 1000", cfg.Bootstrap.Iterations)
	}
	if cfg.Bootstrap.Confidence != 0.95 {
		t.Errorf("Bootstrap.Confidence = %g, want 0.95", cfg.Bootstrap.Confidence)
	}
	if cfg.Bootstrap.Seed != 42 {
		t.Errorf("Bootstrap.Seed = %d, want 42", cfg.Bootstrap.Seed)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate, got %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	path := writeConfig(t, `binary: /opt/rpg/rpg-encoder
bench_dir: /srv/bench
output: out/results.json
workers: 4
search_timeout: 90s
lift_timeout: 30m
log_level: debug
log_dir: /tmp/bench-logs
no_history: true
bootstrap:
  iterations: 500
  confidence: 0.9
  seed: 7
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Binary != "/opt/rpg/rpg-encoder" {
		t.Errorf("Binary = %q, want /opt/rpg/rpg-encoder", cfg.Binary)
	}
	if cfg.BenchDir != "/srv/bench" {
		t.Errorf("BenchDir = %q, want /srv/bench", cfg.BenchDir)
	}
	if cfg.Output != "out/results.json" {
		t.Errorf("Output = %q, want out/results.json", cfg.Output)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.SearchTimeout != 90*time.Second {
		t.Errorf("SearchTimeout = %v, want 90s", cfg.SearchTimeout)
	}
	if cfg.LiftTimeout != 30*time.Minute {
		t.Errorf("LiftTimeout = %v, want 30m", cfg.LiftTimeout)
	}
	// Not in the file, stays at the default.
	if cfg.BuildTimeout != 5*time.Minute {
		t.Errorf("BuildTimeout = %v, want default 5m", cfg.BuildTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.NoHistory {
		t.Error("NoHistory = false, want true")
	}
	if cfg.Bootstrap.Iterations != 500 {
		t.Errorf("Bootstrap.Iterations = %d, want 500", cfg.Bootstrap.Iterations)
	}
	if cfg.Bootstrap.Confidence != 0.9 {
		t.Errorf("Bootstrap.Confidence = %g, want 0.9", cfg.Bootstrap.Confidence)
	}
	if cfg.Bootstrap.Seed != 7 {
		t.Errorf("Bootstrap.Seed = %d, want 7", cfg.Bootstrap.Seed)
	}
}

// TestLoadConfigMissingFile verifies defaults are returned when no file exists
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil for missing file", err)
	}
	if cfg.Workers != 1 || cfg.LogLevel != "info" {
		t.Errorf("missing file must yield defaults, got %+v", cfg)
	}
}

// TestLoadConfigMalformed tests error handling for invalid YAML
func TestLoadConfigMalformed(t *testing.T) {
	path := writeConfig(t, "workers: [not a number\n")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() expected error for malformed YAML")
	}
}

// TestLoadConfigBadTimeout tests error handling for unparseable durations
func TestLoadConfigBadTimeout(t *testing.T) {
	path := writeConfig(t, "search_timeout: fast\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig() expected error for bad duration")
	}
	if !strings.Contains(err.Error(), "invalid timeout format") {
		t.Errorf("error = %v, want mention of invalid timeout format", err)
	}
}

// TestLoadConfigBootstrapSeedZero verifies an explicit zero seed survives the merge
func TestLoadConfigBootstrapSeedZero(t *testing.T) {
	path := writeConfig(t, "bootstrap:\n  seed: 0\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Bootstrap.Seed != 0 {
		t.Errorf("Bootstrap.Seed = %d, want 0 (explicitly set)", cfg.Bootstrap.Seed)
	}
	// Untouched fields keep their defaults.
	if cfg.Bootstrap.Iterations != 1000 {
		t.Errorf("Bootstrap.Iterations = %d, want default 1000", cfg.Bootstrap.Iterations)
	}
	if cfg.Bootstrap.Confidence != 0.95 {
		t.Errorf("Bootstrap.Confidence = %g, want default 0.95", cfg.Bootstrap.Confidence)
	}
}

// TestMergeWithFlags verifies flag precedence over file values
func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()

	binary := "/custom/rpg-encoder"
	workers := 8
	liftTimeout := 45 * time.Minute
	noHistory := true
	seed := int64(99)

	cfg.MergeWithFlags(FlagOverrides{
		Binary:      &binary,
		Workers:     &workers,
		LiftTimeout: &liftTimeout,
		NoHistory:   &noHistory,
		Seed:        &seed,
	})

	if cfg.Binary != binary {
		t.Errorf("Binary = %q, want %q", cfg.Binary, binary)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.LiftTimeout != liftTimeout {
		t.Errorf("LiftTimeout = %v, want %v", cfg.LiftTimeout, liftTimeout)
	}
	if !cfg.NoHistory {
		t.Error("NoHistory = false, want true")
	}
	if cfg.Bootstrap.Seed != 99 {
		t.Errorf("Bootstrap.Seed = %d, want 99", cfg.Bootstrap.Seed)
	}
	// Nil flags leave values alone.
	if cfg.SearchTimeout != 5*time.Minute {
		t.Errorf("SearchTimeout = %v, want untouched default", cfg.SearchTimeout)
	}
}

// TestHistoryDBPath verifies history database path resolution
func TestHistoryDBPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BenchDir = "/srv/bench"

	if got := cfg.HistoryDBPath(); got != filepath.Join("/srv/bench", "history.db") {
		t.Errorf("HistoryDBPath() = %q, want /srv/bench/history.db", got)
	}

	cfg.HistoryPath = "/var/lib/rpg/history.db"
	if got := cfg.HistoryDBPath(); got != "/var/lib/rpg/history.db" {
		t.Errorf("HistoryDBPath() = %q, want explicit path", got)
	}
}

// TestValidate tests configuration validation rules
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty bench dir",
			mutate:  func(c *Config) { c.BenchDir = "" },
			wantErr: "bench_dir",
		},
		{
			name:    "empty output",
			mutate:  func(c *Config) { c.Output = "" },
			wantErr: "output",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Workers = 0 },
			wantErr: "workers",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "log_level",
		},
		{
			name:    "negative search timeout",
			mutate:  func(c *Config) { c.SearchTimeout = -time.Second },
			wantErr: "search_timeout",
		},
		{
			name:    "zero lift timeout",
			mutate:  func(c *Config) { c.LiftTimeout = 0 },
			wantErr: "lift_timeout",
		},
		{
			name:    "zero iterations",
			mutate:  func(c *Config) { c.Bootstrap.Iterations = 0 },
			wantErr: "iterations",
		},
		{
			name:    "confidence at one",
			mutate:  func(c *Config) { c.Bootstrap.Confidence = 1.0 },
			wantErr: "confidence",
		},
		{
			name:    "confidence at zero",
			mutate:  func(c *Config) { c.Bootstrap.Confidence = 0 },
			wantErr: "confidence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
