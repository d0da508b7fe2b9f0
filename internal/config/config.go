package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BootstrapConfig controls the confidence interval estimator
type BootstrapConfig struct {
	// Iterations is the number of bootstrap resamples
	Iterations int `yaml:"iterations"`

	// Confidence is the interval mass, strictly between 0 and 1
	Confidence float64 `yaml:"confidence"`

	// Seed feeds the resampling RNG so runs are reproducible
	Seed int64 `yaml:"seed"`
}

// Config represents rpg-bench configuration options
type Config struct {
	// Binary is the path to the rpg-encoder binary ("" = auto-discover)
	Binary string `yaml:"binary"`

	// BenchDir is the workspace root where repos are prepared and indexed
	BenchDir string `yaml:"bench_dir"`

	// Output is the path the results report is written to
	Output string `yaml:"output"`

	// Workers bounds concurrent searches within a measurement pass
	Workers int `yaml:"workers"`

	// SearchTimeout bounds a single search invocation
	SearchTimeout time.Duration `yaml:"search_timeout"`

	// BuildTimeout bounds one graph build
	BuildTimeout time.Duration `yaml:"build_timeout"`

	// LiftTimeout bounds one lift pass (semantic enrichment is slow)
	LiftTimeout time.Duration `yaml:"lift_timeout"`

	// CloneTimeout bounds cloning a remote repo
	CloneTimeout time.Duration `yaml:"clone_timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory run logs are written to ("" = console only)
	LogDir string `yaml:"log_dir"`

	// HistoryPath is the run history database ("" = <bench_dir>/history.db)
	HistoryPath string `yaml:"history_path"`

	// NoHistory disables recording runs to the history database
	NoHistory bool `yaml:"no_history"`

	// Bootstrap contains confidence interval estimator settings
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Binary:        "",
		BenchDir:      DefaultBenchDir(),
		Output:        "results.json",
		Workers:       1,
		SearchTimeout: 5 * time.Minute,
		BuildTimeout:  5 * time.Minute,
		LiftTimeout:   1 * time.Hour,
		CloneTimeout:  2 * time.Minute,
		LogLevel:      "info",
		LogDir:        "",
		HistoryPath:   "",
		NoHistory:     false,
		Bootstrap: BootstrapConfig{
			Iterations: 1000,
			Confidence: 0.95,
			Seed:       42,
		},
	}
}

// DefaultConfigPath is where LoadConfig looks when no --config flag is given.
const DefaultConfigPath = ".rpg-bench.yaml"

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Use a temporary struct so durations can be written as "5m" or "1h"
	type yamlConfig struct {
		Binary        string          `yaml:"binary"`
		BenchDir      string          `yaml:"bench_dir"`
		Output        string          `yaml:"output"`
		Workers       int             `yaml:"workers"`
		SearchTimeout string          `yaml:"search_timeout"`
		BuildTimeout  string          `yaml:"build_timeout"`
		LiftTimeout   string          `yaml:"lift_timeout"`
		CloneTimeout  string          `yaml:"clone_timeout"`
		LogLevel      string          `yaml:"log_level"`
		LogDir        string          `yaml:"log_dir"`
		HistoryPath   string          `yaml:"history_path"`
		NoHistory     bool            `yaml:"no_history"`
		Bootstrap     BootstrapConfig `yaml:"bootstrap"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yamlCfg.Binary != "" {
		cfg.Binary = yamlCfg.Binary
	}
	if yamlCfg.BenchDir != "" {
		cfg.BenchDir = yamlCfg.BenchDir
	}
	if yamlCfg.Output != "" {
		cfg.Output = yamlCfg.Output
	}
	if yamlCfg.Workers != 0 {
		cfg.Workers = yamlCfg.Workers
	}
	for _, d := range []struct {
		raw  string
		into *time.Duration
	}{
		{yamlCfg.SearchTimeout, &cfg.SearchTimeout},
		{yamlCfg.BuildTimeout, &cfg.BuildTimeout},
		{yamlCfg.LiftTimeout, &cfg.LiftTimeout},
		{yamlCfg.CloneTimeout, &cfg.CloneTimeout},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", d.raw, err)
		}
		*d.into = parsed
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.HistoryPath != "" {
		cfg.HistoryPath = yamlCfg.HistoryPath
	}
	if yamlCfg.NoHistory {
		cfg.NoHistory = yamlCfg.NoHistory
	}

	// Merge the bootstrap section field by field. Zero is a legitimate
	// seed, so presence in the file decides, not the value.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if section, exists := rawMap["bootstrap"]; exists && section != nil {
			bootstrap := yamlCfg.Bootstrap
			sectionMap, _ := section.(map[string]interface{})

			if _, exists := sectionMap["iterations"]; exists {
				cfg.Bootstrap.Iterations = bootstrap.Iterations
			}
			if _, exists := sectionMap["confidence"]; exists {
				cfg.Bootstrap.Confidence = bootstrap.Confidence
			}
			if _, exists := sectionMap["seed"]; exists {
				cfg.Bootstrap.Seed = bootstrap.Seed
			}
		}
	}

	return cfg, nil
}

// FlagOverrides carries CLI flag values into MergeWithFlags. Nil fields
// mean the flag was not set on the command line.
type FlagOverrides struct {
	Binary        *string
	BenchDir      *string
	Output        *string
	Workers       *int
	SearchTimeout *time.Duration
	BuildTimeout  *time.Duration
	LiftTimeout   *time.Duration
	CloneTimeout  *time.Duration
	LogLevel      *string
	LogDir        *string
	HistoryPath   *string
	NoHistory     *bool
	Iterations    *int
	Confidence    *float64
	Seed          *int64
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(flags FlagOverrides) {
	if flags.Binary != nil {
		c.Binary = *flags.Binary
	}
	if flags.BenchDir != nil {
		c.BenchDir = *flags.BenchDir
	}
	if flags.Output != nil {
		c.Output = *flags.Output
	}
	if flags.Workers != nil {
		c.Workers = *flags.Workers
	}
	if flags.SearchTimeout != nil {
		c.SearchTimeout = *flags.SearchTimeout
	}
	if flags.BuildTimeout != nil {
		c.BuildTimeout = *flags.BuildTimeout
	}
	if flags.LiftTimeout != nil {
		c.LiftTimeout = *flags.LiftTimeout
	}
	if flags.CloneTimeout != nil {
		c.CloneTimeout = *flags.CloneTimeout
	}
	if flags.LogLevel != nil {
		c.LogLevel = *flags.LogLevel
	}
	if flags.LogDir != nil {
		c.LogDir = *flags.LogDir
	}
	if flags.HistoryPath != nil {
		c.HistoryPath = *flags.HistoryPath
	}
	if flags.NoHistory != nil {
		c.NoHistory = *flags.NoHistory
	}
	if flags.Iterations != nil {
		c.Bootstrap.Iterations = *flags.Iterations
	}
	if flags.Confidence != nil {
		c.Bootstrap.Confidence = *flags.Confidence
	}
	if flags.Seed != nil {
		c.Bootstrap.Seed = *flags.Seed
	}
}

// HistoryDBPath resolves the history database location, defaulting to
// history.db inside the bench directory.
func (c *Config) HistoryDBPath() string {
	if c.HistoryPath != "" {
		return c.HistoryPath
	}
	return filepath.Join(c.BenchDir, "history.db")
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.BenchDir == "" {
		return fmt.Errorf("bench_dir cannot be empty")
	}
	if c.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"search_timeout", c.SearchTimeout},
		{"build_timeout", c.BuildTimeout},
		{"lift_timeout", c.LiftTimeout},
		{"clone_timeout", c.CloneTimeout},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be > 0, got %v", d.name, d.value)
		}
	}

	if c.Bootstrap.Iterations < 1 {
		return fmt.Errorf("bootstrap.iterations must be >= 1, got %d", c.Bootstrap.Iterations)
	}
	if c.Bootstrap.Confidence <= 0 || c.Bootstrap.Confidence >= 1 {
		return fmt.Errorf("bootstrap.confidence must be between 0 and 1 exclusive, got %g", c.Bootstrap.Confidence)
	}

	return nil
}
