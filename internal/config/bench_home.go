package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// BenchDirEnv overrides the default workspace location when set.
const BenchDirEnv = "RPG_BENCH_DIR"

// fallbackBenchDir is used when RPG_BENCH_DIR is unset. Prepared repos and
// their graphs are throwaway state, so they live under /tmp by default.
const fallbackBenchDir = "/tmp/rpg-bench"

// DefaultBenchDir returns the workspace root for prepared repos.
// Priority order:
//  1. RPG_BENCH_DIR environment variable (if set)
//  2. /tmp/rpg-bench
func DefaultBenchDir() string {
	if dir := os.Getenv(BenchDirEnv); dir != "" {
		return dir
	}
	return fallbackBenchDir
}

// EnsureBenchDir resolves the bench directory to an absolute path and
// creates it if it doesn't exist.
func EnsureBenchDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve bench directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("create bench directory: %w", err)
	}
	return abs, nil
}
