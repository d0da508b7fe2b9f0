package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ScanOptions configures directory scanning
type ScanOptions struct {
	// Pattern is a regex matched against filenames without their extension
	Pattern string
	// Extensions lists the file extensions to include (case-insensitive)
	Extensions []string
	// Recursive enables descending into subdirectories
	Recursive bool
	// ExcludeDirs lists directory names to skip at any depth
	ExcludeDirs []string
}

// ScanDirectory walks dir and returns the absolute paths of all files
// matching the options, sorted alphabetically. Hidden directories are
// always skipped.
func ScanDirectory(dir string, opts ScanOptions) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	var patternRegex *regexp.Regexp
	if opts.Pattern != "" {
		patternRegex, err = regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
	}

	extMap := make(map[string]bool)
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[strings.ToLower(ext)] = true
	}

	excludeMap := make(map[string]bool)
	for _, name := range opts.ExcludeDirs {
		excludeMap[name] = true
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if path == dir {
			return nil
		}

		if d.IsDir() {
			if excludeMap[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		filename := d.Name()
		if len(extMap) > 0 && !extMap[strings.ToLower(filepath.Ext(filename))] {
			return nil
		}
		if patternRegex != nil {
			nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))
			if !patternRegex.MatchString(nameWithoutExt) {
				return nil
			}
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		files = append(files, absPath)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}
