// Package parser loads benchmark suite files. Three formats are supported:
// JSON (the canonical queries.json layout), YAML with the same shape, and a
// Markdown form with one section per repo. Format is detected from the file
// extension; parsed suites validate identically regardless of source format.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/userFRM/rpg-bench/internal/fileutil"
	"github.com/userFRM/rpg-bench/internal/models"
)

// Format represents the format of a suite file
type Format int

const (
	// FormatUnknown represents an unknown or unsupported file format
	FormatUnknown Format = iota
	// FormatJSON represents a JSON (.json) suite file
	FormatJSON
	// FormatYAML represents a YAML (.yaml, .yml) suite file
	FormatYAML
	// FormatMarkdown represents a Markdown (.md, .markdown) suite file
	FormatMarkdown
)

// String returns the string representation of the Format
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// Parser is the interface all suite parsers implement
type Parser interface {
	// Parse reads from an io.Reader and returns a parsed Suite
	Parse(r io.Reader) (*models.Suite, error)
}

// DetectFormat detects the suite format from the file extension.
// Supported extensions:
//   - .json -> FormatJSON
//   - .yaml, .yml -> FormatYAML
//   - .md, .markdown -> FormatMarkdown
//   - all others -> FormatUnknown
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatUnknown
	}
}

// NewParser creates a parser for the specified format.
// Returns an error if the format is unknown.
func NewParser(format Format) (Parser, error) {
	switch format {
	case FormatJSON:
		return NewJSONParser(), nil
	case FormatYAML:
		return NewYAMLParser(), nil
	case FormatMarkdown:
		return NewMarkdownParser(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
}

// ParseFile detects the format of a suite file, parses it, and validates
// the result. The absolute source path is recorded in the suite for
// diagnostics and for resolving repo-relative local paths later.
func ParseFile(path string) (*models.Suite, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access suite file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a suite file", path)
	}

	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unknown suite format: %s (supported: .json, .yaml, .yml, .md, .markdown)", path)
	}

	p, err := NewParser(format)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open suite file: %w", err)
	}
	defer file.Close()

	suite, err := p.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	suite.FilePaths = []string{absPath}

	if err := suite.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return suite, nil
}

// ParseFiles parses every path and merges the results in argument order.
func ParseFiles(paths ...string) (*models.Suite, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no suite files provided")
	}
	suites := make([]*models.Suite, 0, len(paths))
	for _, path := range paths {
		s, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return MergeSuites(suites...)
}

// MergeSuites combines suites into one, keeping repo order and rejecting
// duplicate repo names across files.
func MergeSuites(suites ...*models.Suite) (*models.Suite, error) {
	merged := &models.Suite{}
	seen := make(map[string]string)
	for _, s := range suites {
		if s == nil {
			continue
		}
		source := "unknown file"
		if len(s.FilePaths) > 0 {
			source = s.FilePaths[0]
		}
		for i := range s.Repos {
			name := s.Repos[i].Name
			if prev, ok := seen[name]; ok {
				return nil, fmt.Errorf("repo %q defined in both %s and %s", name, prev, source)
			}
			seen[name] = source
			merged.Repos = append(merged.Repos, s.Repos[i])
		}
		merged.FilePaths = append(merged.FilePaths, s.FilePaths...)
	}
	if len(merged.Repos) == 0 {
		return nil, fmt.Errorf("no repos defined in any suite file")
	}
	return merged, nil
}

// suitePattern matches discoverable suite file names: queries.json,
// queries-go.yaml, suite-std.md and so on.
var suitePattern = regexp.MustCompile(`^(queries|suite)([-.].*)?$`)

// FilterSuiteFiles expands files and directories into a deduplicated,
// sorted list of suite file paths. Directories are scanned recursively for
// files named queries* or suite-* with a supported extension; explicit file
// paths are accepted as long as their extension is supported.
func FilterSuiteFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths provided")
	}

	found := make(map[string]bool)
	opts := fileutil.ScanOptions{
		Pattern:    suitePattern.String(),
		Extensions: []string{".json", ".yaml", ".yml", ".md", ".markdown"},
		Recursive:  true,
	}

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %q: %w", path, err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("path %q does not exist", absPath)
			}
			return nil, fmt.Errorf("failed to access path %q: %w", absPath, err)
		}

		if info.IsDir() {
			files, err := fileutil.ScanDirectory(absPath, opts)
			if err != nil {
				return nil, fmt.Errorf("failed to scan directory %q: %w", absPath, err)
			}
			for _, file := range files {
				found[file] = true
			}
			continue
		}

		if DetectFormat(absPath) == FormatUnknown {
			return nil, fmt.Errorf("%q is not a supported suite file", absPath)
		}
		found[absPath] = true
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("no suite files found (looked for queries*/suite-* with .json, .yaml, .yml, .md)")
	}

	result := make([]string, 0, len(found))
	for path := range found {
		result = append(result, path)
	}
	sort.Strings(result)
	return result, nil
}
