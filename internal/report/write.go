package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/userFRM/rpg-bench/internal/filelock"
)

// DefaultOutput is the report filename used when none is configured.
const DefaultOutput = "results.json"

// ResolvePath returns the report destination. Absolute paths are used as
// given; relative ones land next to the first suite file, falling back to
// the working directory when no suite file is known. Empty output means
// DefaultOutput.
func ResolvePath(output string, suiteFiles []string) string {
	if output == "" {
		output = DefaultOutput
	}
	if filepath.IsAbs(output) || len(suiteFiles) == 0 {
		return output
	}
	return filepath.Join(filepath.Dir(suiteFiles[0]), output)
}

// Save writes the report as indented JSON through an atomic rename and
// prints the destination.
func Save(w io.Writer, path string, rep *Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := filelock.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(w, "Results saved to %s\n", path)
	return nil
}
