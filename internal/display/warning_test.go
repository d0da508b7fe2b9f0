package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestWarning_Display(t *testing.T) {
	tests := []struct {
		name        string
		warning     Warning
		wantParts   []string
		unwantParts []string
	}{
		{
			name:    "title only",
			warning: Warning{Title: "Graph missing"},
			wantParts: []string{
				"⚠️  Warning: Graph missing",
				"\x1b[33m",
				"\x1b[0m",
			},
			unwantParts: []string{"Affected", "Suggestion:"},
		},
		{
			name: "single file uses singular label",
			warning: Warning{
				Title: "Repo directory not found",
				Files: []string{"/tmp/rpg-bench/tokio"},
			},
			wantParts: []string{
				"Affected file:",
				"1. /tmp/rpg-bench/tokio",
			},
			unwantParts: []string{"Affected files:"},
		},
		{
			name: "multiple files are numbered",
			warning: Warning{
				Title: "Repo directories not found",
				Files: []string{"/tmp/rpg-bench/tokio", "/tmp/rpg-bench/ripgrep"},
			},
			wantParts: []string{
				"Affected files:",
				"1. /tmp/rpg-bench/tokio",
				"2. /tmp/rpg-bench/ripgrep",
			},
		},
		{
			name: "message and suggestion",
			warning: Warning{
				Title:      "Stale graph",
				Message:    "The cached graph predates the current binary",
				Suggestion: "Re-run with --force-rebuild",
			},
			wantParts: []string{
				"    The cached graph predates the current binary",
				"    Suggestion:",
				"    Re-run with --force-rebuild",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.warning.Display(&buf)
			got := buf.String()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Display() output missing %q, got %q", part, got)
				}
			}
			for _, part := range tt.unwantParts {
				if strings.Contains(got, part) {
					t.Errorf("Display() output should not contain %q, got %q", part, got)
				}
			}
		})
	}
}

func TestWarnMissingRepoDirs(t *testing.T) {
	w := WarnMissingRepoDirs([]string{"/tmp/rpg-bench/serde"})

	if w.Title != "Repo directories not found" {
		t.Errorf("Title = %q", w.Title)
	}
	if len(w.Files) != 1 || w.Files[0] != "/tmp/rpg-bench/serde" {
		t.Errorf("Files = %v", w.Files)
	}
	if !strings.Contains(w.Suggestion, "--measure-only") {
		t.Errorf("Suggestion = %q, want mention of --measure-only", w.Suggestion)
	}
}
