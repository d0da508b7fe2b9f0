package encoder

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStub installs a shell script standing in for the encoder binary.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rpg-encoder")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func newTestService(binary string) *Service {
	return NewService(binary, 30*time.Second, 30*time.Second, 5*time.Second)
}

func TestServiceSearch(t *testing.T) {
	binary := writeStub(t, `
echo "1. login_user [src/auth.rs:42] (score: 0.93)"
echo "2. Session::new [src/session.rs:10] (score: 0.81)"
`)
	svc := newTestService(binary)

	out, err := svc.Search(context.Background(), t.TempDir(), "auth flow", ModeSnippets)
	require.NoError(t, err)
	assert.False(t, out.TimedOut)
	assert.Zero(t, out.ExitCode)
	require.Len(t, out.Hits, 2)
	assert.Equal(t, "src/auth.rs", out.Hits[0].File)
}

func TestServiceSearchNonZeroExit(t *testing.T) {
	binary := writeStub(t, `
echo "No results found for: whatever" >&2
exit 3
`)
	svc := newTestService(binary)

	out, err := svc.Search(context.Background(), t.TempDir(), "whatever", ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)
	assert.Empty(t, out.Hits)
}

func TestServiceSearchTimeout(t *testing.T) {
	binary := writeStub(t, "sleep 5\n")
	svc := NewService(binary, time.Second, time.Second, 100*time.Millisecond)

	out, err := svc.Search(context.Background(), t.TempDir(), "slow", ModeSnippets)
	require.NoError(t, err)
	assert.True(t, out.TimedOut)
	assert.Empty(t, out.Hits)
}

func TestServiceBuild(t *testing.T) {
	binary := writeStub(t, `
echo "  Files: 37" >&2
echo "  Entities: 128" >&2
echo "  Lifted: 0/128" >&2
echo "  Saved to: .rpg/graph.json" >&2
`)
	svc := newTestService(binary)

	dir := t.TempDir()
	// A leftover artifact from an earlier build must not survive.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, GraphDir), 0o755))
	require.NoError(t, os.WriteFile(GraphPath(dir), []byte("{}"), 0o644))

	out, err := svc.Build(context.Background(), dir, "rust")
	require.NoError(t, err)
	assert.Equal(t, 128, out.Entities)
	assert.False(t, GraphExists(dir))
}

func TestServiceBuildFailure(t *testing.T) {
	binary := writeStub(t, `
echo "error: unsupported language" >&2
exit 2
`)
	svc := newTestService(binary)

	_, err := svc.Build(context.Background(), t.TempDir(), "cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rc=2")
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestServiceLift(t *testing.T) {
	binary := writeStub(t, `
echo "Lifting 10 entities matching 'all'..." >&2
echo "  Using LLM provider: ollama (qwen2.5-coder)" >&2
echo "  Lifting batch 1/2 (5 entities)..." >&2
echo "  Lifting batch 2/2 (5 entities)..." >&2
echo "  Entities lifted: 9" >&2
`)
	svc := newTestService(binary)

	var progress []string
	out, err := svc.Lift(context.Background(), t.TempDir(), func(line string) {
		progress = append(progress, line)
	})
	require.NoError(t, err)
	assert.Equal(t, 9, out.Lifted)
	// Only batch lines reach the progress callback.
	assert.Equal(t, []string{
		"Lifting batch 1/2 (5 entities)...",
		"Lifting batch 2/2 (5 entities)...",
	}, progress)
}

func TestParseEntityCount(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   int
	}{
		{
			name:   "build summary",
			stderr: "  Files: 37\n  Entities: 128\n  Saved to: .rpg/graph.json\n",
			want:   128,
		},
		{
			name:   "lifted tally ignored",
			stderr: "  Entities: 128\n  Lifted: 10/128\n",
			want:   128,
		},
		{
			name:   "tally line alone does not count",
			stderr: "  Entities: 50, Lifted: 10\n",
			want:   0,
		},
		{
			name:   "no entity line",
			stderr: "warning: nothing to do\n",
			want:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEntityCount(tt.stderr))
		})
	}
}

func TestParseLiftedCount(t *testing.T) {
	stderr := "Lifting 128 entities matching 'all'...\n  Lifting batch 3/3 (8 entities)...\n  Entities lifted: 120\n"
	assert.Equal(t, 120, ParseLiftedCount(stderr))
	assert.Zero(t, ParseLiftedCount("  Entities: 128\n"))
}

func TestFindBinary(t *testing.T) {
	t.Run("configured path wins", func(t *testing.T) {
		path := writeStub(t, "true\n")
		got, err := FindBinary(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("configured path must exist", func(t *testing.T) {
		_, err := FindBinary(filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
	})

	t.Run("nothing found", func(t *testing.T) {
		if _, err := exec.LookPath(Binary); err == nil {
			t.Skipf("%s present on PATH", Binary)
		}
		_, err := FindBinary("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--binary")
	})
}
