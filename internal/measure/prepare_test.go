package measure

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userFRM/rpg-bench/internal/encoder"
	"github.com/userFRM/rpg-bench/internal/models"
	"github.com/userFRM/rpg-bench/internal/workspace"
)

// newTestPreparer opens a workspace in a temp dir with console output
// captured in the returned buffer.
func newTestPreparer(t *testing.T, enc Encoder) (*Preparer, *bytes.Buffer) {
	t.Helper()
	ws, err := workspace.Open(filepath.Join(t.TempDir(), "bench"))
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	var out bytes.Buffer
	ws.Out = &out
	return &Preparer{Workspace: ws, Encoder: enc, Out: &out}, &out
}

func localRepo(t *testing.T, name string) models.Repo {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.rs"), []byte("fn main() {}"), 0o644))
	return models.Repo{
		Name:      name,
		Language:  "rust",
		LocalPath: src,
		Queries:   []models.QueryCase{{Query: "entry point", Expect: []string{"main.rs"}}},
	}
}

func TestPrepareAllBuildsAndLifts(t *testing.T) {
	repo := localRepo(t, "myproject")

	enc := &fakeEncoder{
		buildFn: func(ctx context.Context, dir, language string) (encoder.BuildOutcome, error) {
			assert.Equal(t, "rust", language)
			writeGraph(t, dir, 5, 0)
			return encoder.BuildOutcome{Entities: 5, Duration: 2 * time.Second}, nil
		},
		liftFn: func(ctx context.Context, dir string, progress func(string)) (encoder.LiftOutcome, error) {
			progress("Lifting batch 1/2...")
			progress("Lifting batch 2/2...")
			writeGraph(t, dir, 5, 5)
			return encoder.LiftOutcome{Lifted: 5, Duration: 3 * time.Second}, nil
		},
	}

	p, out := newTestPreparer(t, enc)
	dirs, err := p.PrepareAll(context.Background(), benchSuite(repo), PrepareOptions{})
	require.NoError(t, err)

	require.Contains(t, dirs, "myproject")
	assert.True(t, encoder.GraphIsLifted(dirs["myproject"]))

	console := out.String()
	assert.Contains(t, console, "Phase 1: PREPARE")
	assert.Contains(t, console, "[myproject] (rust)")
	assert.Contains(t, console, "Copying")
	assert.Contains(t, console, "Building graph... 5 entities in 2.0s")
	assert.Contains(t, console, "Lifting 5 entities with Ollama...")
	assert.Contains(t, console, "\r")
	assert.Contains(t, console, "2/2")
	assert.Contains(t, console, "5 entities lifted in 3.0s")
}

func TestPrepareAllReusesCachedGraph(t *testing.T) {
	enc := &fakeEncoder{
		buildFn: func(ctx context.Context, dir, language string) (encoder.BuildOutcome, error) {
			t.Error("build must not run for a cached graph")
			return encoder.BuildOutcome{}, nil
		},
		liftFn: func(ctx context.Context, dir string, progress func(string)) (encoder.LiftOutcome, error) {
			t.Error("lift must not run for an already lifted graph")
			return encoder.LiftOutcome{}, nil
		},
	}

	p, out := newTestPreparer(t, enc)
	repo := models.Repo{
		Name:     "cached",
		Language: "rust",
		URL:      "https://example.com/cached.git",
		Queries:  []models.QueryCase{{Query: "q", Expect: []string{"a.rs"}}},
	}
	repoDir := p.Workspace.RepoDir(repo)
	require.NoError(t, os.MkdirAll(repoDir, 0o755))
	writeGraph(t, repoDir, 7, 3)

	dirs, err := p.PrepareAll(context.Background(), benchSuite(repo), PrepareOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"cached": repoDir}, dirs)

	console := out.String()
	assert.Contains(t, console, "Graph cached (7 entities, 3 lifted)")
	assert.Contains(t, console, "Already lifted (3 entities)")
	assert.NotContains(t, console, "Building graph")
	assert.NotContains(t, console, "Cloning")
}

func TestPrepareAllNoLift(t *testing.T) {
	enc := &fakeEncoder{
		liftFn: func(ctx context.Context, dir string, progress func(string)) (encoder.LiftOutcome, error) {
			t.Error("lift must not run under --no-lift")
			return encoder.LiftOutcome{}, nil
		},
	}

	p, out := newTestPreparer(t, enc)
	repo := localRepo(t, "nolift")
	repoDir := p.Workspace.RepoDir(repo)
	require.NoError(t, os.MkdirAll(repoDir, 0o755))
	writeGraph(t, repoDir, 4, 0)

	_, err := p.PrepareAll(context.Background(), benchSuite(repo), PrepareOptions{NoLift: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Lifting: SKIPPED (--no-lift)")
}

func TestPrepareAllForceRebuild(t *testing.T) {
	built := false
	enc := &fakeEncoder{
		buildFn: func(ctx context.Context, dir, language string) (encoder.BuildOutcome, error) {
			built = true
			writeGraph(t, dir, 3, 3)
			return encoder.BuildOutcome{Entities: 3, Duration: time.Second}, nil
		},
	}

	p, out := newTestPreparer(t, enc)
	repo := localRepo(t, "rebuilt")
	repoDir := p.Workspace.RepoDir(repo)
	require.NoError(t, os.MkdirAll(repoDir, 0o755))
	writeGraph(t, repoDir, 3, 3)

	_, err := p.PrepareAll(context.Background(), benchSuite(repo), PrepareOptions{ForceRebuild: true})
	require.NoError(t, err)
	assert.True(t, built, "--force-rebuild must rebuild a cached graph")
	assert.Contains(t, out.String(), "Building graph... 3 entities in 1.0s")
}

func TestPrepareAllBuildFailure(t *testing.T) {
	enc := &fakeEncoder{
		buildFn: func(ctx context.Context, dir, language string) (encoder.BuildOutcome, error) {
			return encoder.BuildOutcome{}, fmt.Errorf("build failed (rc=2): unsupported language")
		},
		liftFn: func(ctx context.Context, dir string, progress func(string)) (encoder.LiftOutcome, error) {
			t.Error("lift must not run after a failed build")
			return encoder.LiftOutcome{}, nil
		},
	}

	p, out := newTestPreparer(t, enc)
	repo := localRepo(t, "broken")

	dirs, err := p.PrepareAll(context.Background(), benchSuite(repo), PrepareOptions{})
	require.NoError(t, err, "a failed build degrades the repo, not the run")

	// The dir stays mapped; the missing graph makes measure skip it.
	assert.Contains(t, dirs, "broken")
	assert.False(t, encoder.GraphExists(dirs["broken"]))

	console := out.String()
	assert.Contains(t, console, "FAILED")
	assert.Contains(t, console, "unsupported language")
}

func TestPrepareAllMissingLocalPath(t *testing.T) {
	p, out := newTestPreparer(t, &fakeEncoder{})
	repo := models.Repo{
		Name:      "ghost",
		Language:  "rust",
		LocalPath: filepath.Join(t.TempDir(), "nope"),
		Queries:   []models.QueryCase{{Query: "q", Expect: []string{"a.rs"}}},
	}

	dirs, err := p.PrepareAll(context.Background(), benchSuite(repo), PrepareOptions{})
	require.NoError(t, err)
	assert.NotContains(t, dirs, "ghost")
	assert.Contains(t, out.String(), "does not exist")
}

func TestResolveExisting(t *testing.T) {
	p, _ := newTestPreparer(t, &fakeEncoder{})

	present := models.Repo{Name: "here", Language: "rust", LocalPath: "/unused"}
	absent := models.Repo{Name: "owner/gone", Language: "rust", URL: "https://example.com/gone.git"}
	require.NoError(t, os.MkdirAll(p.Workspace.RepoDir(present), 0o755))

	dirs, missing := p.ResolveExisting(benchSuite(present, absent))

	assert.Equal(t, map[string]string{"here": p.Workspace.RepoDir(present)}, dirs)
	assert.Equal(t, []string{p.Workspace.RepoDir(absent)}, missing)
}
