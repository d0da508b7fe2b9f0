// Package workspace owns the bench directory where repos are staged,
// indexed, and measured. One run holds the whole directory via a
// non-blocking file lock so concurrent runs cannot corrupt each other's
// graph artifacts.
package workspace

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/userFRM/rpg-bench/internal/filelock"
	"github.com/userFRM/rpg-bench/internal/fileutil"
	"github.com/userFRM/rpg-bench/internal/models"
)

// DefaultCloneTimeout bounds a shallow clone of a remote repo.
const DefaultCloneTimeout = 2 * time.Minute

// repoExcludes are directory names never copied from a local source tree.
// Keeping .rpg out isolates the workspace's graph data from the source
// repo's; target and .git are dead weight for indexing.
var repoExcludes = []string{".rpg", "target", ".git"}

// Workspace is an opened bench directory holding its lock.
type Workspace struct {
	root string
	lock *filelock.FileLock

	// CloneTimeout bounds git clone for remote repos. Zero means
	// DefaultCloneTimeout.
	CloneTimeout time.Duration

	// Out receives progress lines ("Copying ...", "Cloning ...").
	// Nil means os.Stdout.
	Out io.Writer
}

// Open creates root if needed and acquires its lock without blocking.
// A workspace held by another run is an immediate error, not a wait.
func Open(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bench dir %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bench dir %s: %w", abs, err)
	}

	lock := filelock.New(filepath.Join(abs, ".lock"))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("another rpg-bench run holds the workspace at %s", abs)
	}

	return &Workspace{root: abs, lock: lock, CloneTimeout: DefaultCloneTimeout}, nil
}

// Close releases the workspace lock.
func (ws *Workspace) Close() error {
	if err := ws.lock.Unlock(); err != nil {
		return err
	}
	os.Remove(ws.lock.Path())
	return nil
}

// Root returns the absolute bench directory path.
func (ws *Workspace) Root() string {
	return ws.root
}

// RepoDir returns the working directory for a repo. The short name keeps
// "tokio-rs/tokio" and a later measure-only run pointing at the same dir.
func (ws *Workspace) RepoDir(repo models.Repo) string {
	return filepath.Join(ws.root, repo.ShortName())
}

// HasRepo reports whether the repo's working directory already exists.
func (ws *Workspace) HasRepo(repo models.Repo) bool {
	info, err := os.Stat(ws.RepoDir(repo))
	return err == nil && info.IsDir()
}

// EnsureRepo materializes the repo's working directory: a filtered tree
// copy for local sources, a shallow clone for URLs. An existing directory
// is reused as is.
func (ws *Workspace) EnsureRepo(ctx context.Context, repo models.Repo) (string, error) {
	dir := ws.RepoDir(repo)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}
	if repo.IsRemote() {
		return dir, ws.clone(ctx, repo, dir)
	}
	return dir, ws.copyLocal(repo, dir)
}

func (ws *Workspace) copyLocal(repo models.Repo, dir string) error {
	src, err := filepath.Abs(repo.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to resolve local path %s: %w", repo.LocalPath, err)
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("local path %s does not exist", src)
	}

	fmt.Fprintf(ws.writer(), "    Copying %s -> %s...\n", src, dir)
	if err := fileutil.CopyTree(src, dir, repoExcludes); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}

func (ws *Workspace) clone(ctx context.Context, repo models.Repo, dir string) error {
	fmt.Fprintf(ws.writer(), "    Cloning %s...\n", repo.Name)

	timeout := ws.CloneTimeout
	if timeout <= 0 {
		timeout = DefaultCloneTimeout
	}
	cloneCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cloneCtx, "git", "clone", "--depth", "1", repo.URL, dir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// A failed clone can leave a partial checkout behind; clear it so
		// the next run retries instead of trusting the stub.
		os.RemoveAll(dir)
		if cloneCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("clone of %s timed out after %s", repo.Name, timeout)
		}
		return fmt.Errorf("failed to clone %s: %v: %s", repo.Name, err, lastLine(output))
	}
	return nil
}

func (ws *Workspace) writer() io.Writer {
	if ws.Out != nil {
		return ws.Out
	}
	return os.Stdout
}

// lastLine extracts the final non-empty line of command output, which is
// where git puts the interesting part of its failure messages.
func lastLine(output []byte) string {
	s := strings.TrimSpace(string(output))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
