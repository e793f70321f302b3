package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Repository provides the small set of git primitives the snapshot manager
// needs. Queries reflect live repository state at call time; nothing is
// cached, because callers re-query after every mutation.
type Repository interface {
	// RootPath returns the root of the working tree containing the bound directory.
	// Returns ErrNotARepository if the directory is not inside a working tree.
	RootPath(ctx context.Context) (string, error)

	// IsDirty reports whether tracked files have staged or unstaged modifications.
	IsDirty(ctx context.Context) (bool, error)

	// UntrackedPaths returns root-relative paths unknown to git, honoring ignore rules.
	UntrackedPaths(ctx context.Context) ([]string, error)

	// ChangedPaths returns root-relative paths of tracked files with modifications.
	ChangedPaths(ctx context.Context) ([]string, error)

	// StagePath adds a root-relative path to the index.
	StagePath(ctx context.Context, path string) error

	// CommitAll commits all tracked modifications and returns the new commit id.
	CommitAll(ctx context.Context, message string) (string, error)

	// CommitHash returns the commit id of HEAD.
	CommitHash(ctx context.Context) (string, error)

	// CloneAt materializes the repository at commit hash under destination.
	// An existing destination is treated as a complete clone.
	CloneAt(ctx context.Context, hash, destination string) error
}

// RealRepository implements Repository by running the git binary.
type RealRepository struct {
	dir string
}

// NewRealRepository creates a RealRepository bound to dir.
func NewRealRepository(dir string) *RealRepository {
	return &RealRepository{dir: dir}
}

// runGit executes git in dir and returns trimmed stdout.
func runGit(ctx context.Context, dir, op string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if strings.Contains(strings.ToLower(detail), "not a git repository") {
			return "", fmt.Errorf("%s: %w", dir, ErrNotARepository)
		}
		return "", &IOError{Op: op, Detail: detail, Err: err}
	}

	return strings.TrimRight(stdout.String(), "\n"), nil
}

// RootPath returns the top-level directory of the working tree.
func (r *RealRepository) RootPath(ctx context.Context) (string, error) {
	if info, err := os.Stat(r.dir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%s: %w", r.dir, ErrNotARepository)
	}

	root, err := runGit(ctx, r.dir, "rev-parse", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	if root == "" {
		// Inside a bare repository or the .git directory itself.
		return "", fmt.Errorf("%s: %w", r.dir, ErrNotARepository)
	}
	return filepath.Clean(root), nil
}

// IsDirty reports whether tracked files differ from HEAD, in the index or
// the working tree. Untracked files do not make the tree dirty.
func (r *RealRepository) IsDirty(ctx context.Context) (bool, error) {
	out, err := runGit(ctx, r.dir, "status", "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// UntrackedPaths lists untracked, non-ignored files relative to the root.
func (r *RealRepository) UntrackedPaths(ctx context.Context) ([]string, error) {
	root, err := r.RootPath(ctx)
	if err != nil {
		return nil, err
	}

	out, err := runGit(ctx, root, "ls-files", "ls-files", "--others", "--exclude-standard", "-z")
	if err != nil {
		return nil, err
	}
	return splitNul(out), nil
}

// ChangedPaths lists tracked files with staged or unstaged modifications.
func (r *RealRepository) ChangedPaths(ctx context.Context) ([]string, error) {
	root, err := r.RootPath(ctx)
	if err != nil {
		return nil, err
	}

	out, err := runGit(ctx, root, "status", "status", "--porcelain", "--untracked-files=no", "-z")
	if err != nil {
		return nil, err
	}
	return parsePorcelainZ(out), nil
}

// StagePath stages a root-relative path.
func (r *RealRepository) StagePath(ctx context.Context, path string) error {
	root, err := r.RootPath(ctx)
	if err != nil {
		return err
	}

	_, err = runGit(ctx, root, "add", "add", "--", path)
	return err
}

// CommitAll commits every tracked modification, including staged new files.
func (r *RealRepository) CommitAll(ctx context.Context, message string) (string, error) {
	root, err := r.RootPath(ctx)
	if err != nil {
		return "", err
	}

	if _, err := runGit(ctx, root, "commit", "commit", "-a", "-m", message); err != nil {
		return "", err
	}
	return r.CommitHash(ctx)
}

// CommitHash returns the full commit id of HEAD.
func (r *RealRepository) CommitHash(ctx context.Context) (string, error) {
	return runGit(ctx, r.dir, "rev-parse", "rev-parse", "HEAD")
}

// CloneAt clones the repository into destination and checks out hash.
//
// The clone is built in a temporary sibling of destination and renamed into
// place, so destination either does not exist or holds a complete clone.
// If another process renames its clone first, ours is discarded and the
// call succeeds.
func (r *RealRepository) CloneAt(ctx context.Context, hash, destination string) error {
	if info, err := os.Stat(destination); err == nil && info.IsDir() {
		return nil
	}

	root, err := r.RootPath(ctx)
	if err != nil {
		return err
	}

	parent := filepath.Dir(destination)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return &IOError{Op: "clone", Detail: "create parent directory", Err: err}
	}

	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(destination)+".tmp-*")
	if err != nil {
		return &IOError{Op: "clone", Detail: "create temporary directory", Err: err}
	}
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.RemoveAll(tmp)
		}
	}()

	if _, err := runGit(ctx, parent, "clone", "clone", "--quiet", "--no-checkout", root, tmp); err != nil {
		return err
	}
	if _, err := runGit(ctx, tmp, "checkout", "checkout", "--quiet", "--detach", hash); err != nil {
		return err
	}

	if err := os.Rename(tmp, destination); err != nil {
		if info, statErr := os.Stat(destination); statErr == nil && info.IsDir() {
			return nil
		}
		return &IOError{Op: "clone", Detail: "rename into place", Err: err}
	}

	cleanup = false
	return nil
}

// RelPath computes the path of absPath relative to root.
func RelPath(root, absPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute root: %w", err)
	}

	absTarget, err := filepath.Abs(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute target: %w", err)
	}

	// Resolve symlinks on both sides so /tmp vs /private/tmp style aliases agree.
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}
	if resolved, err := filepath.EvalSymlinks(absTarget); err == nil {
		absTarget = resolved
	}

	relPath, err := filepath.Rel(absRoot, absTarget)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}

	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside repository %s", absPath, root)
	}

	return relPath, nil
}

// IsNotARepository reports whether err signals a missing repository.
func IsNotARepository(err error) bool {
	return errors.Is(err, ErrNotARepository)
}

func splitNul(out string) []string {
	var paths []string
	for _, p := range strings.Split(out, "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// parsePorcelainZ extracts paths from `git status --porcelain -z` output.
// Rename entries carry the original path as an extra NUL-separated field,
// which is skipped.
func parsePorcelainZ(out string) []string {
	var paths []string
	fields := strings.Split(out, "\x00")
	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if len(entry) < 4 {
			continue
		}
		status := entry[:2]
		paths = append(paths, entry[3:])
		if status[0] == 'R' || status[0] == 'C' {
			i++
		}
	}
	return paths
}
