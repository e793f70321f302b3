package gitx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupGitRepo creates a temporary git repository with one commit.
func setupGitRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	dir := t.TempDir()
	// Resolve symlinked temp roots so paths compare equal to git's output.
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	gitCmd(t, dir, "init", "--quiet")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "config", "user.name", "Test User")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")

	writeFile(t, filepath.Join(dir, "train.py"), "print('hello')\n")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "--quiet", "-m", "initial")

	return dir
}

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRealRepository_RootPath(t *testing.T) {
	ctx := context.Background()

	t.Run("from root", func(t *testing.T) {
		dir := setupGitRepo(t)
		root, err := NewRealRepository(dir).RootPath(ctx)
		require.NoError(t, err)
		assert.Equal(t, dir, root)
	})

	t.Run("from subdirectory", func(t *testing.T) {
		dir := setupGitRepo(t)
		sub := filepath.Join(dir, "experiments", "lr")
		require.NoError(t, os.MkdirAll(sub, 0755))

		root, err := NewRealRepository(sub).RootPath(ctx)
		require.NoError(t, err)
		assert.Equal(t, dir, root)
	})

	t.Run("outside a repository", func(t *testing.T) {
		if _, err := exec.LookPath("git"); err != nil {
			t.Skip("git binary not available")
		}
		dir := t.TempDir()
		t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))

		_, err := NewRealRepository(dir).RootPath(ctx)
		assert.ErrorIs(t, err, ErrNotARepository)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewRealRepository(filepath.Join(t.TempDir(), "gone")).RootPath(ctx)
		assert.ErrorIs(t, err, ErrNotARepository)
	})
}

func TestRealRepository_StatusQueries(t *testing.T) {
	ctx := context.Background()
	dir := setupGitRepo(t)
	repo := NewRealRepository(dir)

	dirty, err := repo.IsDirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty, "fresh repository")

	writeFile(t, filepath.Join(dir, "notes", "idea.md"), "todo\n")
	writeFile(t, filepath.Join(dir, "data.csv"), "a,b\n")

	dirty, err = repo.IsDirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty, "untracked files do not make the tree dirty")

	untracked, err := repo.UntrackedPaths(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"data.csv", "notes/idea.md"}, untracked)

	writeFile(t, filepath.Join(dir, "train.py"), "print('changed')\n")

	dirty, err = repo.IsDirty(ctx)
	require.NoError(t, err)
	assert.True(t, dirty, "modified tracked file")

	changed, err := repo.ChangedPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"train.py"}, changed)
}

func TestRealRepository_StageAndCommit(t *testing.T) {
	ctx := context.Background()
	dir := setupGitRepo(t)
	repo := NewRealRepository(dir)

	before, err := repo.CommitHash(ctx)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "model.py"), "class Model: pass\n")
	require.NoError(t, repo.StagePath(ctx, "model.py"))

	untracked, err := repo.UntrackedPaths(ctx)
	require.NoError(t, err)
	assert.Empty(t, untracked, "staged file is no longer untracked")

	dirty, err := repo.IsDirty(ctx)
	require.NoError(t, err)
	assert.True(t, dirty, "staged new file makes the tree dirty")

	after, err := repo.CommitAll(ctx, "pinrun: Automatically committing all changes")
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "CommitAll advances HEAD")

	dirty, err = repo.IsDirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty, "tree is clean after CommitAll")

	var ioErr *IOError
	assert.ErrorAs(t, repo.StagePath(ctx, "does-not-exist.txt"), &ioErr)
}

func TestRealRepository_CloneAt(t *testing.T) {
	ctx := context.Background()
	dir := setupGitRepo(t)
	repo := NewRealRepository(dir)

	hash, err := repo.CommitHash(ctx)
	require.NoError(t, err)

	// Uncommitted edits must not leak into the snapshot.
	writeFile(t, filepath.Join(dir, "train.py"), "print('uncommitted')\n")

	dst := filepath.Join(t.TempDir(), "work", filepath.Base(dir), hash)
	require.NoError(t, repo.CloneAt(ctx, hash, dst))

	data, err := os.ReadFile(filepath.Join(dst, "train.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hello')\n", string(data))
	assert.Equal(t, hash, gitCmd(t, dst, "rev-parse", "HEAD"))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary clone directories left behind")

	// An existing destination is treated as complete and left untouched.
	marker := filepath.Join(dst, "marker")
	writeFile(t, marker, "keep")
	require.NoError(t, repo.CloneAt(ctx, hash, dst))
	assert.FileExists(t, marker)
}

func TestRelPath(t *testing.T) {
	tests := []struct {
		name    string
		root    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "root itself", root: "/repo", path: "/repo", want: "."},
		{name: "subdirectory", root: "/repo", path: "/repo/sub/dir", want: "sub/dir"},
		{name: "sibling with common prefix", root: "/repo", path: "/repo2/x", wantErr: true},
		{name: "outside", root: "/repo", path: "/other", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RelPath(tt.root, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}
