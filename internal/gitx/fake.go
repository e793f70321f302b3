package gitx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// FakeRepository implements Repository with scripted state for testing.
type FakeRepository struct {
	Root      string
	Hash      string
	Dirty     bool
	Untracked []string
	Changed   []string

	// CommitClears controls whether CommitAll clears the dirty flag.
	CommitClears bool

	// Err, when set, is returned by every method.
	Err error

	// Staged records every path passed to StagePath, in order.
	Staged []string

	// Commits records every commit message, in order.
	Commits []string

	// Clones records every destination CloneAt actually created.
	Clones []string

	commitSeq int
}

// NewFakeRepository creates a clean FakeRepository rooted at root with HEAD at hash.
func NewFakeRepository(root, hash string) *FakeRepository {
	return &FakeRepository{
		Root:         root,
		Hash:         hash,
		CommitClears: true,
	}
}

// RootPath returns the predetermined root.
func (f *FakeRepository) RootPath(ctx context.Context) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return f.Root, nil
}

// IsDirty returns the scripted dirty flag.
func (f *FakeRepository) IsDirty(ctx context.Context) (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}
	return f.Dirty, nil
}

// UntrackedPaths returns a copy of the scripted untracked paths.
func (f *FakeRepository) UntrackedPaths(ctx context.Context) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return slices.Clone(f.Untracked), nil
}

// ChangedPaths returns a copy of the scripted changed paths.
func (f *FakeRepository) ChangedPaths(ctx context.Context) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return slices.Clone(f.Changed), nil
}

// StagePath moves path from untracked to changed and marks the tree dirty.
func (f *FakeRepository) StagePath(ctx context.Context, path string) error {
	if f.Err != nil {
		return f.Err
	}
	idx := slices.Index(f.Untracked, path)
	if idx < 0 {
		return &IOError{Op: "add", Detail: fmt.Sprintf("pathspec '%s' did not match any files", path), Err: os.ErrNotExist}
	}
	f.Untracked = slices.Delete(f.Untracked, idx, idx+1)
	f.Changed = append(f.Changed, path)
	f.Staged = append(f.Staged, path)
	f.Dirty = true
	return nil
}

// CommitAll records the message and advances HEAD.
func (f *FakeRepository) CommitAll(ctx context.Context, message string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	f.Commits = append(f.Commits, message)
	f.commitSeq++
	f.Hash = fmt.Sprintf("%s-c%d", f.Hash, f.commitSeq)
	if f.CommitClears {
		f.Dirty = false
		f.Changed = nil
	}
	return f.Hash, nil
}

// CommitHash returns the current fake HEAD.
func (f *FakeRepository) CommitHash(ctx context.Context) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return f.Hash, nil
}

// CloneAt creates destination with a marker file unless it already exists.
func (f *FakeRepository) CloneAt(ctx context.Context, hash, destination string) error {
	if f.Err != nil {
		return f.Err
	}
	if info, err := os.Stat(destination); err == nil && info.IsDir() {
		return nil
	}
	if err := os.MkdirAll(destination, 0755); err != nil {
		return &IOError{Op: "clone", Err: err}
	}
	if err := os.WriteFile(filepath.Join(destination, "HEAD"), []byte(hash+"\n"), 0644); err != nil {
		return &IOError{Op: "clone", Err: err}
	}
	f.Clones = append(f.Clones, destination)
	return nil
}
