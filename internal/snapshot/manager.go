// Package snapshot decides where a run executes.
//
// A Manager resolves the working directory of a run. The git-backed manager
// pins the run to an immutable, content-addressed copy of the repository at
// one commit:
//
//	<parentWorkDir>/<repositoryName>/<commitHash>
//
// Before the copy is taken, untracked files and uncommitted changes are
// reconciled with the operator. Operator decisions that recur across runs of
// one context (whether version managing is enabled, whether to run from a
// snapshot) are cached in a choices.Store and never asked twice.
//
// Snapshot directories are shared by every run that targets the same commit
// and are never overwritten once they exist.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/danieljhkim/pinrun/internal/choices"
	"github.com/danieljhkim/pinrun/internal/fsops"
	"github.com/danieljhkim/pinrun/internal/gitx"
	"github.com/danieljhkim/pinrun/internal/manifest"
	"github.com/danieljhkim/pinrun/internal/prompt"
)

// Manager resolves the working directory of a run.
type Manager interface {
	// ResolveWorkingDirectory decides where the run executes, materializing a
	// snapshot when needed.
	ResolveWorkingDirectory(ctx context.Context) (*Result, error)

	// Info describes the code version of the last resolution.
	Info() Info
}

// Kind selects a Manager implementation.
type Kind string

const (
	// KindGit pins runs to git commit snapshots.
	KindGit Kind = "git"

	// KindDisabled runs from the caller's directory.
	KindDisabled Kind = "disabled"
)

// ParseKind validates a manager kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindGit, KindDisabled:
		return k, nil
	case "":
		return KindGit, nil
	default:
		return "", fmt.Errorf("invalid version manager %q (must be git or disabled)", s)
	}
}

// Options configure a resolution.
type Options struct {
	// CWD is the caller's directory.
	CWD string

	// ContextKey scopes cached decisions.
	ContextKey string

	// ParentWorkDir is the parent of all snapshot directories.
	ParentWorkDir string

	// ComputeRequirements generates a dependency manifest for new snapshots.
	ComputeRequirements bool

	// MaxCommitAttempts bounds automatic commits while the tree stays dirty.
	MaxCommitAttempts int

	Logger *slog.Logger
}

// Deps are the collaborators of a git-backed Manager.
type Deps struct {
	Repo     gitx.Repository
	UI       prompt.Controller
	Choices  choices.Store
	Manifest *manifest.Manifest
	FS       fsops.FS
}

// NewManager builds the Manager selected by kind.
func NewManager(kind Kind, deps Deps, opts Options) (Manager, error) {
	switch kind {
	case KindDisabled:
		return NewDisabled(opts.CWD), nil
	case KindGit:
		return NewGitManager(deps, opts)
	default:
		return nil, fmt.Errorf("unknown version manager %q", kind)
	}
}

// SnapshotPath returns the content-addressed snapshot directory of
// repository name at commit hash.
func SnapshotPath(parentWorkDir, name, hash string) string {
	return filepath.Join(parentWorkDir, name, hash)
}

// Disabled runs every resolution from the caller's directory.
type Disabled struct {
	cwd string
}

// NewDisabled creates a Disabled manager for cwd.
func NewDisabled(cwd string) *Disabled {
	return &Disabled{cwd: cwd}
}

// ResolveWorkingDirectory returns the caller's directory unchanged.
func (d *Disabled) ResolveWorkingDirectory(ctx context.Context) (*Result, error) {
	return &Result{
		WorkingDirectory: d.cwd,
		Snapshot:         Info{Requirements: []string{}},
	}, nil
}

// Info returns an empty description.
func (d *Disabled) Info() Info {
	return Info{Requirements: []string{}}
}
