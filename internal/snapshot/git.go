package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/danieljhkim/pinrun/internal/choices"
	"github.com/danieljhkim/pinrun/internal/fsops"
	"github.com/danieljhkim/pinrun/internal/gitx"
	"github.com/danieljhkim/pinrun/internal/manifest"
	"github.com/danieljhkim/pinrun/internal/prompt"
)

// AutoCommitMessage identifies commits created by pinrun.
const AutoCommitMessage = "pinrun: Automatically committing all changes"

// DefaultMaxCommitAttempts bounds automatic commits per resolution.
const DefaultMaxCommitAttempts = 1

const (
	msgUntrackedIgnored = "There are untracked files! Untracked files will not be accessible during execution of the run."
	msgCommitIgnored    = "Run will be executed from the latest commit. Uncommitted changes will not be taken into account during execution of the run."
	msgCommitBypassed   = "There are uncommitted changes and no operator to commit them. Run will be executed from the main directory and is not linked to any git commit."
	msgUnlinked         = "Run will be executed from the main directory. [Reproducibility] Run is not linked to any git commit."
)

var (
	vmQuestion = prompt.Question{
		Category: prompt.CategoryVersionManaging,
		Text:     "Would you like to enable version managing for runs of this configuration?",
		Options: []prompt.Option{
			{Token: prompt.Yes, Description: "Yes. Runs are linked to a git commit (recommended)."},
			{Token: prompt.No, Description: "No. Runs execute from the current directory."},
		},
		Tokens: prompt.YesNo,
	}

	cloningQuestion = prompt.Question{
		Category: prompt.CategoryCloning,
		Text:     "Would you like to execute code from a backup copy based on the latest commit?",
		Options: []prompt.Option{
			{Token: prompt.Yes, Description: "Yes (recommended)."},
			{Token: prompt.No, Description: "No. Code will be executed from the main repository."},
		},
		Tokens: prompt.YesNo,
	}
)

// GitManager pins runs to snapshots of a git repository.
type GitManager struct {
	repo     gitx.Repository
	ui       prompt.Controller
	choices  choices.Store
	manifest *manifest.Manifest
	fs       fsops.FS
	opts     Options
	logger   *slog.Logger
	info     Info
}

// NewGitManager creates a GitManager.
func NewGitManager(deps Deps, opts Options) (*GitManager, error) {
	if deps.Repo == nil || deps.UI == nil || deps.Choices == nil || deps.FS == nil {
		return nil, errors.New("git version manager requires a repository, a controller, a choice store and a filesystem")
	}
	if opts.ContextKey == "" {
		return nil, errors.New("git version manager requires a context key")
	}
	if opts.ParentWorkDir == "" {
		return nil, errors.New("git version manager requires a parent work directory")
	}

	parent, err := filepath.Abs(opts.ParentWorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve parent work directory: %w", err)
	}
	opts.ParentWorkDir = parent

	if opts.MaxCommitAttempts <= 0 {
		opts.MaxCommitAttempts = DefaultMaxCommitAttempts
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if deps.Manifest == nil {
		deps.Manifest = manifest.New(deps.FS, nil, opts.Logger)
	}

	return &GitManager{
		repo:     deps.Repo,
		ui:       deps.UI,
		choices:  deps.Choices,
		manifest: deps.Manifest,
		fs:       deps.FS,
		opts:     opts,
		logger:   opts.Logger.With(slog.String("context", opts.ContextKey)),
		info:     Info{Requirements: []string{}},
	}, nil
}

// resolution holds the state of one ResolveWorkingDirectory call.
type resolution struct {
	root   string
	rel    string
	commit string

	// existing is true when decisions for the context were already recorded.
	existing bool

	result *Result
}

// ResolveWorkingDirectory runs the resolution state machine:
// detect repository, version-managing decision, cloning decision,
// untracked reconciliation, dirty reconciliation, clone or reuse,
// dependency manifest, finalize. Decisions are flushed once at the end.
func (m *GitManager) ResolveWorkingDirectory(ctx context.Context) (*Result, error) {
	r := &resolution{
		result: &Result{
			WorkingDirectory: m.opts.CWD,
			Snapshot:         Info{Requirements: []string{}},
		},
	}

	if !m.ui.Interactive() {
		m.logger.Debug("no operator attached, default answers apply")
	}

	root, err := m.repo.RootPath(ctx)
	if err != nil {
		return nil, m.fail(r, "detect repository", err)
	}
	r.root = root
	r.result.Snapshot.RepositoryPath = root

	rel, err := gitx.RelPath(root, m.opts.CWD)
	if err != nil {
		return nil, m.fail(r, "locate working directory", err)
	}
	r.rel = rel

	enabled, err := m.decideEnabled(ctx, r)
	if err != nil {
		return nil, err
	}

	if enabled {
		if err := m.resolveEnabled(ctx, r); err != nil {
			return nil, err
		}
	} else {
		m.logger.Info("version managing disabled, running from the current directory")
	}

	if err := m.choices.Flush(m.opts.ContextKey); err != nil {
		return nil, m.fail(r, "persist decisions", err)
	}

	m.info = r.result.Snapshot
	return r.result, nil
}

// Info describes the code version of the last resolution.
func (m *GitManager) Info() Info {
	return m.info
}

// decideEnabled reads the cached version-managing decision or asks for it.
func (m *GitManager) decideEnabled(ctx context.Context, r *resolution) (bool, error) {
	v, ok, err := m.choices.Get(m.opts.ContextKey, choices.KeyVersionManaging)
	if err != nil {
		return false, m.fail(r, "load decisions", err)
	}
	if ok {
		if enabled, valid := choices.ParseBool(v); valid {
			r.existing = true
			return enabled, nil
		}
		m.logger.Warn("ignoring invalid cached decision", slog.String("key", string(choices.KeyVersionManaging)), slog.String("value", v))
	}

	ans, err := m.ui.PromptChoice(ctx, vmQuestion)
	if err != nil {
		return false, m.fail(r, "version managing decision", err)
	}

	enabled := ans.Is(prompt.Yes)
	if !ans.Defaulted {
		if err := m.choices.Set(m.opts.ContextKey, choices.KeyVersionManaging, choices.FormatBool(enabled)); err != nil {
			return false, m.fail(r, "record decision", err)
		}
	}
	return enabled, nil
}

// decideCloning reads the cached cloning decision or asks for it. A missing
// or invalid cached token is asked again even for an existing context.
func (m *GitManager) decideCloning(ctx context.Context, r *resolution) (string, error) {
	if r.existing {
		v, ok, err := m.choices.Get(m.opts.ContextKey, choices.KeyCloning)
		if err != nil {
			return "", m.fail(r, "load decisions", err)
		}
		if ok && (v == prompt.Yes || v == prompt.No) {
			return v, nil
		}
	}

	ans, err := m.ui.PromptChoice(ctx, cloningQuestion)
	if err != nil {
		return "", m.fail(r, "cloning decision", err)
	}
	if !ans.Defaulted {
		if err := m.choices.Set(m.opts.ContextKey, choices.KeyCloning, ans.Token); err != nil {
			return "", m.fail(r, "record decision", err)
		}
	}
	if ans.Is(prompt.Yes) {
		m.logger.Info("run will be executed from a snapshot of the latest commit")
	}
	return ans.Token, nil
}

func (m *GitManager) resolveEnabled(ctx context.Context, r *resolution) error {
	choice, err := m.decideCloning(ctx, r)
	if err != nil {
		return err
	}
	if choice == prompt.No {
		if !r.existing {
			m.warn(r, WarnUnlinked, msgUnlinked)
		}
		return nil
	}

	if err := m.reconcileUntracked(ctx, r); err != nil {
		return err
	}

	proceed, err := m.reconcileDirty(ctx, r)
	if err != nil {
		return err
	}
	if !proceed {
		return nil
	}

	dst, err := m.cloneOrReuse(ctx, r)
	if err != nil {
		return err
	}

	deps, err := m.manifest.Ensure(ctx, dst, m.opts.ComputeRequirements)
	if err != nil {
		return m.fail(r, "dependency manifest", err)
	}

	r.result.Snapshot.Requirements = deps
	r.result.Snapshot.CommitHash = r.commit
	r.result.WorkingDirectory = filepath.Join(dst, r.rel)
	return nil
}

// reconcileUntracked offers to stage untracked files until none remain or
// the operator declines. Paths are re-queried after every round.
func (m *GitManager) reconcileUntracked(ctx context.Context, r *resolution) error {
	for {
		paths, err := m.repo.UntrackedPaths(ctx)
		if err != nil {
			return m.fail(r, "list untracked files", err)
		}
		if len(paths) == 0 {
			m.logger.Debug("no untracked files")
			return nil
		}

		if r.existing {
			m.warn(r, WarnUntracked, msgUntrackedIgnored)
			return nil
		}

		q := prompt.Question{
			Category: prompt.CategoryUntracked,
			Text:     "There are untracked files in the repository. Would you like to add untracked files?",
			Details:  paths,
			Options: []prompt.Option{
				{Token: prompt.Yes, Description: "Yes."},
				{Token: prompt.No, Description: "No. Untracked files will be ignored."},
			},
			Tokens: prompt.YesNo,
		}
		ans, err := m.ui.PromptChoice(ctx, q)
		if err != nil {
			return m.fail(r, "untracked files decision", err)
		}
		if ans.Is(prompt.No) {
			m.warn(r, WarnUntracked, msgUntrackedIgnored)
			return nil
		}

		line, defaulted, err := m.ui.PromptLine(ctx, prompt.CategoryTrackFiles,
			"Please select files to be tracked (comma-separated) and hit Enter to skip:")
		if err != nil {
			return m.fail(r, "select untracked files", err)
		}
		if defaulted {
			m.warn(r, WarnUntracked, msgUntrackedIgnored)
			return nil
		}

		for _, p := range splitSelection(line) {
			if err := m.repo.StagePath(ctx, p); err != nil {
				m.ui.Warn(fmt.Sprintf("could not add %s: %v", p, err))
				continue
			}
			m.logger.Info("added file to the repository", slog.String("path", p))
		}
	}
}

// reconcileDirty offers an automatic commit while the tree is dirty. It
// reports whether the run may proceed from a snapshot. A dirty tree that
// survives MaxCommitAttempts commits fails with ErrReconciliationFailed.
func (m *GitManager) reconcileDirty(ctx context.Context, r *resolution) (bool, error) {
	attempts := 0
	for {
		dirty, err := m.repo.IsDirty(ctx)
		if err != nil {
			return false, m.fail(r, "check uncommitted changes", err)
		}
		if !dirty {
			m.logger.Debug("no uncommitted changes")
			return true, nil
		}

		if attempts >= m.opts.MaxCommitAttempts {
			err := fmt.Errorf("%w: tree still has uncommitted changes after %d automatic commit(s)", ErrReconciliationFailed, attempts)
			return false, m.fail(r, "commit changes", err)
		}

		if r.existing {
			m.warn(r, WarnUncommitted, msgCommitIgnored)
			return true, nil
		}

		changed, err := m.repo.ChangedPaths(ctx)
		if err != nil {
			return false, m.fail(r, "list uncommitted changes", err)
		}

		q := prompt.Question{
			Category: prompt.CategoryCommit,
			Text:     "There are uncommitted changes in the repository. Would you like to create an automatic commit for all uncommitted changes?",
			Details:  changed,
			Options: []prompt.Option{
				{Token: prompt.Yes, Description: "Yes."},
				{Token: prompt.No, Description: "No. Uncommitted changes will be ignored."},
			},
			Tokens: prompt.YesNo,
		}
		ans, err := m.ui.PromptChoice(ctx, q)
		if err != nil {
			return false, m.fail(r, "automatic commit decision", err)
		}

		if ans.Is(prompt.No) {
			if ans.Defaulted {
				m.warn(r, WarnUncommitted, msgCommitBypassed)
				return false, nil
			}
			m.warn(r, WarnUncommitted, msgCommitIgnored)
			return true, nil
		}

		hash, err := m.repo.CommitAll(ctx, AutoCommitMessage)
		attempts++
		if err != nil {
			return false, m.fail(r, "commit changes", err)
		}
		m.logger.Info("committed all changes", slog.String("commit", hash))
	}
}

// cloneOrReuse returns the snapshot directory of HEAD, cloning it if it does
// not exist yet.
func (m *GitManager) cloneOrReuse(ctx context.Context, r *resolution) (string, error) {
	hash, err := m.repo.CommitHash(ctx)
	if err != nil {
		return "", m.fail(r, "resolve commit", err)
	}
	r.commit = hash

	name := filepath.Base(r.root)
	for _, id := range []string{name, hash} {
		if err := m.fs.ValidateIdentifier(id); err != nil {
			return "", m.fail(r, "snapshot path", err)
		}
	}
	dst := SnapshotPath(m.opts.ParentWorkDir, name, hash)

	exists, err := m.fs.IsDir(dst)
	if err != nil {
		return "", m.fail(r, "check snapshot", err)
	}
	if exists {
		r.result.Reused = true
		m.logger.Info("found a snapshot of the code", slog.String("commit", hash), slog.String("path", dst))
		return dst, nil
	}

	m.logger.Info("creating a snapshot of the code", slog.String("commit", hash), slog.String("path", dst))
	if err := m.repo.CloneAt(ctx, hash, dst); err != nil {
		return "", m.fail(r, "clone", err)
	}
	return dst, nil
}

// warn surfaces a warning to the operator and records it in the result.
func (m *GitManager) warn(r *resolution, kind WarningKind, msg string) {
	m.ui.Warn(msg)
	r.result.Warnings = append(r.result.Warnings, Warning{Kind: kind, Message: msg})
}

// fail wraps err with the diagnostic context of r.
func (m *GitManager) fail(r *resolution, op string, err error) error {
	return &ResolveError{
		Op:     op,
		Path:   m.opts.CWD,
		Root:   r.root,
		Commit: r.commit,
		Err:    err,
	}
}

// splitSelection parses a comma-separated list of paths.
func splitSelection(line string) []string {
	var paths []string
	for _, p := range strings.Split(line, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
