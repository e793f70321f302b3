package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/pinrun/internal/choices"
	"github.com/danieljhkim/pinrun/internal/clock"
	"github.com/danieljhkim/pinrun/internal/config"
	"github.com/danieljhkim/pinrun/internal/fsops"
	"github.com/danieljhkim/pinrun/internal/gitx"
	"github.com/danieljhkim/pinrun/internal/hash"
	pinlog "github.com/danieljhkim/pinrun/internal/log"
	"github.com/danieljhkim/pinrun/internal/manifest"
	"github.com/danieljhkim/pinrun/internal/prompt"
	"github.com/danieljhkim/pinrun/internal/snapshot"
)

// app holds the real dependencies shared by commands.
type app struct {
	paths  *config.Paths
	cfg    config.Config
	fs     fsops.FS
	hasher hash.Hasher
	store  *choices.FileStore
	logger *slog.Logger
	cwd    string
}

// newApp loads configuration and creates real implementations of all
// dependencies. Flags override environment settings.
func newApp() (*app, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	cfg, err := config.Load(envFileFlag, paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlagOverrides(&cfg)

	format, err := pinlog.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	cwd, err := startDir()
	if err != nil {
		return nil, err
	}

	fs := fsops.NewRealFS()
	return &app{
		paths:  paths,
		cfg:    cfg,
		fs:     fs,
		hasher: hash.NewSHA256Hasher(),
		store:  choices.NewFileStore(fs, clock.System{}, paths.Choices),
		logger: pinlog.New(os.Stderr, format, cfg.LogLevel),
		cwd:    cwd,
	}, nil
}

func applyFlagOverrides(cfg *config.Config) {
	if parentWorkDir != "" {
		cfg.ParentWorkDir = parentWorkDir
	}
	if versionManager != "" {
		cfg.VersionManager = versionManager
	}
	if interactive != "" {
		cfg.Interactive = interactive
	}
	if nonInteractive {
		cfg.Interactive = string(prompt.ModeNever)
	}
	if requirements {
		cfg.ComputeRequirements = true
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
}

// startDir returns the absolute directory pinrun acts on.
func startDir() (string, error) {
	dir := dirFlag
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory %s: %w", dir, err)
	}
	return abs, nil
}

// contextKey picks the decision context: an explicit name, the hash of a
// configuration file, or the hash of the working directory.
func (a *app) contextKey(name, file string) (string, error) {
	switch {
	case name != "":
		return a.namedContext(name)
	case file != "":
		return choices.KeyFromFile(a.hasher, file)
	default:
		return choices.KeyFromPath(a.hasher, a.cwd), nil
	}
}

// namedContext sanitizes an operator-supplied context name into its key.
func (a *app) namedContext(name string) (string, error) {
	key := choices.SanitizeKey(name)
	if err := a.fs.ValidateIdentifier(key); err != nil {
		return "", fmt.Errorf("invalid context %q: %w", name, err)
	}
	return key, nil
}

// newManager builds the snapshot manager selected by configuration.
func (a *app) newManager(contextKey string, in io.Reader, out io.Writer) (snapshot.Manager, error) {
	kind, err := snapshot.ParseKind(a.cfg.VersionManager)
	if err != nil {
		return nil, err
	}
	mode, err := prompt.ParseMode(a.cfg.Interactive)
	if err != nil {
		return nil, err
	}

	var gen manifest.Generator
	if a.cfg.ComputeRequirements {
		g, err := manifest.NewCommandGenerator(a.cfg.RequirementsCommand)
		if err != nil {
			return nil, err
		}
		gen = g
	}

	deps := snapshot.Deps{
		Repo:     gitx.NewRealRepository(a.cwd),
		UI:       prompt.New(mode, in, out),
		Choices:  a.store,
		Manifest: manifest.New(a.fs, gen, a.logger),
		FS:       a.fs,
	}
	opts := snapshot.Options{
		CWD:                 a.cwd,
		ContextKey:          contextKey,
		ParentWorkDir:       a.cfg.ParentWorkDir,
		ComputeRequirements: a.cfg.ComputeRequirements,
		MaxCommitAttempts:   a.cfg.MaxCommitAttempts,
		Logger:              a.logger,
	}
	return snapshot.NewManager(kind, deps, opts)
}

// FormatError formats an error for display.
func FormatError(err error) string {
	msg := errorColor.Sprintf("Error: %v", err)
	if gitx.IsNotARepository(err) {
		msg += "\n" + dimColor.Sprint("Hint: run from inside a git repository or pass --version-manager=disabled")
	}
	return msg
}

// outputJSON outputs a value as JSON to the command's output.
func outputJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
