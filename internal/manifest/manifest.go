// Package manifest materializes the dependency manifest of a snapshot.
//
// The manifest is a plain-text file with one dependency specifier per line,
// stored at the snapshot root. Its presence is the idempotency marker: once
// written it is never regenerated, and all later runs read it back.
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/danieljhkim/pinrun/internal/fsops"
)

// FileName is the manifest file name inside a snapshot directory.
const FileName = "requirements.txt"

// DefaultCommand lists the dependencies of a Python tree on stdout.
const DefaultCommand = "pipreqs --print"

// Generator computes the dependency specifiers of a source tree.
type Generator interface {
	Dependencies(ctx context.Context, dir string) ([]string, error)
}

// CommandGenerator runs an external command with the tree path appended as
// the last argument and reads one specifier per stdout line.
type CommandGenerator struct {
	argv []string
}

// NewCommandGenerator parses command (whitespace-separated, no shell quoting).
func NewCommandGenerator(command string) (*CommandGenerator, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, errors.New("requirements command is empty")
	}
	return &CommandGenerator{argv: argv}, nil
}

// Dependencies runs the command against dir.
func (g *CommandGenerator) Dependencies(ctx context.Context, dir string) ([]string, error) {
	args := append(append([]string{}, g.argv[1:]...), dir)
	cmd := exec.CommandContext(ctx, g.argv[0], args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w\nstderr: %s", g.argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return parseLines(stdout.String()), nil
}

// Manifest reads or generates the manifest of snapshot directories.
type Manifest struct {
	fs        fsops.FS
	generator Generator
	logger    *slog.Logger
}

// New creates a Manifest. generator may be nil when requirements are never computed.
func New(fs fsops.FS, generator Generator, logger *slog.Logger) *Manifest {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manifest{fs: fs, generator: generator, logger: logger}
}

// Path returns the manifest path for snapshot directory dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Ensure returns the dependencies recorded for dir. An existing manifest is
// read as is. Otherwise, when compute is true, one is generated and written
// atomically; when compute is false the result is empty.
func (m *Manifest) Ensure(ctx context.Context, dir string, compute bool) ([]string, error) {
	path := Path(dir)

	exists, err := m.fs.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to check manifest: %w", err)
	}

	if !exists {
		if !compute {
			return []string{}, nil
		}
		if m.generator == nil {
			return nil, errors.New("requirements computation enabled without a generator")
		}

		m.logger.Info("no requirements file found, generating", slog.String("path", path))
		deps, err := m.generator.Dependencies(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to generate requirements: %w", err)
		}
		if err := m.fs.AtomicWrite(path, []byte(render(deps)), 0644); err != nil {
			return nil, fmt.Errorf("failed to write requirements: %w", err)
		}
		return deps, nil
	}

	data, err := m.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read requirements: %w", err)
	}
	return parseLines(string(data)), nil
}

func render(deps []string) string {
	if len(deps) == 0 {
		return ""
	}
	return strings.Join(deps, "\n") + "\n"
}

// parseLines splits output into non-empty, trimmed lines, dropping comments
// and tool chatter such as pipreqs' "INFO:" lines.
func parseLines(out string) []string {
	deps := []string{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "INFO:") {
			continue
		}
		deps = append(deps, line)
	}
	return deps
}
