// Package config manages pinrun configuration and filesystem paths.
//
// The default data root is ~/.pinrun/, containing choices/ (one decision
// file per context) and workdir/ (the default parent of snapshot
// directories). Settings are read from PINRUN_* environment variables,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the filesystem paths used by pinrun.
type Paths struct {
	// Root is the base directory for all pinrun data (default: ~/.pinrun)
	Root string

	// Choices is the directory containing per-context decision files
	Choices string

	// WorkDir is the default parent of snapshot directories
	WorkDir string
}

// DefaultPaths returns the default paths for pinrun.
// Paths can be overridden with environment variables:
// - PINRUN_ROOT: Override the root directory
func DefaultPaths() (*Paths, error) {
	root := os.Getenv("PINRUN_ROOT")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(home, ".pinrun")
	}

	return PathsAt(root), nil
}

// PathsAt returns the paths rooted at root.
func PathsAt(root string) *Paths {
	return &Paths{
		Root:    root,
		Choices: filepath.Join(root, "choices"),
		WorkDir: filepath.Join(root, "workdir"),
	}
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.Root,
		p.Choices,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
