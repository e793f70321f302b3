package snapshot

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/danieljhkim/pinrun/internal/fsops"
	"github.com/danieljhkim/pinrun/internal/manifest"
)

// Entry describes one snapshot directory on disk.
type Entry struct {
	Repository  string `json:"repository"`
	Commit      string `json:"commit"`
	Path        string `json:"path"`
	HasManifest bool   `json:"has_manifest"`
}

// Catalog lists the snapshots under a parent work directory.
type Catalog struct {
	fs            fsops.FS
	parentWorkDir string
}

// NewCatalog creates a Catalog over parentWorkDir.
func NewCatalog(fs fsops.FS, parentWorkDir string) *Catalog {
	return &Catalog{fs: fs, parentWorkDir: parentWorkDir}
}

// List returns the snapshots of repository, or of every repository when
// repository is empty, sorted by repository then commit. Hidden entries
// (including in-progress clones) are skipped.
func (c *Catalog) List(repository string) ([]Entry, error) {
	repos, err := c.repositories(repository)
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	for _, repo := range repos {
		repoDir := filepath.Join(c.parentWorkDir, repo)
		dirs, err := c.fs.ReadDir(repoDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshots of %s: %w", repo, err)
		}

		for _, d := range dirs {
			if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
				continue
			}
			path := filepath.Join(repoDir, d.Name())
			hasManifest, err := c.fs.Exists(manifest.Path(path))
			if err != nil {
				return nil, fmt.Errorf("failed to check manifest of %s: %w", path, err)
			}
			entries = append(entries, Entry{
				Repository:  repo,
				Commit:      d.Name(),
				Path:        path,
				HasManifest: hasManifest,
			})
		}
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if n := strings.Compare(a.Repository, b.Repository); n != 0 {
			return n
		}
		return strings.Compare(a.Commit, b.Commit)
	})
	return entries, nil
}

func (c *Catalog) repositories(repository string) ([]string, error) {
	if repository != "" {
		if err := c.fs.ValidateIdentifier(repository); err != nil {
			return nil, fmt.Errorf("invalid repository name: %w", err)
		}
		ok, err := c.fs.IsDir(filepath.Join(c.parentWorkDir, repository))
		if err != nil {
			return nil, fmt.Errorf("failed to check repository snapshots: %w", err)
		}
		if !ok {
			return []string{}, nil
		}
		return []string{repository}, nil
	}

	exists, err := c.fs.IsDir(c.parentWorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to check parent work directory: %w", err)
	}
	if !exists {
		return []string{}, nil
	}

	dirs, err := c.fs.ReadDir(c.parentWorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read parent work directory: %w", err)
	}

	var repos []string
	for _, d := range dirs {
		if d.IsDir() && !strings.HasPrefix(d.Name(), ".") {
			repos = append(repos, d.Name())
		}
	}
	return repos, nil
}
