// Package choices persists operator decisions per context.
//
// A context is an opaque key supplied by the caller (typically derived from
// one experiment configuration). Once a decision is recorded for a context it
// is authoritative: the snapshot manager reads it instead of prompting again.
// Decisions live in one human-readable YAML file per context.
package choices

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/pinrun/internal/clock"
	"github.com/danieljhkim/pinrun/internal/fsops"
)

// Key identifies a cached decision category.
type Key string

const (
	// KeyVersionManaging records whether version managing is enabled ("true"/"false").
	KeyVersionManaging Key = "vm"

	// KeyCloning records whether runs execute from a snapshot ("y"/"n").
	KeyCloning Key = "cloning"
)

// Store records decisions per context.
type Store interface {
	// Get returns the decision stored for key in contextKey, if any.
	Get(contextKey string, key Key) (string, bool, error)

	// Set records a decision in memory. It becomes durable on Flush.
	Set(contextKey string, key Key, value string) error

	// Flush writes the decisions of contextKey to durable storage.
	// It is a no-op when nothing changed since the last load or flush.
	Flush(contextKey string) error

	// Clear forgets every decision recorded for contextKey.
	Clear(contextKey string) error

	// Contexts lists the context keys that have durable decisions.
	Contexts() ([]string, error)
}

// Record is the on-disk form of one context's decisions.
type Record struct {
	Context   string            `yaml:"context" json:"context"`
	UpdatedAt time.Time         `yaml:"updated_at" json:"updated_at"`
	Choices   map[string]string `yaml:"choices" json:"choices"`
}

type entry struct {
	record Record
	dirty  bool
}

// FileStore implements Store with one YAML file per context under dir.
// It is meant to be used from a single goroutine per context.
type FileStore struct {
	fs      fsops.FS
	clock   clock.Clock
	dir     string
	entries map[string]*entry
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(fs fsops.FS, clk clock.Clock, dir string) *FileStore {
	return &FileStore{
		fs:      fs,
		clock:   clk,
		dir:     dir,
		entries: make(map[string]*entry),
	}
}

// Path returns the decision file path for contextKey.
func (s *FileStore) Path(contextKey string) string {
	return filepath.Join(s.dir, contextKey+".yaml")
}

// load returns the cached entry for contextKey, reading it from disk on first use.
func (s *FileStore) load(contextKey string) (*entry, error) {
	if e, ok := s.entries[contextKey]; ok {
		return e, nil
	}
	if err := s.fs.ValidateIdentifier(contextKey); err != nil {
		return nil, fmt.Errorf("invalid context key %q: %w", contextKey, err)
	}

	e := &entry{record: Record{Context: contextKey, Choices: map[string]string{}}}

	data, err := s.fs.ReadFile(s.Path(contextKey))
	switch {
	case err == nil:
		var rec Record
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse decisions for context %q: %w", contextKey, err)
		}
		if rec.Choices == nil {
			rec.Choices = map[string]string{}
		}
		rec.Context = contextKey
		e.record = rec
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read decisions for context %q: %w", contextKey, err)
	}

	s.entries[contextKey] = e
	return e, nil
}

// Get returns the decision stored for key in contextKey.
func (s *FileStore) Get(contextKey string, key Key) (string, bool, error) {
	e, err := s.load(contextKey)
	if err != nil {
		return "", false, err
	}
	v, ok := e.record.Choices[string(key)]
	return v, ok, nil
}

// Set records a decision; setting an identical value does not mark the context dirty.
func (s *FileStore) Set(contextKey string, key Key, value string) error {
	e, err := s.load(contextKey)
	if err != nil {
		return err
	}
	if cur, ok := e.record.Choices[string(key)]; ok && cur == value {
		return nil
	}
	e.record.Choices[string(key)] = value
	e.dirty = true
	return nil
}

// Flush writes the context's decisions atomically if they changed.
func (s *FileStore) Flush(contextKey string) error {
	e, err := s.load(contextKey)
	if err != nil {
		return err
	}
	if !e.dirty {
		return nil
	}

	e.record.UpdatedAt = s.clock.Now()
	data, err := yaml.Marshal(&e.record)
	if err != nil {
		return fmt.Errorf("failed to marshal decisions: %w", err)
	}

	if err := s.fs.AtomicWrite(s.Path(contextKey), data, 0644); err != nil {
		return fmt.Errorf("failed to write decisions for context %q: %w", contextKey, err)
	}

	e.dirty = false
	return nil
}

// Clear removes the decision file and the cached entry for contextKey.
func (s *FileStore) Clear(contextKey string) error {
	if err := s.fs.ValidateIdentifier(contextKey); err != nil {
		return fmt.Errorf("invalid context key %q: %w", contextKey, err)
	}
	delete(s.entries, contextKey)
	if err := s.fs.RemoveAll(s.Path(contextKey)); err != nil {
		return fmt.Errorf("failed to clear decisions for context %q: %w", contextKey, err)
	}
	return nil
}

// Contexts lists context keys with a decision file, sorted.
func (s *FileStore) Contexts() ([]string, error) {
	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list decision files: %w", err)
	}

	keys := []string{}
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".yaml"))
	}
	slices.Sort(keys)
	return keys, nil
}

// Snapshot returns a copy of the decisions currently known for contextKey.
func (s *FileStore) Snapshot(contextKey string) (Record, error) {
	e, err := s.load(contextKey)
	if err != nil {
		return Record{}, err
	}
	rec := e.record
	rec.Choices = maps.Clone(e.record.Choices)
	return rec, nil
}

// FormatBool encodes a boolean decision.
func FormatBool(v bool) string {
	return strconv.FormatBool(v)
}

// ParseBool decodes a boolean decision; ok is false for unrecognized values.
func ParseBool(v string) (value bool, ok bool) {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false
	}
	return b, true
}
