package snapshot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danieljhkim/pinrun/internal/gitx"
)

var (
	// ErrNotARepository indicates the caller's directory is not inside a git
	// working tree while version managing is requested.
	ErrNotARepository = gitx.ErrNotARepository

	// ErrReconciliationFailed indicates dirty or untracked state could not be
	// resolved through the interactive protocol.
	ErrReconciliationFailed = errors.New("reconciliation failed")
)

// ResolveError carries the context of a failed resolution.
type ResolveError struct {
	// Op is the step that failed (e.g. "detect repository", "clone").
	Op string

	// Path is the caller's directory.
	Path string

	// Root is the repository root, if known.
	Root string

	// Commit is the commit hash, if known.
	Commit string

	Err error
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v (path=%s", e.Op, e.Err, e.Path)
	if e.Root != "" {
		fmt.Fprintf(&b, " root=%s", e.Root)
	}
	if e.Commit != "" {
		fmt.Fprintf(&b, " commit=%s", e.Commit)
	}
	b.WriteString(")")
	return b.String()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
