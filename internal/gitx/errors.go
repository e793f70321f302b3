package gitx

import (
	"errors"
	"fmt"
)

// ErrNotARepository indicates the directory is not inside a git working tree.
var ErrNotARepository = errors.New("not a git repository")

// IOError describes a git invocation that failed for a reason other than
// the directory not being a repository.
type IOError struct {
	// Op is the repository operation that failed (e.g. "commit", "clone").
	Op string

	// Detail is the trimmed stderr of the git process, if any.
	Detail string

	// Err is the underlying error.
	Err error
}

func (e *IOError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("git %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("git %s failed: %v: %s", e.Op, e.Err, e.Detail)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
