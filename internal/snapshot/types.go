package snapshot

// Info describes the code version a run executes.
type Info struct {
	// Requirements are the dependency specifiers recorded in the snapshot manifest.
	Requirements []string `json:"requirements"`

	// CommitHash is the commit the snapshot was taken at, empty without a snapshot.
	CommitHash string `json:"commit_hash,omitempty"`

	// RepositoryPath is the root of the source repository, empty when disabled.
	RepositoryPath string `json:"repo_path,omitempty"`
}

// Result is the outcome of one resolution.
type Result struct {
	// WorkingDirectory is where the run should execute.
	WorkingDirectory string `json:"working_directory"`

	// Snapshot describes the code version behind WorkingDirectory.
	Snapshot Info `json:"snapshot"`

	// Reused is true when an existing snapshot directory was used as is.
	Reused bool `json:"reused"`

	// Warnings lists the non-fatal warnings surfaced during resolution.
	Warnings []Warning `json:"warnings,omitempty"`
}

// WarningKind classifies a warning.
type WarningKind string

const (
	WarnUntracked   WarningKind = "untracked"
	WarnUncommitted WarningKind = "uncommitted"
	WarnUnlinked    WarningKind = "unlinked"
)

// Warning is a non-fatal condition reported to the operator.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// CountWarnings returns how many warnings of kind r carries.
func (r *Result) CountWarnings(kind WarningKind) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}
